package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// FileValidation holds the validation outcome for one scenario file.
type FileValidation struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationResult holds validation results across all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files against the schema without running them.

Each file must parse, satisfy the embedded CUE schema (field types,
assertion types, closed structs), pass the harness's cross-field rules,
and name a registered kind. Directory arguments are expanded to the
scenario files they contain.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (empty directory, directory scan failure, etc.)

Examples:
  stampede validate ./testdata/scenarios/drifter_settles.yaml
  stampede validate ./testdata/scenarios
  stampede validate a.yaml b.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	paths, expandErrs := ExpandScenarioPaths(args)
	if len(expandErrs) > 0 {
		var loadErr *LoadError
		if errors.As(expandErrs[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, expandErrs[0].Error())
	}

	formatter.VerboseLog("Validating %d scenario file(s)", len(paths))

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		fv := FileValidation{File: path, Valid: true}
		for _, err := range ValidateScenarioFile(path) {
			fv.Valid = false
			fv.Errors = append(fv.Errors, toValidationIssue(err))
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		return outputValidationJSON(formatter, result)
	}
	return outputValidationText(formatter, result)
}

// toValidationIssue converts a loader error to its reportable form.
func toValidationIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ValidationIssue{
			Code:    loadErr.Code,
			Message: loadErr.Message,
			Line:    getLineFromCuePos(loadErr.Pos),
		}
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

// getLineFromCuePos extracts a line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Path and scan problems are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationJSON outputs the validation result as JSON.
func outputValidationJSON(formatter *OutputFormatter, result ValidationResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	invalid := 0
	if !result.Valid {
		var first ValidationIssue
		for _, fv := range result.Files {
			if fv.Valid {
				continue
			}
			if invalid == 0 {
				first = fv.Errors[0]
			}
			invalid++
		}
		response.Status = "error"
		response.Error = &CLIError{
			Code:    first.Code,
			Message: first.Message,
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Valid {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario file(s) invalid", invalid, len(result.Files)))
	}
	return nil
}

// outputValidationText outputs the validation result as text.
func outputValidationText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	invalid := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.File)
			continue
		}

		invalid++
		fmt.Fprintf(w, "✗ %s\n", fv.File)
		for _, issue := range fv.Errors {
			if issue.Line > 0 {
				fmt.Fprintf(w, "  line %d\n", issue.Line)
			}
			fmt.Fprintf(w, "  %s: %s\n", issue.Code, issue.Message)
		}
		fmt.Fprintln(w)
	}

	if invalid > 0 {
		fmt.Fprintln(w, "✗ Validation failed")
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario file(s) invalid", invalid, len(result.Files)))
	}

	fmt.Fprintln(w, "✓ All scenarios valid")
	return nil
}
