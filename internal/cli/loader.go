package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/stampede/internal/harness"
	"github.com/roach88/stampede/internal/kinds"
)

//go:embed schema.cue
var schemaCUE string

// LoadError represents an error found while loading or validating a
// scenario file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeScanError = "E002" // Directory scan error
	ErrCodeNoFiles   = "E003" // No scenario files found
	ErrCodeParse     = "E004" // YAML parse failed
	ErrCodeNotFound  = "E005" // Path not found

	// Scenario validation errors
	ErrCodeSchema      = "E101" // Schema violation
	ErrCodeInvalid     = "E102" // Cross-field validation failed
	ErrCodeUnknownKind = "E103" // Kind not registered
)

// ValidateScenarioFile checks one scenario file in three passes: the YAML
// must parse, the document must satisfy the embedded CUE schema, and the
// harness's cross-field rules plus the kind registry must accept it.
// Returns nil if the scenario is valid.
func ValidateScenarioFile(path string) []error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario file not found: %s", path)}}
	}
	if err != nil {
		return []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenario file: %v", err)}}
	}
	if info.IsDir() {
		return []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading scenario file: %v", err)}}
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return loadErrorsFrom(ErrCodeParse, err)
	}

	ctx := cuecontext.New()
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return loadErrorsFrom(ErrCodeParse, err)
	}

	schema, err := scenarioSchema(ctx)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true), cue.Final()); err != nil {
		return loadErrorsFrom(ErrCodeSchema, err)
	}

	// The schema cannot express which fields each assertion type needs;
	// the harness's strict load covers those rules.
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeInvalid, Message: err.Error()}}
	}

	if _, err := kinds.New(scenario.Kind); err != nil {
		return []error{&LoadError{Code: ErrCodeUnknownKind, Message: err.Error()}}
	}

	return nil
}

// ExpandScenarioPaths resolves validate arguments into scenario file paths.
// Directory arguments are walked for .yaml/.yml files; file arguments pass
// through untouched, so a missing file surfaces as a per-file error later.
func ExpandScenarioPaths(args []string) ([]string, []error) {
	var paths []string
	var errs []error

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		found, err := findScenarioFiles(arg, "")
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", arg, err)})
			continue
		}
		if len(found) == 0 {
			errs = append(errs, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", arg)})
			continue
		}
		paths = append(paths, found...)
	}

	return paths, errs
}

// scenarioSchema compiles the embedded schema and resolves the #Scenario
// definition.
func scenarioSchema(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling scenario schema: %v", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("resolving #Scenario definition: %v", err)
	}
	return def, nil
}

// loadErrorsFrom converts a CUE error list to LoadErrors, carrying each
// error's position through for line reporting.
func loadErrorsFrom(code string, err error) []error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []error{&LoadError{Code: code, Message: err.Error()}}
	}

	out := make([]error, 0, len(list))
	for _, e := range list {
		out = append(out, &LoadError{Code: code, Message: e.Error(), Pos: e.Position()})
	}
	return out
}
