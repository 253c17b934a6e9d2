package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stampede/internal/kinds"
	"github.com/roach88/stampede/internal/store"
	"github.com/roach88/stampede/internal/trace"
)

// ReplayRunResult holds the replay verdict for a single run.
type ReplayRunResult struct {
	RunToken      string `json:"run_token"`
	Kind          string `json:"kind"`
	Frames        int    `json:"frames"`
	Dispatched    int64  `json:"dispatched"`
	IsComplete    bool   `json:"is_complete"`
	Deterministic bool   `json:"deterministic"`
	FirstDrift    uint64 `json:"first_drift,omitempty"` // stamp of the first diverging frame
	Reason        string `json:"reason,omitempty"`      // why verification failed
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
	IncompleteRuns   []string          `json:"incomplete_runs,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [<run-token>]",
		Short: "Re-execute recorded runs and verify determinism",
		Long: `Re-execute recorded runs from scratch and verify they reproduce the
recorded trace, digest for digest.

For each run, the stored dispatch log is first checked against the stored
frame digests, then the kind is re-executed with the recorded population
and the fresh digests are compared frame by frame. The first diverging
frame is named. For finished runs the final record snapshots must match
as well. Without a token, every run in the database is verified.

Exit codes:
  0 - All runs replayed deterministically
  1 - Determinism verification failed (drift detected)
  2 - Command error (database or run not found, etc.)

Examples:
  stampede replay --db ./stampede.db
  stampede replay 0198a0... --db ./stampede.db
  stampede replay --db ./stampede.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) > 0 {
				token = args[0]
			}
			return runReplay(rootOpts, token, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, token string, cmd *cobra.Command) error {
	if err := requireDatabase(opts); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var tokens []string
	var incomplete []string
	if token != "" {
		tokens = []string{token}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, run := range runs {
			tokens = append(tokens, run.Token)
		}

		// Surface runs whose recording never finished; their recorded
		// prefix is still verified below.
		incompleteRuns, err := st.FindIncompleteRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find incomplete runs", err)
		}
		for _, run := range incompleteRuns {
			incomplete = append(incomplete, run.Token)
		}
	}

	if len(tokens) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Runs:             []ReplayRunResult{},
				TotalRuns:        0,
				AllDeterministic: true,
			}
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(tokens)),
		TotalRuns:        len(tokens),
		AllDeterministic: true,
		IncompleteRuns:   incomplete,
	}

	for _, t := range tokens {
		runResult, err := replayAndVerifyRun(ctx, st, t)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", t))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", t), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun re-executes one recorded run and compares digests.
func replayAndVerifyRun(ctx context.Context, st *store.Store, token string) (ReplayRunResult, error) {
	history, err := st.LoadHistory(ctx, token)
	if err != nil {
		return ReplayRunResult{}, err
	}

	result := ReplayRunResult{
		RunToken:      history.Run.Token,
		Kind:          history.Run.Kind,
		Frames:        len(history.Frames),
		IsComplete:    history.IsComplete,
		Deterministic: true,
	}
	for _, f := range history.Frames {
		result.Dispatched += f.Dispatched
	}

	// Log integrity first: stored digests must match the stored dispatch
	// log before re-execution results mean anything.
	mismatched, err := history.VerifyFrameDigests()
	if err != nil {
		return ReplayRunResult{}, err
	}
	if len(mismatched) > 0 {
		result.Deterministic = false
		result.FirstDrift = mismatched[0]
		result.Reason = "stored digest does not match stored dispatch log"
		return result, nil
	}

	runner, err := kinds.New(history.Run.Kind)
	if err != nil {
		return ReplayRunResult{}, err
	}
	runner.Populate(int(history.Run.Population))

	for _, stored := range history.Frames {
		_, frame := runner.RunFrame()
		digest, err := trace.FrameDigest(frame)
		if err != nil {
			return ReplayRunResult{}, fmt.Errorf("digest replayed frame %d: %w", frame.Stamp, err)
		}
		if digest != stored.Digest {
			result.Deterministic = false
			result.FirstDrift = stored.Stamp
			result.Reason = "re-executed frame digest diverged"
			return result, nil
		}
	}

	// Finished runs also recorded final snapshots; the re-executed records
	// must land in the same states with the same payloads.
	if history.IsComplete {
		if err := compareFinalStates(runner.Snapshot(), history.Records, &result); err != nil {
			return ReplayRunResult{}, err
		}
	}

	return result, nil
}

// compareFinalStates checks re-executed record snapshots against the stored
// ones, comparing payloads as canonical JSON text.
func compareFinalStates(replayed []trace.RecordState, stored []store.RecordSnapshot, result *ReplayRunResult) error {
	if len(replayed) != len(stored) {
		result.Deterministic = false
		result.Reason = fmt.Sprintf("final record count diverged: replayed %d, stored %d", len(replayed), len(stored))
		return nil
	}

	for i, rs := range stored {
		re := replayed[i]
		if re.Index != rs.Index || re.State != rs.State {
			result.Deterministic = false
			result.Reason = fmt.Sprintf("final state of record %d diverged: replayed %s, stored %s", rs.Index, re.State, rs.State)
			return nil
		}

		payload := re.Payload
		if payload == nil {
			payload = trace.Object{}
		}
		data, err := trace.MarshalCanonical(payload)
		if err != nil {
			return fmt.Errorf("marshal replayed record %d: %w", re.Index, err)
		}
		if string(data) != rs.Payload {
			result.Deterministic = false
			result.Reason = fmt.Sprintf("final payload of record %d diverged", rs.Index)
			return nil
		}
	}

	return nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunToken)

		if verbose {
			fmt.Fprintf(w, "  Kind:       %s\n", run.Kind)
			fmt.Fprintf(w, "  Frames:     %d\n", run.Frames)
			fmt.Fprintf(w, "  Dispatched: %d\n", run.Dispatched)
			fmt.Fprintf(w, "  Complete:   %v\n", run.IsComplete)
		} else {
			fmt.Fprintf(w, "  Kind: %s, frames: %d, dispatched: %d\n", run.Kind, run.Frames, run.Dispatched)
		}

		if !run.Deterministic {
			if run.FirstDrift > 0 {
				fmt.Fprintf(w, "  Drift at frame %d: %s\n", run.FirstDrift, run.Reason)
			} else {
				fmt.Fprintf(w, "  Drift: %s\n", run.Reason)
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.IncompleteRuns) > 0 {
		fmt.Fprintf(w, "Note: %d run(s) incomplete, verified up to their last recorded frame:\n", len(result.IncompleteRuns))
		for _, t := range result.IncompleteRuns {
			fmt.Fprintf(w, "  %s\n", t)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
