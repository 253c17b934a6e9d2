package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stampede/internal/store"
	"github.com/roach88/stampede/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Frame  uint64 // show a single frame only (0 = all)
	Bucket string // optional - filter to one bucket
}

// RecordLine is one record's final snapshot as shown in trace output.
// Payload carries the stored canonical JSON through unparsed.
type RecordLine struct {
	Index   int64           `json:"index"`
	State   string          `json:"state"`
	Payload json.RawMessage `json:"payload"`
}

// TraceStats holds summary statistics for a recorded run.
type TraceStats struct {
	Frames     int   `json:"frames"`
	Declared   int64 `json:"declared_frames"`
	Dispatched int64 `json:"dispatched"`
	Unrouted   int64 `json:"unrouted"`
	Records    int   `json:"records"`
	IsComplete bool  `json:"is_complete"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunToken string           `json:"run_token"`
	Kind     string           `json:"kind"`
	Timeline []trace.Dispatch `json:"timeline"`
	Records  []RecordLine     `json:"records"`
	Stats    TraceStats       `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-token>",
		Short: "Inspect a recorded run",
		Long: `Inspect the dispatch log of a recorded run.

The output includes:
- Timeline: every dispatch in sweep order, with states and chain lengths
- Records: final per-record snapshots (present once the run finished)
- Stats: frame and dispatch totals

Examples:
  stampede trace 0198a0... --db ./stampede.db
  stampede trace 0198a0... --db ./stampede.db --frame 52
  stampede trace 0198a0... --db ./stampede.db --bucket catch-all
  stampede trace 0198a0... --db ./stampede.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Frame, "frame", 0, "show a single frame's dispatches (0 = all)")
	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "filter dispatches to one bucket")

	return cmd
}

func runTrace(opts *TraceOptions, token string, cmd *cobra.Command) error {
	if err := requireDatabase(opts.RootOptions); err != nil {
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

	run, err := st.ReadRun(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", token))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	frames, err := st.ReadFrames(ctx, token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	var dispatches []trace.Dispatch
	if opts.Frame > 0 {
		dispatches, err = st.ReadFrameDispatches(ctx, token, opts.Frame)
	} else {
		dispatches, err = st.ReadDispatches(ctx, token)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dispatches", err)
	}

	snapshots, err := st.ReadRecordStates(ctx, token)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read record states", err)
	}

	result := TraceResult{
		RunToken: run.Token,
		Kind:     run.Kind,
		Timeline: filterDispatches(dispatches, opts.Bucket),
		Records:  make([]RecordLine, 0, len(snapshots)),
		Stats: TraceStats{
			Frames:     len(frames),
			Declared:   run.Frames,
			Records:    len(snapshots),
			IsComplete: int64(len(frames)) == run.Frames && run.RunDigest != "",
		},
	}
	for _, f := range frames {
		result.Stats.Dispatched += f.Dispatched
		result.Stats.Unrouted += f.Unrouted
	}
	for _, rs := range snapshots {
		result.Records = append(result.Records, RecordLine{
			Index:   rs.Index,
			State:   rs.State,
			Payload: json.RawMessage(rs.Payload),
		})
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd, result)
}

// filterDispatches keeps dispatches matching the bucket filter.
// An empty filter keeps everything.
func filterDispatches(dispatches []trace.Dispatch, bucket string) []trace.Dispatch {
	if bucket == "" {
		return dispatches
	}

	filtered := make([]trace.Dispatch, 0, len(dispatches))
	for _, d := range dispatches {
		if d.Bucket == bucket {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status:   "ok",
		Data:     result,
		RunToken: result.RunToken,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunToken)
	fmt.Fprintf(w, "Kind: %s\n", result.Kind)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no dispatches)")
	} else {
		for _, d := range result.Timeline {
			fmt.Fprintf(w, "  [%d] frame %d %s: record %d %s -> %s (%d steps)\n",
				d.Seq, d.Frame, d.Bucket, d.Index, d.From, d.To, d.Steps)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Records ===")
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "  (no final snapshots recorded)")
	} else {
		for _, r := range result.Records {
			fmt.Fprintf(w, "  [%d] %s %s\n", r.Index, r.State, string(r.Payload))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Frames:     %d of %d declared\n", result.Stats.Frames, result.Stats.Declared)
	fmt.Fprintf(w, "  Dispatched: %d\n", result.Stats.Dispatched)
	fmt.Fprintf(w, "  Unrouted:   %d\n", result.Stats.Unrouted)
	fmt.Fprintf(w, "  Records:    %d\n", result.Stats.Records)

	return nil
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (recording interrupted)"
}
