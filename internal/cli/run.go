package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stampede/internal/kinds"
	"github.com/roach88/stampede/internal/store"
	"github.com/roach88/stampede/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Frames     int
	Population int
	Record     bool
	Token      string // run token override; defaults to a fresh UUIDv7
}

// RunSummary holds the outcome of one run.
type RunSummary struct {
	Kind        string `json:"kind"`
	RunToken    string `json:"run_token,omitempty"`
	Frames      int    `json:"frames"`
	Records     int    `json:"records"`
	Dispatched  int    `json:"dispatched"`
	Unrouted    int    `json:"unrouted"`
	RunDigest   string `json:"run_digest"`
	Recorded    bool   `json:"recorded"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// runTokenGen names runs recorded without an explicit --token. Tests
// swap in a deterministic generator from internal/testutil.
var runTokenGen store.RunTokenGenerator = store.UUIDv7Generator{}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <kind>",
		Short: "Run a kind frame by frame",
		Long: `Run a registered kind's record collection for a fixed frame budget.

Each frame sweeps the collection through the kind's dispatch buckets and
collects the dispatch trace. With --record, every frame is written to the
SQLite run database as it completes, so an interrupted run can still be
inspected and is reported as incomplete.

Exit codes:
  0 - Run completed (or stopped gracefully on interrupt)
  1 - Run or recording failed
  2 - Command error (unknown kind, missing database, etc.)

Examples:
  stampede run drifter --frames 52
  stampede run beacon --frames 20 --population 3
  stampede run drifter --record --db ./stampede.db
  stampede run drifter --record --db ./stampede.db --token bench-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKind(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Frames, "frames", 60, "number of frames to run")
	cmd.Flags().IntVar(&opts.Population, "population", 1, "number of records to populate")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run to the database")
	cmd.Flags().StringVar(&opts.Token, "token", "", "run token override (defaults to a fresh UUIDv7)")

	return cmd
}

func runKind(opts *RunOptions, kind string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	if opts.Frames < 1 {
		return NewExitError(ExitCommandError, "frames must be at least 1")
	}
	if opts.Population < 1 {
		return NewExitError(ExitCommandError, "population must be at least 1")
	}

	runner, err := kinds.New(kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build runner", err)
	}
	runner.Populate(opts.Population)

	// Open the database up front when recording, so a bad path fails
	// before any frames run.
	var st *store.Store
	var token string
	if opts.Record {
		if err := requireDatabase(opts.RootOptions); err != nil {
			return err
		}

		slog.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		token = opts.Token
		if token == "" {
			token = runTokenGen.Generate()
		}
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if st != nil {
		if err := st.CreateRun(ctx, store.Run{
			Token:      token,
			Kind:       kind,
			Population: int64(opts.Population),
			Frames:     int64(opts.Frames),
		}); err != nil {
			return WrapExitError(ExitFailure, "recording failed", err)
		}
	}

	slog.Info("starting run", "kind", kind, "frames", opts.Frames, "population", opts.Population)

	var digests []string
	dispatched := 0
	unrouted := 0
	interrupted := false

	for i := 0; i < opts.Frames; i++ {
		select {
		case <-ctx.Done():
			interrupted = true
		default:
		}
		if interrupted {
			break
		}

		report, frame := runner.RunFrame()
		digest, err := trace.FrameDigest(frame)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to digest frame %d", frame.Stamp), err)
		}
		digests = append(digests, digest)
		dispatched += report.Dispatched
		unrouted += report.Unrouted

		if st != nil {
			if err := st.WriteFrame(ctx, token, store.StoredFrame{
				Stamp:      frame.Stamp,
				Dispatched: frame.Dispatched,
				Unrouted:   int64(report.Unrouted),
				Digest:     digest,
				Dispatches: frame.Dispatches,
			}); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("recording failed at frame %d", frame.Stamp), err)
			}
		}

		slog.Debug("frame complete", "stamp", frame.Stamp, "dispatched", report.Dispatched, "unrouted", report.Unrouted)
	}

	summary := RunSummary{
		Kind:        kind,
		Frames:      len(digests),
		Records:     runner.Len(),
		Dispatched:  dispatched,
		Unrouted:    unrouted,
		RunDigest:   trace.RunDigest(digests),
		Interrupted: interrupted,
	}

	// An interrupted recording stays incomplete: no final snapshots, no run
	// digest. FindIncompleteRuns and replay report it as such.
	if st != nil {
		summary.RunToken = token
		if !interrupted {
			if err := st.WriteRecordStates(ctx, token, runner.Snapshot()); err != nil {
				return WrapExitError(ExitFailure, "recording failed", err)
			}
			if err := st.FinishRun(ctx, token, summary.RunDigest); err != nil {
				return WrapExitError(ExitFailure, "recording failed", err)
			}
			summary.Recorded = true
		}
	}

	slog.Info("run complete", "kind", kind, "frames", summary.Frames, "dispatched", summary.Dispatched)

	if opts.Format == "json" {
		return outputRunJSON(cmd, summary)
	}
	return outputRunText(cmd, summary, opts.Database)
}

// outputRunJSON outputs the run summary as JSON.
func outputRunJSON(cmd *cobra.Command, summary RunSummary) error {
	response := CLIResponse{
		Status:   "ok",
		Data:     summary,
		RunToken: summary.RunToken,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunText outputs the run summary as text.
func outputRunText(cmd *cobra.Command, summary RunSummary, database string) error {
	w := cmd.OutOrStdout()

	if summary.Interrupted {
		fmt.Fprintf(w, "Run interrupted: %s\n", summary.Kind)
	} else {
		fmt.Fprintf(w, "Run complete: %s\n", summary.Kind)
	}
	fmt.Fprintf(w, "  Frames:     %d\n", summary.Frames)
	fmt.Fprintf(w, "  Records:    %d\n", summary.Records)
	fmt.Fprintf(w, "  Dispatched: %d\n", summary.Dispatched)
	fmt.Fprintf(w, "  Unrouted:   %d\n", summary.Unrouted)
	fmt.Fprintf(w, "  Digest:     %s\n", summary.RunDigest)

	if summary.Recorded {
		fmt.Fprintf(w, "  Recorded:   %s -> %s\n", summary.RunToken, database)
	} else if summary.RunToken != "" {
		fmt.Fprintf(w, "  Recorded:   %s (incomplete)\n", summary.RunToken)
	}

	return nil
}
