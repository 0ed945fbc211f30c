// Command flowjobs loads a FlowScript file, starts the engine against
// it, and drops into an interactive command loop: stop, destroy,
// finish <id>, status <id>, start, jobtypes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"flowjobs/internal/config"
	"flowjobs/internal/engine"
	"flowjobs/internal/job"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("flowjobs: fatal error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowjobs [flowscript-file]",
		Short: "Run a FlowScript-described job graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	return cmd
}

func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("flowjobs: reading %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Warn("flowjobs: failed to load config, using defaults")
		cfg = nil
	}

	eng := engine.New(cfg)
	if err := eng.RunFlowScript(string(src), nil); err != nil {
		return fmt.Errorf("flowjobs: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("flowjobs: %w", err)
	}
	defer eng.Destroy()

	return commandLoop(ctx, eng)
}

// commandLoop runs the read-a-line-dispatch-a-command interactive
// session for as long as stdin has input.
func commandLoop(ctx context.Context, eng *engine.Engine) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "stop":
			if err := eng.Stop(); err != nil {
				fmt.Fprintln(os.Stderr, "stop:", err)
			}
		case "start":
			if err := eng.Start(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "start:", err)
			}
		case "destroy":
			if err := eng.Destroy(); err != nil {
				fmt.Fprintln(os.Stderr, "destroy:", err)
			}
			return nil
		case "jobtypes":
			for _, t := range eng.ListTypes() {
				fmt.Println(t)
			}
		case "status":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "status: missing job id")
				continue
			}
			id, err := parseJobID(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, "status: invalid job id:", err)
				continue
			}
			status, err := eng.Status(id)
			if err != nil {
				fmt.Fprintln(os.Stderr, "status:", err)
				continue
			}
			fmt.Println(status)
		case "finish":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "finish: missing job id")
				continue
			}
			id, err := parseJobID(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, "finish: invalid job id:", err)
				continue
			}
			if err := eng.FinishJob(ctx, id); err != nil {
				fmt.Fprintln(os.Stderr, "finish:", err)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", fields[0])
		}
	}
	return scanner.Err()
}

// parseJobID parses a command-line job id argument into a job.JobID —
// job ids are allocated as a plain monotonic counter, not UUIDs.
func parseJobID(s string) (job.JobID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return job.JobID(n), nil
}
