package main

import (
	"github.com/spf13/cobra"
)

var checkFlags workloadFlags

func init() {
	cmd := newCheckCmd()
	checkFlags.register(cmd.Flags())
	rootCmd.AddCommand(cmd)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify heap integrity after every call of a workload",
		Long: `The check command runs the same workload as simulate but validates
the allocator and every pool after each call, stopping at the first
inconsistency. With --extra, the extra pool is periodically detached
and reattached; --strict leaves the in-use decision to the heap.

Example:
  memctl check --ops 20000 --seed 3
  memctl check --pool 4KiB --extra 4KiB --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := checkFlags.resolve()
			if err != nil {
				return err
			}
			return runCheck(w)
		},
	}
}

type checkReport struct {
	Seed     int64          `json:"seed"`
	Steps    int            `json:"steps"`
	Workload workloadResult `json:"workload"`
	Passed   bool           `json:"passed"`
	Error    string         `json:"error,omitempty"`
}

func runCheck(w workload) error {
	s, err := openSession(w)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.heap.Check(); err != nil {
		return err
	}
	res, runErr := w.run(s, func(step int) error {
		if step > 0 && step%1000 == 0 {
			printVerbose("  %s steps verified\n", formatCount(step))
		}
		return s.heap.Check()
	})

	report := checkReport{Seed: w.seed, Steps: res.Ops, Workload: res, Passed: runErr == nil}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}
	printInfo("OK: %s steps verified (seed %d)\n", formatCount(report.Steps), report.Seed)
	return nil
}
