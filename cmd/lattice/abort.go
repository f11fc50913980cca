package main

import (
	"time"

	"github.com/spf13/cobra"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/storage"
)

var abortReason string

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Roll back a paused or in-flight operation",
	Args:  cobra.NoArgs,
	RunE:  runAbort,
}

func init() {
	abortCmd.Flags().StringVar(&abortReason, "reason", "user requested abort", "reason recorded in the event ledger")
}

func runAbort(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}

	state, inFlight, err := storage.ReadOpState(a.repo.CommonDir())
	if err != nil {
		return err
	}
	if !inFlight || !state.IsInFlight() {
		return latticeerrors.New(latticeerrors.KindInvalidState, "no in-flight operation to abort")
	}

	if err := lifecycle.Abort(a.deps(), state.OpID, abortReason, time.Now()); err != nil {
		return err
	}
	a.out.Success("operation aborted")
	return nil
}
