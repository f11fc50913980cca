package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// OpPhase is the executor's operation state machine position.
type OpPhase string

const (
	PhasePlanning   OpPhase = "planning"
	PhaseExecuting  OpPhase = "executing"
	PhasePaused     OpPhase = "paused"
	PhaseCommitted  OpPhase = "committed"
	PhaseRolledBack OpPhase = "rolled_back"
)

// OpState is the on-disk marker declaring a structural operation is in
// flight, stored at <shared>/lattice/op-state.json. Its mere presence,
// with Phase outside {committed, rolled_back}, blocks every mutating
// command except continue/abort from the originating worktree.
type OpState struct {
	OpID          string          `json:"op_id"`
	Command       string          `json:"command"`
	Phase         OpPhase         `json:"phase"`
	PlanDigest    string          `json:"plan_digest"`
	OriginGitDir  string          `json:"origin_git_dir"`
	OriginWorkDir string          `json:"origin_work_dir"`
	NextStepIndex int             `json:"next_step_index,omitempty"`
	PausedBranch  domain.BranchName `json:"paused_branch,omitempty"`
	GitState      string          `json:"git_state,omitempty"`
}

func opStatePath(commonDir string) string {
	return filepath.Join(SharedDir(commonDir), "op-state.json")
}

// ReadOpState returns the current op-state, or ok=false if no operation
// is in flight.
func ReadOpState(commonDir string) (OpState, bool, error) {
	data, err := os.ReadFile(opStatePath(commonDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OpState{}, false, nil
		}
		return OpState{}, false, latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to read op-state", err)
	}
	var state OpState
	if err := json.Unmarshal(data, &state); err != nil {
		return OpState{}, false, latticeerrors.Wrap(latticeerrors.KindStorageIO, "malformed op-state file", err)
	}
	return state, true, nil
}

// WriteOpState persists state atomically and fsyncs.
func WriteOpState(commonDir string, state OpState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to marshal op-state", err)
	}
	return writeFileAtomic(opStatePath(commonDir), data, 0o644)
}

// ClearOpState removes the op-state file on commit or rollback.
func ClearOpState(commonDir string) error {
	err := os.Remove(opStatePath(commonDir))
	if err != nil && !os.IsNotExist(err) {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to remove op-state", err)
	}
	return nil
}

// IsInFlight reports whether an operation is active (not committed or
// rolled back), the condition that blocks all but continue/abort.
func (s OpState) IsInFlight() bool {
	return s.Phase != PhaseCommitted && s.Phase != PhaseRolledBack
}
