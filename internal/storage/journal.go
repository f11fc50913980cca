package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// StepKind mirrors the planner's step tags, recorded in the journal so
// rollback knows what each entry reverses.
type StepKind string

const (
	StepUpdateRefCas          StepKind = "UpdateRefCas"
	StepDeleteRefCas          StepKind = "DeleteRefCas"
	StepWriteMetadataCas      StepKind = "WriteMetadataCas"
	StepDeleteMetadataCas     StepKind = "DeleteMetadataCas"
	StepRunGit                StepKind = "RunGit"
	StepPotentialConflictPause StepKind = "PotentialConflictPause"
	StepCheckpoint            StepKind = "Checkpoint"
	StepCheckout              StepKind = "Checkout"
)

// JournalEntry records one applied step with enough before/after state to
// reverse it.
type JournalEntry struct {
	Index  int             `json:"index"`
	Kind   StepKind        `json:"kind"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// Journal is the durable, step-by-step record of one operation, persisted
// at <shared>/lattice/ops/<op_id>.json.
type Journal struct {
	OpID    string         `json:"op_id"`
	Entries []JournalEntry `json:"entries"`
}

func journalPath(commonDir, opID string) string {
	return filepath.Join(SharedDir(commonDir), "ops", opID+".json")
}

// LoadJournal reads the journal for opID, returning an empty Journal if
// none exists yet (the first step of a fresh operation).
func LoadJournal(commonDir, opID string) (Journal, error) {
	data, err := os.ReadFile(journalPath(commonDir, opID))
	if err != nil {
		if os.IsNotExist(err) {
			return Journal{OpID: opID}, nil
		}
		return Journal{}, latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to read journal", err)
	}
	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return Journal{}, latticeerrors.Wrap(latticeerrors.KindStorageIO, "malformed journal file", err)
	}
	return j, nil
}

// Append adds entry to the journal and persists it atomically with an
// fsync before the next step executes.
func (j *Journal) Append(commonDir string, entry JournalEntry) error {
	j.Entries = append(j.Entries, entry)
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to marshal journal", err)
	}
	return writeFileAtomic(journalPath(commonDir, j.OpID), data, 0o644)
}

// EntriesFrom returns journal entries from index onward (inclusive),
// used by continue to know which steps are already durable.
func (j Journal) EntriesFrom(index int) []JournalEntry {
	var out []JournalEntry
	for _, e := range j.Entries {
		if e.Index >= index {
			out = append(out, e)
		}
	}
	return out
}

// DeleteJournal removes a completed operation's journal file.
func DeleteJournal(commonDir, opID string) error {
	err := os.Remove(journalPath(commonDir, opID))
	if err != nil && !os.IsNotExist(err) {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to remove journal", err)
	}
	return nil
}
