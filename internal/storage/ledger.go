package storage

import (
	"encoding/json"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
)

// EventKind enumerates the append-only ledger's event types.
type EventKind string

const (
	EventIntentRecorded     EventKind = "IntentRecorded"
	EventCommitted          EventKind = "Committed"
	EventAborted            EventKind = "Aborted"
	EventDivergenceObserved EventKind = "DivergenceObserved"
	EventDoctorProposed     EventKind = "DoctorProposed"
	EventDoctorApplied      EventKind = "DoctorApplied"
	EventUndoApplied        EventKind = "UndoApplied"
)

// Event is one ledger entry. Payload is kind-specific and left as a raw
// message so the ledger itself never needs to know every event shape.
type Event struct {
	Kind      EventKind       `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Ledger is the append-only commit chain at refs/lattice/event-log.
// Grounded on the metadata store's own shape (domain.CanonicalJSON blobs
// addressed by commits instead of refs directly), since the ledger adds
// one extra level of structure: a commit per entry so that `recent(n)`
// and `last_committed_fingerprint` can walk parent links.
type Ledger struct {
	repo *gitrepo.Repo
}

// NewLedger constructs a ledger bound to repo.
func NewLedger(repo *gitrepo.Repo) *Ledger {
	return &Ledger{repo: repo}
}

// Append builds a tree containing event.json, commits it with the current
// ledger tip (if any) as parent, and CAS-updates the ledger ref.
// Lock-free appends during a scan are best-effort: callers performing a
// DivergenceObserved append outside the executor's lock should ignore a
// CasFailed return rather than fail the scan.
func (l *Ledger) Append(kind EventKind, payload interface{}, now time.Time) (domain.ObjectID, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to marshal event payload", err)
	}
	event := Event{Kind: kind, Timestamp: now, Payload: rawPayload}
	eventData, err := domain.CanonicalJSON(event)
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to canonicalize event", err)
	}

	blobOid, err := l.repo.WriteBlob(eventData)
	if err != nil {
		return "", err
	}

	priorTip, hasPrior, err := l.repo.TryResolveRef(domain.LedgerRefname)
	if err != nil {
		return "", err
	}

	commitOid, err := l.writeLedgerCommit(blobOid, priorTip, hasPrior, string(kind), now)
	if err != nil {
		return "", err
	}

	expectedOld := domain.ZeroOID
	if hasPrior {
		expectedOld = priorTip
	}
	if err := l.repo.UpdateRefCAS(domain.LedgerRefname, commitOid, expectedOld, "append ledger event"); err != nil {
		return "", err
	}
	return commitOid, nil
}

func (l *Ledger) writeLedgerCommit(blobOid domain.ObjectID, parentOid domain.ObjectID, hasParent bool, message string, now time.Time) (domain.ObjectID, error) {
	tree := &object.Tree{
		Entries: []object.TreeEntry{
			{Name: "event.json", Mode: filemode.Regular, Hash: plumbing.NewHash(string(blobOid))},
		},
	}
	treeOid, err := l.repo.WriteTree(tree)
	if err != nil {
		return "", err
	}

	sig := object.Signature{Name: "lattice", Email: "lattice@localhost", When: now}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     plumbing.NewHash(string(treeOid)),
		ParentHashes: nil,
	}
	if hasParent {
		commit.ParentHashes = []plumbing.Hash{plumbing.NewHash(string(parentOid))}
	}
	return l.repo.WriteCommit(commit)
}

// Latest returns the most recent ledger entry, or ok=false if the ledger
// is empty (no prior mutating operation has ever run).
func (l *Ledger) Latest() (domain.ObjectID, Event, bool, error) {
	tip, exists, err := l.repo.TryResolveRef(domain.LedgerRefname)
	if err != nil {
		return "", Event{}, false, err
	}
	if !exists {
		return "", Event{}, false, nil
	}
	event, err := l.readEvent(tip)
	if err != nil {
		return "", Event{}, false, err
	}
	return tip, event, true, nil
}

// Recent returns up to n most recent ledger entries, newest first.
func (l *Ledger) Recent(n int) ([]Event, error) {
	tip, exists, err := l.repo.TryResolveRef(domain.LedgerRefname)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	var out []Event
	cur := tip
	for len(out) < n {
		event, err := l.readEvent(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
		parents, err := l.repo.CommitParents(cur)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			break
		}
		cur = parents[0]
	}
	return out, nil
}

// CommittedSnapshot is the subset of a Committed event's payload the
// scanner's divergence detection needs: the fingerprint it certified and
// the exact ref/oid pairs it was computed over, so a later scan can name
// precisely which refs changed since.
type CommittedSnapshot struct {
	FingerprintAfter string          `json:"fingerprint_after"`
	RefOids          []domain.RefOid `json:"ref_oids"`
}

// LastCommittedFingerprint walks back from the ledger tip until the most
// recent Committed event and returns its recorded fingerprint and ref
// set, used by the scanner's divergence detection.
func (l *Ledger) LastCommittedFingerprint() (CommittedSnapshot, bool, error) {
	tip, exists, err := l.repo.TryResolveRef(domain.LedgerRefname)
	if err != nil {
		return CommittedSnapshot{}, false, err
	}
	if !exists {
		return CommittedSnapshot{}, false, nil
	}
	cur := tip
	for {
		event, err := l.readEvent(cur)
		if err != nil {
			return CommittedSnapshot{}, false, err
		}
		if event.Kind == EventCommitted {
			var payload CommittedSnapshot
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return CommittedSnapshot{}, false, latticeerrors.Wrap(latticeerrors.KindStorageIO, "malformed Committed event payload", err)
			}
			return payload, true, nil
		}
		parents, err := l.repo.CommitParents(cur)
		if err != nil {
			return CommittedSnapshot{}, false, err
		}
		if len(parents) == 0 {
			return CommittedSnapshot{}, false, nil
		}
		cur = parents[0]
	}
}

func (l *Ledger) readEvent(commitOid domain.ObjectID) (Event, error) {
	blobOid, err := l.repo.TreeEntryOid(commitOid, "event.json")
	if err != nil {
		return Event{}, err
	}
	data, err := l.repo.ReadBlob(blobOid)
	if err != nil {
		return Event{}, err
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, latticeerrors.Wrap(latticeerrors.KindStorageIO, "malformed ledger event", err)
	}
	return event, nil
}
