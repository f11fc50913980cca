// Package planner turns a gating.ReadyContext into an ordered Plan of
// reversible steps. Planning is pure: it reads the
// snapshot carried by the ReadyContext and never touches the repository or
// the filesystem. The executor is the only component that applies a Plan.
package planner

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/lcgerke/lattice/internal/domain"
)

// StepKind tags which Step variant a Step carries.
type StepKind string

const (
	StepUpdateRefCas          StepKind = "update_ref_cas"
	StepDeleteRefCas          StepKind = "delete_ref_cas"
	StepWriteMetadataCas      StepKind = "write_metadata_cas"
	StepDeleteMetadataCas     StepKind = "delete_metadata_cas"
	StepRunGit                StepKind = "run_git"
	StepPotentialConflictPause StepKind = "potential_conflict_pause"
	StepCheckpoint            StepKind = "checkpoint"
	StepCheckout              StepKind = "checkout"
)

// Step is one tagged entry in a Plan's ordered step list. Only the fields
// relevant to Kind are populated; the executor switches on Kind to decide
// which to read.
type Step struct {
	Kind StepKind

	// UpdateRefCas / DeleteRefCas
	RefName      domain.Refname
	ExpectedOld  domain.ObjectID
	NewOid       domain.ObjectID
	Reason       string

	// WriteMetadataCas / DeleteMetadataCas
	Branch             domain.BranchName
	ExpectedOldRefOid  domain.ObjectID
	Metadata           *domain.BranchMetadata

	// RunGit
	Args            []string
	Description     string
	ExpectedEffects []domain.Refname

	// PotentialConflictPause
	PauseBranch    domain.BranchName
	GitOperation   string

	// Checkpoint
	CheckpointName string

	// Checkout
	CheckoutBranch domain.BranchName
	CheckoutReason string
}

// Plan is the planner's sole output: an op id, the command that produced
// it, an ordered, digest-stable step list, and the set of refs it touches.
type Plan struct {
	OpID        string
	Command     string
	Steps       []Step
	TouchedRefs []domain.Refname
}

// Digest returns a stable hash over the plan's serialized form. Two plans
// built from equal inputs must produce the same digest; step order is part
// of a plan's identity, so the digest is computed over the steps exactly as
// ordered, not sorted.
func (p *Plan) Digest() string {
	h := sha256.New()
	h.Write([]byte(p.Command))
	h.Write([]byte{0})
	for _, step := range p.Steps {
		writeStepDigest(h, step)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeStepDigest(h interface{ Write([]byte) (int, error) }, s Step) {
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	write(string(s.Kind), string(s.RefName), string(s.ExpectedOld), string(s.NewOid), s.Reason,
		string(s.Branch), string(s.ExpectedOldRefOid), s.Description,
		string(s.PauseBranch), s.GitOperation, s.CheckpointName,
		string(s.CheckoutBranch), s.CheckoutReason)
	for _, a := range s.Args {
		write(a)
	}
	for _, e := range s.ExpectedEffects {
		write(string(e))
	}
	if s.Metadata != nil {
		data, err := s.Metadata.Serialize()
		if err == nil {
			h.Write(data)
		}
	}
}

// NewStepCheckpoint builds a Checkpoint step.
func NewStepCheckpoint(name string) Step {
	return Step{Kind: StepCheckpoint, CheckpointName: name}
}

// NewStepRunGit builds a RunGit step.
func NewStepRunGit(description string, expectedEffects []domain.Refname, args ...string) Step {
	return Step{Kind: StepRunGit, Args: args, Description: description, ExpectedEffects: expectedEffects}
}

// NewStepPotentialConflictPause builds a PotentialConflictPause step.
func NewStepPotentialConflictPause(branch domain.BranchName, gitOperation string) Step {
	return Step{Kind: StepPotentialConflictPause, PauseBranch: branch, GitOperation: gitOperation}
}

// NewStepWriteMetadataCas builds a WriteMetadataCas step.
func NewStepWriteMetadataCas(branch domain.BranchName, expectedOldRefOid domain.ObjectID, metadata *domain.BranchMetadata) Step {
	return Step{Kind: StepWriteMetadataCas, Branch: branch, ExpectedOldRefOid: expectedOldRefOid, Metadata: metadata}
}

// NewStepDeleteMetadataCas builds a DeleteMetadataCas step.
func NewStepDeleteMetadataCas(branch domain.BranchName, expectedOldRefOid domain.ObjectID) Step {
	return Step{Kind: StepDeleteMetadataCas, Branch: branch, ExpectedOldRefOid: expectedOldRefOid}
}

// NewStepUpdateRefCas builds an UpdateRefCas step.
func NewStepUpdateRefCas(name domain.Refname, expectedOld, newOid domain.ObjectID, reason string) Step {
	return Step{Kind: StepUpdateRefCas, RefName: name, ExpectedOld: expectedOld, NewOid: newOid, Reason: reason}
}

// NewStepDeleteRefCas builds a DeleteRefCas step.
func NewStepDeleteRefCas(name domain.Refname, expectedOld domain.ObjectID, reason string) Step {
	return Step{Kind: StepDeleteRefCas, RefName: name, ExpectedOld: expectedOld, Reason: reason}
}

// NewStepCheckout builds a Checkout step.
func NewStepCheckout(branch domain.BranchName, reason string) Step {
	return Step{Kind: StepCheckout, CheckoutBranch: branch, CheckoutReason: reason}
}
