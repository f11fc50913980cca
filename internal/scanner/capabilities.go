package scanner

// Capabilities are boolean proofs-of-readiness. Gating (internal/gating)
// compares a command's declared RequirementSet against
// these fields; every false value must have at least one matching Issue
// explaining its absence.
type Capabilities struct {
	RepoOpen                  bool
	TrunkKnown                bool
	NoLatticeOpInProgress     bool
	NoExternalGitOpInProgress bool
	MetadataReadable          bool
	GraphValid                bool
	WorkingDirectoryAvailable bool
	WorktreeStatusKnown       bool
	AuthAvailable             bool
	RemoteResolved            bool
	RepoAuthorized            bool
	FrozenPolicySatisfied     bool
}

// Has reports whether every capability named in required is true.
func (c Capabilities) Has(required ...*bool) bool {
	for _, r := range required {
		if !*r {
			return false
		}
	}
	return true
}

// Missing returns the names in required whose capability is false, for
// building a RepairBundle's missing list.
func (c Capabilities) Missing(required []string) []string {
	values := c.asMap()
	var missing []string
	for _, name := range required {
		if v, ok := values[name]; ok && !v {
			missing = append(missing, name)
		}
	}
	return missing
}

func (c Capabilities) asMap() map[string]bool {
	return map[string]bool{
		"RepoOpen":                  c.RepoOpen,
		"TrunkKnown":                c.TrunkKnown,
		"NoLatticeOpInProgress":     c.NoLatticeOpInProgress,
		"NoExternalGitOpInProgress": c.NoExternalGitOpInProgress,
		"MetadataReadable":          c.MetadataReadable,
		"GraphValid":                c.GraphValid,
		"WorkingDirectoryAvailable": c.WorkingDirectoryAvailable,
		"WorktreeStatusKnown":       c.WorktreeStatusKnown,
		"AuthAvailable":             c.AuthAvailable,
		"RemoteResolved":            c.RemoteResolved,
		"RepoAuthorized":            c.RepoAuthorized,
		"FrozenPolicySatisfied":     c.FrozenPolicySatisfied,
	}
}
