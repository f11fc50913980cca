package scanner

import "github.com/lcgerke/lattice/internal/domain"

// DivergenceInfo describes a detected mismatch between the current
// fingerprint and the fingerprint recorded by the last Committed ledger
// event.
type DivergenceInfo struct {
	Prior       string           `json:"prior"`
	Current     string           `json:"current"`
	ChangedRefs []domain.Refname `json:"changed_refs"`
}

// diffRefOids returns the refnames whose oid differs (or is newly
// present/absent) between a prior and current ref/oid set.
func diffRefOids(prior, current []domain.RefOid) []domain.Refname {
	priorByRef := make(map[domain.Refname]domain.ObjectID, len(prior))
	for _, e := range prior {
		priorByRef[e.Ref] = e.Oid
	}
	currentByRef := make(map[domain.Refname]domain.ObjectID, len(current))
	for _, e := range current {
		currentByRef[e.Ref] = e.Oid
	}

	var changed []domain.Refname
	for ref, oid := range currentByRef {
		if priorOid, ok := priorByRef[ref]; !ok || priorOid != oid {
			changed = append(changed, ref)
		}
	}
	for ref := range priorByRef {
		if _, ok := currentByRef[ref]; !ok {
			changed = append(changed, ref)
		}
	}
	return changed
}
