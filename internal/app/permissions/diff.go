package permissions

import "sort"

// ChangeSet is the minimal batch of override mutations needed to move
// from one override map to another. Each slice maps to one idempotent
// backend action (grant, revoke, reset); empty slices mean no call is
// needed for that action.
type ChangeSet struct {
	ToGrant  []string
	ToRevoke []string
	ToReset  []string
}

// Empty reports whether the change set requires no writes.
func (c ChangeSet) Empty() bool {
	return len(c.ToGrant) == 0 && len(c.ToRevoke) == 0 && len(c.ToReset) == 0
}

// Diff computes the minimal change set between two override maps.
// Permissions whose state is unchanged produce no entry, so applying
// a state that is already stored is a no-op. In particular, resetting
// a permission that has no stored override contributes nothing to
// ToReset. Output slices are sorted for deterministic batches.
func Diff(prev, next map[string]OverrideState) ChangeSet {
	var cs ChangeSet

	for perm, state := range next {
		if state == prev[perm] {
			continue
		}
		switch state {
		case Grant:
			cs.ToGrant = append(cs.ToGrant, perm)
		case Revoke:
			cs.ToRevoke = append(cs.ToRevoke, perm)
		case Inherit:
			// state differs from prev, so something was stored before.
			cs.ToReset = append(cs.ToReset, perm)
		}
	}

	// Overrides dropped entirely from next also reset.
	for perm, state := range prev {
		if state == Inherit {
			continue
		}
		if _, ok := next[perm]; !ok {
			cs.ToReset = append(cs.ToReset, perm)
		}
	}

	sort.Strings(cs.ToGrant)
	sort.Strings(cs.ToRevoke)
	sort.Strings(cs.ToReset)
	return cs
}
