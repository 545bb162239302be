package risk

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// DefaultRequired is the id set every registry record must carry.
var DefaultRequired = []string{"CONTRACTS_VERIFIED"}

// Validate checks a raw risk id selection against the taxonomy. It
// rejects unrecognized ids, more than one selection from a
// mutual-exclusion group, missing required ids, and selections whose
// safety score is exactly zero (a maximal-risk configuration is assumed
// to be an input mistake, not a deliberate choice). All failures are
// reported, aggregated into a single error.
func Validate(ids []string, required []string) error {
	var err error

	selected := map[string]bool{}
	groupPicks := map[string][]string{}
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("unknown risk id %q", id))
			continue
		}
		if selected[id] {
			err = multierr.Append(err, fmt.Errorf("risk %q selected more than once", id))
			continue
		}
		selected[id] = true
		if r.Group != "" {
			groupPicks[r.Group] = append(groupPicks[r.Group], id)
		}
	}

	groups := make([]string, 0, len(groupPicks))
	for g := range groupPicks {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		if len(groupPicks[g]) > 1 {
			err = multierr.Append(err, fmt.Errorf("risks %s are mutually exclusive (group %q allows at most one of %s)",
				strings.Join(groupPicks[g], ", "), g, strings.Join(GroupMembers(g), ", ")))
		}
	}

	for _, req := range required {
		if !selected[req] {
			err = multierr.Append(err, fmt.Errorf("required risk %q is missing", req))
		}
	}

	if err != nil {
		return err
	}

	if card, ok := Score(ids); ok && card.SafetyScore == 0 {
		return fmt.Errorf("selection has a safety score of 0; a maximal-risk selection is not accepted")
	}
	return nil
}
