// Package risk holds the vault risk taxonomy and the scoring and
// validation rules applied to the risk id lists carried on registry
// records. All functions are pure.
package risk

import "sort"

// Category groups risks for scoring. Each category carries a weight;
// the weights sum to 1.
type Category string

const (
	CategoryProtocol Category = "protocol"
	CategoryAsset    Category = "asset"
	CategoryPlatform Category = "platform"
)

var categoryWeights = map[Category]float64{
	CategoryProtocol: 0.25,
	CategoryAsset:    0.35,
	CategoryPlatform: 0.40,
}

// MaxScore is the best attainable safety score.
const MaxScore = 10.0

// Risk is one entry of the taxonomy. Score is the risk's contribution
// within its category before clamping. Group, when non-empty, names a
// mutual-exclusion group: at most one member of a group may be selected.
type Risk struct {
	ID       string
	Category Category
	Score    float64
	Group    string
	Title    string
}

var taxonomy = []Risk{
	// protocol
	{ID: "CONTRACTS_VERIFIED", Category: CategoryProtocol, Score: 0, Group: "verification", Title: "All contracts are verified"},
	{ID: "CONTRACTS_UNVERIFIED", Category: CategoryProtocol, Score: 1, Group: "verification", Title: "Some contracts are not verified"},
	{ID: "ADMIN_WITH_TIMELOCK", Category: CategoryProtocol, Score: 0.15, Group: "admin", Title: "Admin functions behind a timelock"},
	{ID: "ADMIN_WITHOUT_TIMELOCK", Category: CategoryProtocol, Score: 0.7, Group: "admin", Title: "Admin functions without a timelock"},
	{ID: "AUDIT", Category: CategoryProtocol, Score: 0, Group: "audit", Title: "Audited strategy"},
	{ID: "NO_AUDIT", Category: CategoryProtocol, Score: 0.45, Group: "audit", Title: "Unaudited strategy"},
	{ID: "COMPLEXITY_LOW", Category: CategoryProtocol, Score: 0, Group: "complexity", Title: "Low strategy complexity"},
	{ID: "COMPLEXITY_MID", Category: CategoryProtocol, Score: 0.3, Group: "complexity", Title: "Medium strategy complexity"},
	{ID: "COMPLEXITY_HIGH", Category: CategoryProtocol, Score: 0.7, Group: "complexity", Title: "High strategy complexity"},
	{ID: "BATTLE_TESTED", Category: CategoryProtocol, Score: 0, Group: "testedness", Title: "Battle tested strategy"},
	{ID: "NEW_STRAT", Category: CategoryProtocol, Score: 0.3, Group: "testedness", Title: "Recently deployed strategy"},
	{ID: "EXPERIMENTAL_STRAT", Category: CategoryProtocol, Score: 0.7, Group: "testedness", Title: "Experimental strategy"},

	// asset
	{ID: "IL_NONE", Category: CategoryAsset, Score: 0, Group: "il", Title: "No impermanent loss"},
	{ID: "IL_LOW", Category: CategoryAsset, Score: 0.25, Group: "il", Title: "Low impermanent loss"},
	{ID: "IL_HIGH", Category: CategoryAsset, Score: 0.75, Group: "il", Title: "High impermanent loss"},
	{ID: "LIQ_HIGH", Category: CategoryAsset, Score: 0, Group: "liquidity", Title: "High trading liquidity"},
	{ID: "LIQ_LOW", Category: CategoryAsset, Score: 0.6, Group: "liquidity", Title: "Low trading liquidity"},
	{ID: "MCAP_LARGE", Category: CategoryAsset, Score: 0, Group: "mcap", Title: "High market cap asset"},
	{ID: "MCAP_MEDIUM", Category: CategoryAsset, Score: 0.2, Group: "mcap", Title: "Medium market cap asset"},
	{ID: "MCAP_SMALL", Category: CategoryAsset, Score: 0.5, Group: "mcap", Title: "Small market cap asset"},
	{ID: "MCAP_MICRO", Category: CategoryAsset, Score: 0.8, Group: "mcap", Title: "Micro market cap asset"},

	// platform
	{ID: "PLATFORM_ESTABLISHED", Category: CategoryPlatform, Score: 0, Group: "platform-maturity", Title: "Established underlying platform"},
	{ID: "PLATFORM_NEW", Category: CategoryPlatform, Score: 0.5, Group: "platform-maturity", Title: "Recently launched underlying platform"},
	{ID: "PLATFORM_AUDITED", Category: CategoryPlatform, Score: 0, Group: "platform-audit", Title: "Audited underlying platform"},
	{ID: "PLATFORM_NO_AUDIT", Category: CategoryPlatform, Score: 0.5, Group: "platform-audit", Title: "Unaudited underlying platform"},
	{ID: "PLATFORM_TVL_HIGH", Category: CategoryPlatform, Score: 0, Group: "platform-tvl", Title: "High platform TVL"},
	{ID: "PLATFORM_TVL_LOW", Category: CategoryPlatform, Score: 0.5, Group: "platform-tvl", Title: "Low platform TVL"},
}

var (
	byID     = map[string]Risk{}
	byGroup  = map[string][]string{}
	orderIdx = map[string]int{}
)

func init() {
	for i, r := range taxonomy {
		byID[r.ID] = r
		orderIdx[r.ID] = i
		if r.Group != "" {
			byGroup[r.Group] = append(byGroup[r.Group], r.ID)
		}
	}
}

// Lookup returns the taxonomy entry for id.
func Lookup(id string) (Risk, bool) {
	r, ok := byID[id]
	return r, ok
}

// All returns every taxonomy entry in declaration order.
func All() []Risk {
	out := make([]Risk, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// GroupMembers returns the ids sharing a mutual-exclusion group, in
// declaration order.
func GroupMembers(group string) []string {
	out := make([]string, len(byGroup[group]))
	copy(out, byGroup[group])
	return out
}

// Set is the normalized view of a raw risk id list.
type Set struct {
	// Valid is true when every id is recognized and no mutual-exclusion
	// group has more than one member selected.
	Valid bool
	// ValidIDs is the recognized subset of AllIDs, sorted.
	ValidIDs []string
	// AllIDs is the raw input list.
	AllIDs []string
}

// Normalize classifies a raw id list into a Set.
func Normalize(ids []string) Set {
	s := Set{AllIDs: ids, Valid: true}
	seenGroups := map[string]string{}
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			s.Valid = false
			continue
		}
		s.ValidIDs = append(s.ValidIDs, id)
		if r.Group != "" {
			if _, dup := seenGroups[r.Group]; dup {
				s.Valid = false
			}
			seenGroups[r.Group] = id
		}
	}
	sort.Strings(s.ValidIDs)
	return s
}

// Equal reports whether two normalized sets select the same valid ids.
func (s Set) Equal(o Set) bool {
	if len(s.ValidIDs) != len(o.ValidIDs) {
		return false
	}
	for i := range s.ValidIDs {
		if s.ValidIDs[i] != o.ValidIDs[i] {
			return false
		}
	}
	return true
}
