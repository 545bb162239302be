package risk

// Scorecard summarizes the risk of a selected id set.
type Scorecard struct {
	// TotalRisk is in [0,1]: the weighted sum of clamped per-category
	// risk contributions.
	TotalRisk float64
	// SafetyScore is MaxScore * (1 - TotalRisk). Higher is safer.
	SafetyScore float64
	// Categories holds the clamped, unweighted contribution per category.
	Categories map[Category]float64
}

// Score computes the scorecard for a set of risk ids. Unrecognized ids
// contribute nothing. The result is invariant to the input ordering.
// An empty selection has no score: ok is false.
func Score(ids []string) (*Scorecard, bool) {
	if len(ids) == 0 {
		return nil, false
	}

	sums := map[Category]float64{}
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		sums[r.Category] += r.Score
	}

	card := &Scorecard{Categories: map[Category]float64{}}
	// Fixed category order keeps float accumulation deterministic.
	for _, cat := range []Category{CategoryProtocol, CategoryAsset, CategoryPlatform} {
		sum := sums[cat]
		if sum > 1 {
			sum = 1
		}
		card.Categories[cat] = sum
		card.TotalRisk += categoryWeights[cat] * sum
	}
	if card.TotalRisk > 1 {
		card.TotalRisk = 1
	}
	card.SafetyScore = MaxScore * (1 - card.TotalRisk)
	// Snap float dust so that a maximal-risk selection scores exactly 0.
	if card.SafetyScore < 1e-9 {
		card.SafetyScore = 0
	}
	return card, true
}
