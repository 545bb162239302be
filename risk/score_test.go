package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreEmptySetHasNoScore(t *testing.T) {
	card, ok := Score(nil)
	assert.False(t, ok)
	assert.Nil(t, card)

	card, ok = Score([]string{})
	assert.False(t, ok)
	assert.Nil(t, card)
}

func TestScoreOrderInvariant(t *testing.T) {
	ids := []string{"CONTRACTS_VERIFIED", "IL_HIGH", "LIQ_LOW", "MCAP_SMALL", "COMPLEXITY_MID"}

	base, ok := Score(ids)
	require.True(t, ok)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), ids...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		card, ok := Score(shuffled)
		require.True(t, ok)
		assert.Equal(t, base.TotalRisk, card.TotalRisk)
		assert.Equal(t, base.SafetyScore, card.SafetyScore)
	}
}

func TestScoreClampsCategories(t *testing.T) {
	// IL_HIGH + LIQ_LOW + MCAP_MICRO sum to 2.15 in the asset category
	// but contribute at most the full category weight.
	card, ok := Score([]string{"IL_HIGH", "LIQ_LOW", "MCAP_MICRO"})
	require.True(t, ok)
	assert.Equal(t, 1.0, card.Categories[CategoryAsset])
	assert.InDelta(t, 0.35, card.TotalRisk, 1e-9)
	assert.InDelta(t, MaxScore*(1-0.35), card.SafetyScore, 1e-9)
}

func TestScoreIgnoresUnknownIDs(t *testing.T) {
	with, ok := Score([]string{"IL_HIGH", "NOT_A_RISK"})
	require.True(t, ok)
	without, ok := Score([]string{"IL_HIGH"})
	require.True(t, ok)
	assert.Equal(t, without.SafetyScore, with.SafetyScore)
}

func TestScorePerfectSelection(t *testing.T) {
	card, ok := Score([]string{"CONTRACTS_VERIFIED", "AUDIT", "COMPLEXITY_LOW", "IL_NONE", "MCAP_LARGE", "PLATFORM_ESTABLISHED"})
	require.True(t, ok)
	assert.Equal(t, 0.0, card.TotalRisk)
	assert.Equal(t, MaxScore, card.SafetyScore)
}

// maximalSelection drives every category's clamped sum to 1.
func maximalSelection() []string {
	return []string{
		"CONTRACTS_UNVERIFIED", "ADMIN_WITHOUT_TIMELOCK", // protocol >= 1
		"IL_HIGH", "LIQ_LOW", "MCAP_MICRO", // asset >= 1
		"PLATFORM_NEW", "PLATFORM_NO_AUDIT", // platform = 1
	}
}

func TestScoreZeroSafety(t *testing.T) {
	card, ok := Score(maximalSelection())
	require.True(t, ok)
	assert.InDelta(t, 1.0, card.TotalRisk, 1e-9)
	assert.Equal(t, 0.0, card.SafetyScore)
}
