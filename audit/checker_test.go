package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clmops/clmctl/model"
	"github.com/clmops/clmctl/storage"
)

// scriptPrompter replays canned answers and records the prompts seen.
type scriptPrompter struct {
	t        *testing.T
	selects  []int
	confirms []bool

	seenSelects  []string
	seenConfirms []string
}

func (p *scriptPrompter) Select(label string, options []string) (int, error) {
	p.seenSelects = append(p.seenSelects, label)
	if len(p.selects) == 0 {
		p.t.Fatalf("unexpected select %q with options %v", label, options)
	}
	idx := p.selects[0]
	p.selects = p.selects[1:]
	if idx >= len(options) {
		p.t.Fatalf("scripted index %d out of range for %q options %v", idx, label, options)
	}
	return idx, nil
}

func (p *scriptPrompter) Confirm(question string, def bool) (bool, error) {
	p.seenConfirms = append(p.seenConfirms, question)
	if len(p.confirms) == 0 {
		p.t.Fatalf("unexpected confirm %q", question)
	}
	ok := p.confirms[0]
	p.confirms = p.confirms[1:]
	return ok, nil
}

const (
	clmAddr   = "0x0000000000000000000000000000000000000A01"
	poolAddr  = "0x0000000000000000000000000000000000000B01"
	vaultAddr = "0x0000000000000000000000000000000000000C01"
)

func clmTriple(clmRisks, poolRisks, vaultRisks []string) []model.VaultRecord {
	return []model.VaultRecord{
		{
			ID: "clm-a", Type: model.TypeCowcentrated, Network: "arbitrum",
			EarnContractAddress: clmAddr, Status: model.StatusActive, Risks: clmRisks,
		},
		{
			ID: "clm-a-rp", Type: model.TypeGov, Network: "arbitrum",
			TokenAddress: clmAddr, EarnContractAddress: poolAddr, Status: model.StatusActive, Risks: poolRisks,
		},
		{
			ID: "clm-a-vault", Type: model.TypeStandard, Network: "arbitrum",
			TokenAddress: clmAddr, EarnContractAddress: vaultAddr, Status: model.StatusActive, Risks: vaultRisks,
		},
	}
}

func TestCheckAllConsistentTripleIsQuiet(t *testing.T) {
	checker := NewChecker(nil, nil)
	// Ordering differences are not a mismatch.
	records := clmTriple(
		[]string{"CONTRACTS_VERIFIED", "LIQ_HIGH"},
		[]string{"LIQ_HIGH", "CONTRACTS_VERIFIED"},
		[]string{"CONTRACTS_VERIFIED", "LIQ_HIGH"},
	)
	assert.Empty(t, checker.CheckAll(records))
}

func TestCheckAllBuckets(t *testing.T) {
	checker := NewChecker(nil, nil)
	records := clmTriple(
		[]string{"CONTRACTS_VERIFIED", "LIQ_HIGH"},
		nil,                    // missing
		[]string{"NOT_A_RISK"}, // invalid
	)
	records = append(records, model.VaultRecord{
		ID: "clm-a-rp2", Type: model.TypeGov, Network: "arbitrum",
		TokenAddress: clmAddr, EarnContractAddress: "0x0000000000000000000000000000000000000D01",
		Status: model.StatusActive, Risks: []string{"CONTRACTS_VERIFIED", "IL_HIGH"}, // divergent
	})

	mismatches := checker.CheckAll(records)
	require.Len(t, mismatches, 1)
	m := mismatches[0]
	assert.Equal(t, "clm-a", m.CLM.ID)
	require.Len(t, m.Sources, 3)

	buckets := map[string]Bucket{}
	for _, src := range m.Sources {
		buckets[src.Record.ID] = src.Bucket
	}
	assert.Equal(t, BucketMissing, buckets["clm-a-rp"])
	assert.Equal(t, BucketInvalid, buckets["clm-a-vault"])
	assert.Equal(t, BucketDivergent, buckets["clm-a-rp2"])
}

func TestCheckAllBothUnsetIsQuiet(t *testing.T) {
	checker := NewChecker(nil, nil)
	// The CLM has no risks recorded either: the empty paired lists are
	// identical to the CLM's, not missing.
	assert.Empty(t, checker.CheckAll(clmTriple(nil, nil, nil)))
}

func TestCheckAllIgnoresUnrelatedRecords(t *testing.T) {
	checker := NewChecker(nil, nil)
	records := []model.VaultRecord{
		{
			ID: "clm-a", Type: model.TypeCowcentrated, Network: "arbitrum",
			EarnContractAddress: clmAddr, Risks: []string{"CONTRACTS_VERIFIED"},
		},
		{
			// Same token address but a different chain: not paired.
			ID: "clm-b-rp", Type: model.TypeGov, Network: "base",
			TokenAddress: clmAddr, EarnContractAddress: poolAddr,
		},
	}
	assert.Empty(t, checker.CheckAll(records))
}

func newSeededCatalog(t *testing.T, records []model.VaultRecord) *storage.Catalog {
	t.Helper()
	catalog, err := storage.NewCatalog(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	for _, rec := range records {
		require.NoError(t, catalog.Registry(rec.Network).Add(ctx, rec))
	}
	return catalog
}

func TestReconcileAutoFixMissing(t *testing.T) {
	ctx := context.Background()
	clmRisks := []string{"CONTRACTS_VERIFIED", "LIQ_HIGH"}
	catalog := newSeededCatalog(t, clmTriple(clmRisks, nil, clmRisks))

	prompter := &scriptPrompter{
		t:        t,
		selects:  []int{0}, // auto-fix missing is the first offered action
		confirms: []bool{true},
	}
	checker := NewChecker(catalog, prompter)

	records, err := catalog.Registry("arbitrum").Load(ctx)
	require.NoError(t, err)
	mismatches := checker.CheckAll(records)
	require.Len(t, mismatches, 1)
	require.Equal(t, BucketMissing, mismatches[0].Sources[0].Bucket)

	outcome, err := checker.Reconcile(ctx, mismatches[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeBack, outcome)

	// The repair is persisted through the store.
	records, err = catalog.Registry("arbitrum").Load(ctx)
	require.NoError(t, err)
	for _, rec := range records {
		if rec.ID == "clm-a-rp" {
			assert.Equal(t, clmRisks, rec.Risks)
		}
	}
	assert.Empty(t, checker.CheckAll(records), "auto-fix must clear the mismatch")
}

func TestReconcileAutoFixNotOfferedForInvalidCLM(t *testing.T) {
	ctx := context.Background()
	// The CLM's own set is invalid (missing required id): copying it
	// around must not be offered; the first option is the manual walk.
	catalog := newSeededCatalog(t, clmTriple([]string{"LIQ_HIGH"}, nil, []string{"LIQ_HIGH"}))

	prompter := &scriptPrompter{t: t, selects: []int{1}} // "Back"
	checker := NewChecker(catalog, prompter)

	records, err := catalog.Registry("arbitrum").Load(ctx)
	require.NoError(t, err)
	mismatches := checker.CheckAll(records)
	require.Len(t, mismatches, 1)

	outcome, err := checker.Reconcile(ctx, mismatches[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeBack, outcome)
}

func TestReconcileExit(t *testing.T) {
	ctx := context.Background()
	catalog := newSeededCatalog(t, clmTriple([]string{"CONTRACTS_VERIFIED"}, nil, []string{"CONTRACTS_VERIFIED"}))

	prompter := &scriptPrompter{t: t, selects: []int{3}} // missing-fix, manual, back, exit
	checker := NewChecker(catalog, prompter)

	records, err := catalog.Registry("arbitrum").Load(ctx)
	require.NoError(t, err)
	mismatches := checker.CheckAll(records)
	require.Len(t, mismatches, 1)

	outcome, err := checker.Reconcile(ctx, mismatches[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeExit, outcome)
}

func TestRunRepairsUntilConsistent(t *testing.T) {
	ctx := context.Background()
	clmRisks := []string{"CONTRACTS_VERIFIED", "LIQ_HIGH"}
	catalog := newSeededCatalog(t, clmTriple(clmRisks, nil, clmRisks))

	prompter := &scriptPrompter{
		t:        t,
		selects:  []int{0, 0}, // pick the only group, then auto-fix missing
		confirms: []bool{true},
	}
	checker := NewChecker(catalog, prompter)

	require.NoError(t, checker.Run(ctx))

	records, err := catalog.Registry("arbitrum").Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, checker.CheckAll(records))
	assert.Empty(t, prompter.selects, "every scripted answer must be consumed")
}
