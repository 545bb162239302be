package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clmops/clmctl/model"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(t.TempDir())
	require.NoError(t, err)
	return catalog
}

func record(id, addr string) model.VaultRecord {
	return model.VaultRecord{
		ID:                  id,
		Type:                model.TypeCowcentrated,
		EarnContractAddress: addr,
		Status:              model.StatusActive,
		Network:             "arbitrum",
		CreatedAt:           1716379000,
	}
}

func TestAddAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := newTestCatalog(t).Registry("arbitrum")

	rec := record("clm-a", "0x0000000000000000000000000000000000000A01")
	rec.Risks = []string{"CONTRACTS_VERIFIED", "IL_HIGH"}
	require.NoError(t, reg.Add(ctx, rec))

	records, err := reg.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestAddRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)
	reg := catalog.Registry("arbitrum")

	require.NoError(t, reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))

	before, err := os.ReadFile(filepath.Join(catalog.dir, "arbitrum.json"))
	require.NoError(t, err)

	err = reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A02"))
	var dup *DuplicateRecordError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "id", dup.Field)

	after, err := os.ReadFile(filepath.Join(catalog.dir, "arbitrum.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed add must leave the file unchanged")
}

func TestAddRejectsDuplicateAddress(t *testing.T) {
	ctx := context.Background()
	reg := newTestCatalog(t).Registry("arbitrum")

	require.NoError(t, reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))

	// Same address in a different case is still a duplicate.
	err := reg.Add(ctx, record("clm-b", "0x0000000000000000000000000000000000000a01"))
	var dup *DuplicateRecordError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "earnContractAddress", dup.Field)
}

func TestEditByIDNotFound(t *testing.T) {
	ctx := context.Background()
	reg := newTestCatalog(t).Registry("arbitrum")
	require.NoError(t, reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))

	err := reg.EditByID(ctx, "clm-missing", func(r *model.VaultRecord) error { return nil })
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "clm-missing", nf.ID)
}

func TestEditByIDRewritesRisks(t *testing.T) {
	ctx := context.Background()
	reg := newTestCatalog(t).Registry("arbitrum")
	require.NoError(t, reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))

	require.NoError(t, reg.EditByID(ctx, "clm-a", func(r *model.VaultRecord) error {
		r.Risks = []string{"CONTRACTS_VERIFIED"}
		return nil
	}))

	records, err := reg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CONTRACTS_VERIFIED"}, records[0].Risks)
}

func TestConcurrentEditsSameChainBothApply(t *testing.T) {
	ctx := context.Background()
	reg := newTestCatalog(t).Registry("arbitrum")

	firstInside := make(chan struct{})
	firstRelease := make(chan struct{})
	firstDone := make(chan error, 1)
	secondDone := make(chan error, 1)

	go func() {
		_, err := reg.Edit(ctx, func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error) {
			close(firstInside)
			<-firstRelease
			return append(records, record("clm-a", "0x0000000000000000000000000000000000000A01")), nil
		})
		firstDone <- err
	}()

	<-firstInside
	go func() {
		_, err := reg.Edit(ctx, func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error) {
			return append(records, record("clm-b", "0x0000000000000000000000000000000000000B01")), nil
		})
		secondDone <- err
	}()

	// The second edit must queue behind the first.
	select {
	case <-secondDone:
		t.Fatal("second edit completed while first held the chain lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(firstRelease)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	records, err := reg.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2, "neither edit may be lost")
	assert.Equal(t, "clm-a", records[0].ID)
	assert.Equal(t, "clm-b", records[1].ID)
}

func TestConcurrentEditsDifferentChainsIndependent(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = catalog.Registry("arbitrum").Edit(ctx, func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error) {
			close(blocked)
			<-release
			return records, nil
		})
	}()
	<-blocked
	defer close(release)

	done := make(chan error, 1)
	go func() {
		err := catalog.Registry("base").Add(ctx, record("clm-c", "0x0000000000000000000000000000000000000C01"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("edit on a different chain blocked behind an unrelated lock")
	}
}

func TestLoadIsMemoizedUntilEdit(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)
	reg := catalog.Registry("arbitrum")
	require.NoError(t, reg.Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))

	_, err := reg.Load(ctx)
	require.NoError(t, err)

	// Clobber the file behind the store's back; Load must keep serving
	// the cached view.
	require.NoError(t, os.WriteFile(filepath.Join(catalog.dir, "arbitrum.json"), []byte("[]"), 0o644))
	records, err := reg.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// The edit path reloads from disk, so it sees the clobbered state
	// and refreshes the cache.
	require.NoError(t, reg.Add(ctx, record("clm-b", "0x0000000000000000000000000000000000000B01")))
	records, err = reg.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "clm-b", records[0].ID)
}

func TestCatalogChains(t *testing.T) {
	ctx := context.Background()
	catalog := newTestCatalog(t)
	require.NoError(t, catalog.Registry("base").Add(ctx, record("clm-a", "0x0000000000000000000000000000000000000A01")))
	require.NoError(t, catalog.Registry("arbitrum").Add(ctx, record("clm-b", "0x0000000000000000000000000000000000000B01")))

	chains, err := catalog.Chains()
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrum", "base"}, chains)
}

func TestCatalogReturnsSameRegistry(t *testing.T) {
	catalog := newTestCatalog(t)
	assert.Same(t, catalog.Registry("arbitrum"), catalog.Registry("arbitrum"))
}
