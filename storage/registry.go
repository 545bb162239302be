// Package storage persists vault records as per-chain JSON registry
// files and serializes concurrent in-process edits per chain. It is the
// system of record: records are created and mutated only through it,
// and never deleted.
package storage

import (
	"context"
	"os"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/model"
)

var log = logging.Logger("clmctl/storage")

// EditFunc transforms the full record list of one chain. It may perform
// I/O of its own; the chain's lock is held for the duration.
type EditFunc func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error)

// Registry is the handle to one chain's registry file. Obtain one from
// a Catalog; the catalog guarantees a single Registry per chain so the
// lock and cache are shared by all users in the process.
type Registry struct {
	chainID string
	path    string
	lock    *chainLock

	cacheMu sync.Mutex
	cache   []model.VaultRecord
	cached  bool
}

// Load returns the chain's records. The parsed file is memoized for the
// process lifetime; only Edit refreshes it. A missing file is an empty
// registry, not an error.
func (r *Registry) Load(ctx context.Context) ([]model.VaultRecord, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cached {
		return copyRecords(r.cache), nil
	}
	records, err := r.read()
	if err != nil {
		return nil, err
	}
	r.cache = records
	r.cached = true
	return copyRecords(records), nil
}

// Edit applies fn to the chain's records transactionally with respect
// to other in-process edits: the chain's lock is acquired (FIFO), the
// file is re-read from disk so fn sees the latest committed state, and
// the full result is written back before the lock is released. Edits to
// different chains proceed in parallel.
func (r *Registry) Edit(ctx context.Context, fn EditFunc) ([]model.VaultRecord, error) {
	if err := r.lock.Acquire(ctx); err != nil {
		return nil, xerrors.Errorf("acquire %s registry lock: %w", r.chainID, err)
	}
	defer r.lock.Release()

	records, err := r.read()
	if err != nil {
		return nil, err
	}

	edited, err := fn(ctx, records)
	if err != nil {
		return nil, err
	}

	data, err := model.EncodeRecords(edited)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return nil, xerrors.Errorf("write registry %s: %w", r.path, err)
	}
	log.Debugw("registry written", "chain", r.chainID, "records", len(edited))

	r.cacheMu.Lock()
	r.cache = edited
	r.cached = true
	r.cacheMu.Unlock()

	return copyRecords(edited), nil
}

// Add appends a record, failing with *DuplicateRecordError if the id or
// earn contract address is already present. On failure the file is left
// untouched.
func (r *Registry) Add(ctx context.Context, rec model.VaultRecord) error {
	_, err := r.Edit(ctx, func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error) {
		for i := range records {
			if records[i].ID == rec.ID {
				return nil, &DuplicateRecordError{ChainID: r.chainID, Field: "id", Value: rec.ID}
			}
			if records[i].SameAddress(rec.EarnContractAddress) {
				return nil, &DuplicateRecordError{ChainID: r.chainID, Field: "earnContractAddress", Value: rec.EarnContractAddress}
			}
		}
		return append(records, rec), nil
	})
	return err
}

// EditByID applies fn to the single record with the given id, failing
// with *NotFoundError if absent.
func (r *Registry) EditByID(ctx context.Context, id string, fn func(*model.VaultRecord) error) error {
	_, err := r.Edit(ctx, func(ctx context.Context, records []model.VaultRecord) ([]model.VaultRecord, error) {
		for i := range records {
			if records[i].ID == id {
				if err := fn(&records[i]); err != nil {
					return nil, err
				}
				return records, nil
			}
		}
		return nil, &NotFoundError{ChainID: r.chainID, ID: id}
	})
	return err
}

func (r *Registry) read() ([]model.VaultRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read registry %s: %w", r.path, err)
	}
	return model.DecodeRecords(data)
}

func copyRecords(records []model.VaultRecord) []model.VaultRecord {
	out := make([]model.VaultRecord, len(records))
	copy(out, records)
	return out
}
