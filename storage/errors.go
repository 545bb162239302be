package storage

import "fmt"

// DuplicateRecordError is returned by Add when a record with the same
// id or earn contract address already exists in the chain's registry.
type DuplicateRecordError struct {
	ChainID string
	Field   string // "id" or "earnContractAddress"
	Value   string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("registry %s already has a record with %s %q", e.ChainID, e.Field, e.Value)
}

// NotFoundError is returned by EditByID when no record matches the id.
type NotFoundError struct {
	ChainID string
	ID      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry %s has no record with id %q", e.ChainID, e.ID)
}
