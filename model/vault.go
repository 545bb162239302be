package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"
)

// VaultType distinguishes the three record kinds a CLM triple is made of.
type VaultType string

const (
	// TypeCowcentrated is the primary concentrated-liquidity-manager vault.
	TypeCowcentrated VaultType = "cowcentrated"
	// TypeGov is a reward pool paired to a CLM.
	TypeGov VaultType = "gov"
	// TypeStandard is a wrapper vault paired to a CLM.
	TypeStandard VaultType = "standard"
)

func (t VaultType) Valid() bool {
	switch t {
	case TypeCowcentrated, TypeGov, TypeStandard:
		return true
	}
	return false
}

const (
	StatusActive = "active"
	StatusEOL    = "eol"
	StatusPaused = "paused"
)

// VaultRecord is one persisted entry of a per-chain registry file.
// Within one chain file both ID and EarnContractAddress are unique.
// For gov and standard records TokenAddress equals the paired CLM's
// EarnContractAddress.
type VaultRecord struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name,omitempty"`
	Type                VaultType `json:"type"`
	Token               string    `json:"token,omitempty"`
	TokenAddress        string    `json:"tokenAddress,omitempty"`
	TokenProviderID     string    `json:"tokenProviderId,omitempty"`
	TokenDecimals       int       `json:"tokenDecimals,omitempty"`
	EarnedToken         string    `json:"earnedToken,omitempty"`
	EarnedTokenAddress  string    `json:"earnedTokenAddress,omitempty"`
	EarnContractAddress string    `json:"earnContractAddress"`
	Oracle              string    `json:"oracle,omitempty"`
	OracleID            string    `json:"oracleId,omitempty"`
	Status              string    `json:"status"`
	PlatformID          string    `json:"platformId,omitempty"`
	Assets              []string  `json:"assets,omitempty"`
	Risks               []string  `json:"risks,omitempty"`
	StrategyTypeID      string    `json:"strategyTypeId,omitempty"`
	Network             string    `json:"network"`
	CreatedAt           int64     `json:"createdAt"`
}

// SameAddress reports whether the record's earn contract equals addr,
// comparing checksummed and lowercased forms alike.
func (r *VaultRecord) SameAddress(addr string) bool {
	return common.HexToAddress(r.EarnContractAddress) == common.HexToAddress(addr)
}

// EncodeRecords serializes records as the registry file format: a JSON
// array, two-space indented, with the keys of every object sorted. Key
// order must be deterministic so that registry diffs stay reviewable.
func EncodeRecords(records []VaultRecord) ([]byte, error) {
	canon := make([]map[string]json.RawMessage, 0, len(records))
	for i := range records {
		raw, err := json.Marshal(&records[i])
		if err != nil {
			return nil, xerrors.Errorf("marshal record %q: %w", records[i].ID, err)
		}
		// Round-trip through a map: encoding/json writes map keys in
		// sorted order.
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, xerrors.Errorf("canonicalize record %q: %w", records[i].ID, err)
		}
		canon = append(canon, m)
	}

	out, err := json.MarshalIndent(canon, "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("marshal registry: %w", err)
	}
	return append(out, '\n'), nil
}

// DecodeRecords parses a registry file previously written by EncodeRecords.
func DecodeRecords(data []byte) ([]VaultRecord, error) {
	var records []VaultRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, xerrors.Errorf("parse registry: %w", err)
	}
	return records, nil
}
