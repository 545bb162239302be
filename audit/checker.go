// Package audit detects and repairs risk-list drift between a CLM and
// its paired reward pool and wrapper vault records. Detection is pure;
// repairs write through the registry store.
package audit

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/clmops/clmctl/model"
	"github.com/clmops/clmctl/risk"
	"github.com/clmops/clmctl/storage"
)

var log = logging.Logger("clmctl/audit")

// Bucket classifies how a paired record's risk list differs from its CLM.
type Bucket string

const (
	// BucketMissing: the paired record has no risks recorded at all.
	BucketMissing Bucket = "missing"
	// BucketInvalid: the paired record has risks, but they fail
	// taxonomy validation (unknown ids or group conflicts).
	BucketInvalid Bucket = "invalid"
	// BucketDivergent: the paired record's risks are valid but not
	// equal to the CLM's.
	BucketDivergent Bucket = "divergent"
)

// Source is one paired record that disagrees with its CLM.
type Source struct {
	Record model.VaultRecord
	Set    risk.Set
	Bucket Bucket
}

// Mismatch groups a CLM with every paired record whose normalized risk
// set differs from the CLM's.
type Mismatch struct {
	CLM     model.VaultRecord
	CLMSet  risk.Set
	Sources []Source
}

// HasBucket reports whether any source fell into b.
func (m *Mismatch) HasBucket(b Bucket) bool {
	for _, s := range m.Sources {
		if s.Bucket == b {
			return true
		}
	}
	return false
}

type Checker struct {
	catalog  *storage.Catalog
	prompter Prompter
}

func NewChecker(catalog *storage.Catalog, prompter Prompter) *Checker {
	return &Checker{catalog: catalog, prompter: prompter}
}

// CheckAll pairs every CLM in records with the gov and standard records
// referencing its earn contract address and reports one Mismatch per
// CLM with at least one disagreeing source. Pure with respect to its
// input; nothing is written.
func (c *Checker) CheckAll(records []model.VaultRecord) []Mismatch {
	var mismatches []Mismatch
	for i := range records {
		clm := records[i]
		if clm.Type != model.TypeCowcentrated {
			continue
		}

		clmSet := risk.Normalize(clm.Risks)
		var sources []Source
		perType := map[model.VaultType]int{}

		for j := range records {
			rec := records[j]
			if rec.Type != model.TypeGov && rec.Type != model.TypeStandard {
				continue
			}
			if rec.Network != clm.Network || !clm.SameAddress(rec.TokenAddress) {
				continue
			}
			perType[rec.Type]++

			set := risk.Normalize(rec.Risks)
			switch {
			case len(set.AllIDs) == 0:
				// An empty list only counts as missing when the CLM has
				// risks recorded; two empty lists are identical.
				if len(clmSet.AllIDs) != 0 {
					sources = append(sources, Source{Record: rec, Set: set, Bucket: BucketMissing})
				}
			case !set.Valid:
				sources = append(sources, Source{Record: rec, Set: set, Bucket: BucketInvalid})
			case !set.Equal(clmSet):
				sources = append(sources, Source{Record: rec, Set: set, Bucket: BucketDivergent})
			}
		}

		// The store does not enforce pairing multiplicity; surface it
		// here so operators notice.
		for typ, n := range perType {
			if n > 1 {
				log.Warnw("clm has multiple paired records of one type",
					"clm", clm.ID, "type", typ, "count", n)
			}
		}

		if len(sources) > 0 {
			mismatches = append(mismatches, Mismatch{CLM: clm, CLMSet: clmSet, Sources: sources})
		}
	}
	return mismatches
}

// clmSelectionValid reports whether the CLM's own risk list passes full
// validation; auto-fixes that copy the CLM's list are gated on this.
func clmSelectionValid(m *Mismatch) bool {
	return risk.Validate(m.CLM.Risks, risk.DefaultRequired) == nil
}
