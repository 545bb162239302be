package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/clmops/clmctl/model"
	"github.com/clmops/clmctl/risk"
)

// Outcome is how one group-level reconciliation ended.
type Outcome string

const (
	// OutcomeBack returns control to the top-level mismatch list.
	OutcomeBack Outcome = "back"
	// OutcomeExit terminates the whole workflow.
	OutcomeExit Outcome = "exit"
)

// errCancelled aborts a manual selection without writing.
var errCancelled = errors.New("selection cancelled")

// Run drives the reconciliation workflow: list mismatch groups, let the
// operator pick one, reconcile it, re-check, repeat until the registry
// is consistent or the operator exits.
func (c *Checker) Run(ctx context.Context) error {
	for {
		records, err := c.loadAll(ctx)
		if err != nil {
			return err
		}
		mismatches := c.CheckAll(records)
		if len(mismatches) == 0 {
			log.Infow("no risk mismatches remain")
			return nil
		}

		options := make([]string, 0, len(mismatches)+1)
		for _, m := range mismatches {
			options = append(options, fmt.Sprintf("%s (%d mismatched record(s))", m.CLM.ID, len(m.Sources)))
		}
		options = append(options, "Exit")

		idx, err := c.prompter.Select("Mismatched risk groups", options)
		if err != nil {
			return err
		}
		if idx == len(mismatches) {
			return nil
		}

		outcome, err := c.Reconcile(ctx, mismatches[idx])
		if err != nil {
			return err
		}
		if outcome == OutcomeExit {
			return nil
		}
	}
}

// Reconcile repairs one mismatch group. Auto-fixes are only offered
// when the CLM's own risk list passes validation; copying a broken list
// around would spread the damage.
func (c *Checker) Reconcile(ctx context.Context, m Mismatch) (Outcome, error) {
	type action int
	const (
		actFixMissing action = iota
		actFixInvalid
		actManual
		actBack
		actExit
	)

	var options []string
	var actions []action
	if clmSelectionValid(&m) {
		if m.HasBucket(BucketMissing) {
			options = append(options, "Copy CLM risks to paired records with none recorded")
			actions = append(actions, actFixMissing)
		}
		if m.HasBucket(BucketInvalid) {
			options = append(options, "Replace invalid risk lists with the CLM's risks")
			actions = append(actions, actFixInvalid)
		}
	}
	options = append(options, "Repair each record manually", "Back", "Exit")
	actions = append(actions, actManual, actBack, actExit)

	idx, err := c.prompter.Select(fmt.Sprintf("Reconcile %s", m.CLM.ID), options)
	if err != nil {
		return "", err
	}

	switch actions[idx] {
	case actFixMissing:
		return OutcomeBack, c.autoFix(ctx, &m, BucketMissing)
	case actFixInvalid:
		return OutcomeBack, c.autoFix(ctx, &m, BucketInvalid)
	case actManual:
		return OutcomeBack, c.manual(ctx, &m)
	case actBack:
		return OutcomeBack, nil
	default:
		return OutcomeExit, nil
	}
}

// autoFix copies the CLM's risk list verbatim onto every source in the
// given bucket.
func (c *Checker) autoFix(ctx context.Context, m *Mismatch, bucket Bucket) error {
	card, _ := risk.Score(m.CLM.Risks)
	for _, src := range m.Sources {
		if src.Bucket != bucket {
			continue
		}
		ok, err := c.prompter.Confirm(
			fmt.Sprintf("Set %d risk(s) on %s (safety score %.2f)", len(m.CLM.Risks), src.Record.ID, card.SafetyScore), true)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.writeRisks(ctx, src.Record, m.CLM.Risks); err != nil {
			return err
		}
	}
	return nil
}

// manual walks each mismatched source: copy any valid source's list, or
// compose one from the taxonomy, with a score-bearing confirmation
// before every write.
func (c *Checker) manual(ctx context.Context, m *Mismatch) error {
	for _, src := range m.Sources {
		risks, err := c.chooseRisks(m, src)
		if errors.Is(err, errCancelled) {
			continue
		}
		if err != nil {
			return err
		}

		card, _ := risk.Score(risks)
		ok, err := c.prompter.Confirm(
			fmt.Sprintf("Set %d risk(s) on %s (safety score %.2f)", len(risks), src.Record.ID, card.SafetyScore), true)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.writeRisks(ctx, src.Record, risks); err != nil {
			return err
		}
	}
	return nil
}

// chooseRisks offers every valid source's list plus free composition.
func (c *Checker) chooseRisks(m *Mismatch, src Source) ([]string, error) {
	var options []string
	var lists [][]string

	if clmSelectionValid(m) {
		options = append(options, fmt.Sprintf("Copy from CLM %s: %v", m.CLM.ID, m.CLM.Risks))
		lists = append(lists, m.CLM.Risks)
	}
	for _, other := range m.Sources {
		if other.Record.ID == src.Record.ID || !other.Set.Valid {
			continue
		}
		if risk.Validate(other.Record.Risks, risk.DefaultRequired) != nil {
			continue
		}
		options = append(options, fmt.Sprintf("Copy from %s: %v", other.Record.ID, other.Record.Risks))
		lists = append(lists, other.Record.Risks)
	}
	options = append(options, "Pick risks from the taxonomy", "Skip this record")

	idx, err := c.prompter.Select(fmt.Sprintf("Risks for %s (currently %v)", src.Record.ID, src.Record.Risks), options)
	if err != nil {
		return nil, err
	}
	switch {
	case idx < len(lists):
		return append([]string(nil), lists[idx]...), nil
	case idx == len(lists):
		return c.pickRisks(src.Record.Risks)
	default:
		return nil, errCancelled
	}
}

// pickRisks is a toggle loop over the full taxonomy. The final
// selection must pass validation before it is accepted.
func (c *Checker) pickRisks(initial []string) ([]string, error) {
	selected := map[string]bool{}
	for _, id := range initial {
		if _, ok := risk.Lookup(id); ok {
			selected[id] = true
		}
	}

	all := risk.All()
	for {
		options := make([]string, 0, len(all)+2)
		for _, r := range all {
			mark := "[ ]"
			if selected[r.ID] {
				mark = "[x]"
			}
			options = append(options, fmt.Sprintf("%s %s: %s", mark, r.ID, r.Title))
		}
		options = append(options, "Done", "Cancel")

		idx, err := c.prompter.Select("Toggle risks", options)
		if err != nil {
			return nil, err
		}
		switch idx {
		case len(all): // Done
			var ids []string
			for _, r := range all {
				if selected[r.ID] {
					ids = append(ids, r.ID)
				}
			}
			if err := risk.Validate(ids, risk.DefaultRequired); err != nil {
				keep, cerr := c.prompter.Confirm(fmt.Sprintf("Selection rejected: %v. Keep editing", err), true)
				if cerr != nil {
					return nil, cerr
				}
				if !keep {
					return nil, errCancelled
				}
				continue
			}
			return ids, nil
		case len(all) + 1: // Cancel
			return nil, errCancelled
		default:
			id := all[idx].ID
			selected[id] = !selected[id]
		}
	}
}

// writeRisks persists a repaired risk list through the store.
func (c *Checker) writeRisks(ctx context.Context, rec model.VaultRecord, risks []string) error {
	reg := c.catalog.Registry(rec.Network)
	err := reg.EditByID(ctx, rec.ID, func(r *model.VaultRecord) error {
		r.Risks = append([]string(nil), risks...)
		return nil
	})
	if err != nil {
		return err
	}
	log.Infow("repaired risk list", "record", rec.ID, "chain", rec.Network, "risks", risks)
	return nil
}

// loadAll reads every chain's records from the catalog.
func (c *Checker) loadAll(ctx context.Context) ([]model.VaultRecord, error) {
	chains, err := c.catalog.Chains()
	if err != nil {
		return nil, err
	}
	var all []model.VaultRecord
	for _, chain := range chains {
		records, err := c.catalog.Registry(chain).Load(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
