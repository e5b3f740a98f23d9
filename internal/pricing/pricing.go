// Package pricing computes order-item line totals from catalog snapshots.
// It is a pure calculator: no I/O, no catalog lookups.
package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrUnknownGroup    = errors.New("selection references unknown modifier group")
	ErrMinSelection    = errors.New("not enough selections")
	ErrMaxSelection    = errors.New("too many selections")
)

// Group is a modifier group attached to the menu item being priced.
type Group struct {
	ID           uuid.UUID
	Name         string
	Kind         string // selection, text or grams
	MinSelection int32
	MaxSelection int32
}

// Selection is one chosen modifier. It carries everything needed to
// reprice the line without re-querying the catalog, and is persisted
// verbatim as the item's modifier snapshot.
type Selection struct {
	ModifierID  uuid.UUID `json:"modifier_id"`
	GroupID     uuid.UUID `json:"group_id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Price       decimal.Decimal `json:"price"`
	WeightGrams int32     `json:"weight_grams,omitempty"`
}

// Quote validates the selections against the groups and returns the line
// total plus the normalized selection set.
//
// Flat selections add their price once per unit. A grams selection
// reinterprets the base price as a per-kilogram rate: the effective
// per-unit base becomes basePrice * weight/1000, replacing the nominal
// base. Text selections never affect price. Rounding is half-up to two
// decimals, applied once at the line level.
func Quote(basePrice decimal.Decimal, quantity int32, groups []Group, selections []Selection) (decimal.Decimal, []Selection, error) {
	if quantity < 1 {
		return decimal.Zero, nil, ErrInvalidQuantity
	}

	byID := make(map[uuid.UUID]Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	normalized, err := normalize(byID, selections)
	if err != nil {
		return decimal.Zero, nil, err
	}

	// Cardinality per group, counting zero for unselected groups so
	// min_selection violations surface.
	counts := make(map[uuid.UUID]int32, len(groups))
	for _, sel := range normalized {
		counts[sel.GroupID]++
	}
	for _, g := range groups {
		n := counts[g.ID]
		if n < g.MinSelection {
			return decimal.Zero, nil, fmt.Errorf("group %q requires at least %d selection(s): %w", g.Name, g.MinSelection, ErrMinSelection)
		}
		if n > g.MaxSelection {
			return decimal.Zero, nil, fmt.Errorf("group %q allows at most %d selection(s): %w", g.Name, g.MaxSelection, ErrMaxSelection)
		}
	}

	unitBase := basePrice
	flat := decimal.Zero
	for _, sel := range normalized {
		switch sel.Kind {
		case "grams":
			// Base price is a per-kg rate for weight-priced items.
			unitBase = basePrice.Mul(decimal.NewFromInt32(sel.WeightGrams)).Div(decimal.NewFromInt(1000))
		case "text":
			// Kitchen instruction only.
		default:
			flat = flat.Add(sel.Price)
		}
	}

	total := unitBase.Add(flat).Mul(decimal.NewFromInt32(quantity)).Round(2)
	return total, normalized, nil
}

// normalize rejects selections for unknown groups and applies
// last-write-wins on single-select groups: picking a second option in a
// max_selection=1 group replaces the first instead of failing.
func normalize(groups map[uuid.UUID]Group, selections []Selection) ([]Selection, error) {
	out := make([]Selection, 0, len(selections))
	lastSingle := make(map[uuid.UUID]int) // group id -> index in out

	for _, sel := range selections {
		g, ok := groups[sel.GroupID]
		if !ok {
			return nil, fmt.Errorf("modifier %q: %w", sel.Name, ErrUnknownGroup)
		}
		sel.Kind = g.Kind
		if g.MaxSelection == 1 {
			if i, seen := lastSingle[g.ID]; seen {
				out[i] = sel
				continue
			}
			lastSingle[g.ID] = len(out)
		}
		out = append(out, sel)
	}
	return out, nil
}
