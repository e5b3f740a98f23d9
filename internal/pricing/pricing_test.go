package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuote_BaseOnly(t *testing.T) {
	total, _, err := Quote(dec("12.50"), 3, nil, nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if total.String() != "37.5" {
		t.Errorf("total: got %s, want 37.5", total)
	}
}

func TestQuote_FlatModifier(t *testing.T) {
	// Base 10.00, one flat modifier +1.50, qty 2 -> 23.00
	g := Group{ID: uuid.New(), Name: "Extras", Kind: "selection", MinSelection: 0, MaxSelection: 3}
	sel := Selection{ModifierID: uuid.New(), GroupID: g.ID, Name: "Cheese", Price: dec("1.50")}

	total, norm, err := Quote(dec("10.00"), 2, []Group{g}, []Selection{sel})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !total.Equal(dec("23.00")) {
		t.Errorf("total: got %s, want 23.00", total)
	}
	if len(norm) != 1 {
		t.Errorf("normalized selections: got %d, want 1", len(norm))
	}
}

func TestQuote_WeightPriced(t *testing.T) {
	// Base price is per-kg: 20.00/kg at 350g, qty 2 -> 7.00 * 2 = 14.00
	g := Group{ID: uuid.New(), Name: "Weight", Kind: "grams", MinSelection: 1, MaxSelection: 1}
	sel := Selection{ModifierID: uuid.New(), GroupID: g.ID, Name: "350g", WeightGrams: 350}

	total, _, err := Quote(dec("20.00"), 2, []Group{g}, []Selection{sel})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !total.Equal(dec("14.00")) {
		t.Errorf("total: got %s, want 14.00", total)
	}
}

func TestQuote_WeightPlusFlat(t *testing.T) {
	// lineTotal == (weight/1000)*base*qty + flatSum*qty
	weight := Group{ID: uuid.New(), Name: "Weight", Kind: "grams", MinSelection: 1, MaxSelection: 1}
	extras := Group{ID: uuid.New(), Name: "Sauces", Kind: "selection", MinSelection: 0, MaxSelection: 2}
	sels := []Selection{
		{ModifierID: uuid.New(), GroupID: weight.ID, Name: "500g", WeightGrams: 500},
		{ModifierID: uuid.New(), GroupID: extras.ID, Name: "Garlic", Price: dec("0.80")},
	}

	total, _, err := Quote(dec("18.00"), 3, []Group{weight, extras}, sels)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// (18*0.5 + 0.80) * 3 = 29.40
	if !total.Equal(dec("29.40")) {
		t.Errorf("total: got %s, want 29.40", total)
	}
}

func TestQuote_TextModifierNoPriceEffect(t *testing.T) {
	g := Group{ID: uuid.New(), Name: "Instructions", Kind: "text", MinSelection: 0, MaxSelection: 5}
	sel := Selection{ModifierID: uuid.New(), GroupID: g.ID, Name: "No onions", Price: dec("9.99")}

	total, _, err := Quote(dec("5.00"), 1, []Group{g}, []Selection{sel})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !total.Equal(dec("5.00")) {
		t.Errorf("total: got %s, want 5.00 (text modifiers carry no price)", total)
	}
}

func TestQuote_MinSelectionUnmet(t *testing.T) {
	g := Group{ID: uuid.New(), Name: "Size", Kind: "selection", MinSelection: 1, MaxSelection: 1}

	_, _, err := Quote(dec("5.00"), 1, []Group{g}, nil)
	if !errors.Is(err, ErrMinSelection) {
		t.Fatalf("expected ErrMinSelection, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Size") {
		t.Errorf("error should name the offending group: %v", err)
	}
}

func TestQuote_SingleSelectLastWriteWins(t *testing.T) {
	// Over-selecting a max=1 group replaces the prior pick instead of failing.
	g := Group{ID: uuid.New(), Name: "Size", Kind: "selection", MinSelection: 1, MaxSelection: 1}
	sels := []Selection{
		{ModifierID: uuid.New(), GroupID: g.ID, Name: "Small", Price: dec("0.00")},
		{ModifierID: uuid.New(), GroupID: g.ID, Name: "Large", Price: dec("2.00")},
	}

	total, norm, err := Quote(dec("8.00"), 1, []Group{g}, sels)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(norm) != 1 || norm[0].Name != "Large" {
		t.Fatalf("expected last selection to win, got %+v", norm)
	}
	if !total.Equal(dec("10.00")) {
		t.Errorf("total: got %s, want 10.00", total)
	}
}

func TestQuote_MaxSelectionExceeded(t *testing.T) {
	g := Group{ID: uuid.New(), Name: "Toppings", Kind: "selection", MinSelection: 0, MaxSelection: 2}
	sels := []Selection{
		{ModifierID: uuid.New(), GroupID: g.ID, Name: "A", Price: dec("1.00")},
		{ModifierID: uuid.New(), GroupID: g.ID, Name: "B", Price: dec("1.00")},
		{ModifierID: uuid.New(), GroupID: g.ID, Name: "C", Price: dec("1.00")},
	}

	_, _, err := Quote(dec("8.00"), 1, []Group{g}, sels)
	if !errors.Is(err, ErrMaxSelection) {
		t.Fatalf("expected ErrMaxSelection, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Toppings") {
		t.Errorf("error should name the offending group: %v", err)
	}
}

func TestQuote_UnknownGroup(t *testing.T) {
	sel := Selection{ModifierID: uuid.New(), GroupID: uuid.New(), Name: "Ghost", Price: dec("1.00")}
	_, _, err := Quote(dec("8.00"), 1, nil, []Selection{sel})
	if !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got: %v", err)
	}
}

func TestQuote_InvalidQuantity(t *testing.T) {
	_, _, err := Quote(dec("8.00"), 0, nil, nil)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestQuote_RoundingHalfUpAtLineLevel(t *testing.T) {
	// 3 x 3.335 = 10.005 -> rounds half-up to 10.01 once at line level.
	total, _, err := Quote(dec("3.335"), 3, nil, nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !total.Equal(dec("10.01")) {
		t.Errorf("total: got %s, want 10.01", total)
	}
}
