package domain

import "testing"

func TestCartSnapshot_Totals(t *testing.T) {
	snapshot := CartSnapshot{
		Items: []CartItem{
			{Product: Product{ID: 1, Price: 0.1}, Quantity: 3},
			{Product: Product{ID: 2, Price: 19.99}, Quantity: 2},
		},
	}

	if got := snapshot.TotalQuantity(); got != 5 {
		t.Fatalf("expected total quantity 5, got %d", got)
	}
	if got := snapshot.TotalPrice().StringFixed(2); got != "40.28" {
		t.Fatalf("expected total price 40.28, got %s", got)
	}
}

func TestFilters_Defaults(t *testing.T) {
	f := DefaultFilters()
	if !f.PriceRange.IsDefault() {
		t.Fatalf("expected default price range, got %+v", f.PriceRange)
	}
	if !f.PriceRange.Contains(0) || !f.PriceRange.Contains(200) || f.PriceRange.Contains(200.01) {
		t.Fatal("price range bounds must be inclusive")
	}
	if !SortPriceDesc.Valid() || SortBy("random").Valid() {
		t.Fatal("unexpected SortBy validation")
	}
}
