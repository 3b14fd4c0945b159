package view

import (
	"reflect"
	"testing"
	"time"

	"renttrack/internal/model"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format(model.DateLayout)
}

func sample() []model.Item {
	return []model.Item{
		{ID: "1", Name: "Zattoo", Category: "streaming", EndDate: day(3), Status: model.StatusActive, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "2", Name: "Audible", Category: "audio", EndDate: day(-2), Status: model.StatusExpired, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "3", Name: "netflix", Category: "streaming", Status: model.StatusActive, CreatedAt: now.Add(-1 * time.Hour), Notes: "family plan"},
		{ID: "4", Name: "Mullvad", Category: "vpn", EndDate: day(20), Status: model.StatusSoldOut, CreatedAt: now},
	}
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestApplyIsIdempotent(t *testing.T) {
	p := Params{Search: "a", Urgency: UrgencyAll, Sort: SortAlpha}
	first := Apply(sample(), p, now)
	second := Apply(first, p, now)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("pipeline not idempotent: %v then %v", ids(first), ids(second))
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	Apply(in, Params{Sort: SortAlpha}, now)
	if !reflect.DeepEqual(in, sample()) {
		t.Error("input slice was mutated")
	}
}

func TestSearchMatchesNameNotesCategory(t *testing.T) {
	got := Apply(sample(), Params{Search: "NETFLIX"}, now)
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("case-insensitive name search failed: %v", ids(got))
	}

	got = Apply(sample(), Params{Search: "family"}, now)
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("notes search failed: %v", ids(got))
	}

	got = Apply(sample(), Params{Search: "vpn"}, now)
	if len(got) != 1 || got[0].ID != "4" {
		t.Errorf("category search failed: %v", ids(got))
	}
}

func TestCategoryFilter(t *testing.T) {
	got := Apply(sample(), Params{Category: "streaming"}, now)
	if !reflect.DeepEqual(ids(got), []string{"1", "3"}) {
		t.Errorf("expected streaming items in original order, got %v", ids(got))
	}
}

func TestUrgencyFilters(t *testing.T) {
	soon := Apply(sample(), Params{Urgency: UrgencySoon}, now)
	if !reflect.DeepEqual(ids(soon), []string{"1"}) {
		t.Errorf("expected only the item expiring in 3 days, got %v", ids(soon))
	}

	expired := Apply(sample(), Params{Urgency: UrgencyExpired}, now)
	if !reflect.DeepEqual(ids(expired), []string{"2"}) {
		t.Errorf("expected only the past-due item, got %v", ids(expired))
	}
}

func TestSortEndDateMissingLast(t *testing.T) {
	got := Apply(sample(), Params{Sort: SortEndDate}, now)
	if !reflect.DeepEqual(ids(got), []string{"2", "1", "4", "3"}) {
		t.Errorf("expected end-date ascending with open-ended last, got %v", ids(got))
	}

	// Regardless of input order.
	in := sample()
	in[0], in[2] = in[2], in[0]
	got = Apply(in, Params{Sort: SortEndDate}, now)
	if got[len(got)-1].ID != "3" {
		t.Errorf("item without end date must sort last, got %v", ids(got))
	}
}

func TestSortAlphaCaseInsensitive(t *testing.T) {
	got := Apply(sample(), Params{Sort: SortAlpha}, now)
	if !reflect.DeepEqual(ids(got), []string{"2", "4", "3", "1"}) {
		t.Errorf("expected Audible, Mullvad, netflix, Zattoo, got %v", ids(got))
	}
}

func TestSortNewestFirst(t *testing.T) {
	got := Apply(sample(), Params{Sort: SortNewest}, now)
	if !reflect.DeepEqual(ids(got), []string{"4", "3", "2", "1"}) {
		t.Errorf("expected creation-time descending, got %v", ids(got))
	}
}

func TestStableOnTies(t *testing.T) {
	a := model.Item{ID: "a", Name: "Same", CreatedAt: now}
	b := model.Item{ID: "b", Name: "Same", CreatedAt: now}
	got := Apply([]model.Item{a, b}, Params{Sort: SortAlpha}, now)
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) {
		t.Errorf("equal sort keys must preserve relative order, got %v", ids(got))
	}
	got = Apply([]model.Item{b, a}, Params{Sort: SortNewest}, now)
	if !reflect.DeepEqual(ids(got), []string{"b", "a"}) {
		t.Errorf("equal sort keys must preserve relative order, got %v", ids(got))
	}
}

func TestGroupByStatus(t *testing.T) {
	columns := GroupByStatus(sample())
	if len(columns[model.StatusActive]) != 2 {
		t.Errorf("expected 2 active cards, got %d", len(columns[model.StatusActive]))
	}
	if len(columns[model.StatusExpired]) != 1 || len(columns[model.StatusSoldOut]) != 1 {
		t.Error("expected one expired and one sold_out card")
	}
	if len(columns[model.StatusArchived]) != 0 {
		t.Error("expected empty archived column present")
	}
}
