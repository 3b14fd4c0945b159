// Package view derives display lists from subscribed items. All functions
// are pure: same inputs, same output, input slice never mutated.
package view

import (
	"sort"
	"strings"
	"time"

	"renttrack/internal/model"
)

// Urgency filters.
const (
	UrgencyAll     = "all"
	UrgencySoon    = "soon" // end date within the next 7 days
	UrgencyExpired = "expired"
)

// Sort keys.
const (
	SortAlpha   = "alpha"
	SortEndDate = "end_date" // ascending, items without an end date last
	SortNewest  = "newest"   // creation time descending
)

// soonWindowDays is the "soon to expire" horizon.
const soonWindowDays = 7

// Params selects and orders the displayed list.
type Params struct {
	Search   string
	Category string
	Urgency  string
	Sort     string
}

// Apply filters and sorts items. Ties keep their original relative order, so
// applying the pipeline twice with the same parameters yields the same
// output.
func Apply(items []model.Item, p Params, now time.Time) []model.Item {
	out := make([]model.Item, 0, len(items))
	search := strings.ToLower(strings.TrimSpace(p.Search))

	for _, it := range items {
		if search != "" && !matches(&it, search) {
			continue
		}
		if p.Category != "" && it.Category != p.Category {
			continue
		}
		switch p.Urgency {
		case UrgencySoon:
			if !model.EndDateWithin(it.EndDate, now, soonWindowDays) {
				continue
			}
		case UrgencyExpired:
			if !model.EndDateInPast(it.EndDate, now) {
				continue
			}
		}
		out = append(out, it)
	}

	switch p.Sort {
	case SortAlpha:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortEndDate:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].EndDate, out[j].EndDate
			if (a == "") != (b == "") {
				return a != "" // dated items before open-ended ones
			}
			return a < b
		})
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}

func matches(it *model.Item, search string) bool {
	return strings.Contains(strings.ToLower(it.Name), search) ||
		strings.Contains(strings.ToLower(it.Notes), search) ||
		strings.Contains(strings.ToLower(it.Category), search)
}

// GroupByStatus splits a derived list into board columns, preserving order
// within each column.
func GroupByStatus(items []model.Item) map[string][]model.Item {
	columns := map[string][]model.Item{
		model.StatusActive:   {},
		model.StatusSoldOut:  {},
		model.StatusExpired:  {},
		model.StatusArchived: {},
	}
	for _, it := range items {
		columns[it.Status] = append(columns[it.Status], it)
	}
	return columns
}
