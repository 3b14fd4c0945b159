package model

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)

func iso(t time.Time) string { return t.Format(DateLayout) }

func TestEndDateInPast(t *testing.T) {
	cases := []struct {
		name    string
		endDate string
		want    bool
	}{
		{"yesterday", iso(testNow.AddDate(0, 0, -1)), true},
		{"today", iso(testNow), false},
		{"tomorrow", iso(testNow.AddDate(0, 0, 1)), false},
		{"empty", "", false},
		{"malformed", "soon", false},
	}
	for _, c := range cases {
		if got := EndDateInPast(c.endDate, testNow); got != c.want {
			t.Errorf("%s: EndDateInPast(%q) = %v, want %v", c.name, c.endDate, got, c.want)
		}
	}
}

func TestEndDateWithin(t *testing.T) {
	if !EndDateWithin(iso(testNow.AddDate(0, 0, 3)), testNow, 7) {
		t.Error("expected date 3 days out to be within 7 days")
	}
	if !EndDateWithin(iso(testNow), testNow, 7) {
		t.Error("expected today to be within 7 days")
	}
	if EndDateWithin(iso(testNow.AddDate(0, 0, 8)), testNow, 7) {
		t.Error("expected date 8 days out not to be within 7 days")
	}
	if EndDateWithin(iso(testNow.AddDate(0, 0, -1)), testNow, 7) {
		t.Error("expected past date not to count as expiring soon")
	}
	if EndDateWithin("", testNow, 7) {
		t.Error("expected missing date not to count as expiring soon")
	}
}

func TestPastDue(t *testing.T) {
	yesterday := iso(testNow.AddDate(0, 0, -1))

	item := Item{Status: StatusActive, EndDate: yesterday}
	if !item.PastDue(testNow) {
		t.Error("expected active item with past end date to be past due")
	}

	item.Status = StatusSoldOut
	if !item.PastDue(testNow) {
		t.Error("expected sold_out item with past end date to be past due")
	}

	item.Status = StatusArchived
	if item.PastDue(testNow) {
		t.Error("archived items must never auto-expire")
	}

	item.Status = StatusExpired
	if item.PastDue(testNow) {
		t.Error("already expired items must not be reclassified again")
	}

	item = Item{Status: StatusActive}
	if item.PastDue(testNow) {
		t.Error("items without an end date must never auto-expire")
	}
}

func TestDraggableStatus(t *testing.T) {
	for _, s := range []string{StatusActive, StatusSoldOut, StatusArchived} {
		if !DraggableStatus(s) {
			t.Errorf("expected %q to be a valid drop target", s)
		}
	}
	if DraggableStatus(StatusExpired) {
		t.Error("expired must not be a manual drop target")
	}
	if DraggableStatus("bogus") {
		t.Error("unknown status must not be a drop target")
	}
}
