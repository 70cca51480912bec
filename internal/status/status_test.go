package status

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	placed := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	expected := placed.Add(5 * 24 * time.Hour)
	at := func(days int, hour int) time.Time {
		d := placed.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		today time.Time
		want  Phase
	}{
		{"placement day", placed, Processing},
		{"placement day before order time", at(0, 1), Processing},
		{"day 1", at(1, 12), Processing},
		{"day 2 late", at(2, 23), Processing},
		{"day 3 early", at(3, 0), Shipped},
		{"day 4", at(4, 9), Shipped},
		{"delivery day morning", at(5, 0), OutForDelivery},
		{"delivery day evening", at(5, 23), OutForDelivery},
		{"day after delivery", at(6, 0), Complete},
		{"month later", at(30, 0), Complete},
		{"clock skew before placement", at(-1, 12), Processing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(placed, expected, tt.today); got != tt.want {
				t.Errorf("Resolve(day %s) = %s, want %s", tt.today.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestResolve_OverlappingRanges(t *testing.T) {
	placed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	// expected delivery two days after placement: Shipped never applies
	expected := placed.AddDate(0, 0, 2)
	if got := Resolve(placed, expected, placed.AddDate(0, 0, 1)); got != Processing {
		t.Errorf("day 1 = %s, want %s", got, Processing)
	}
	if got := Resolve(placed, expected, expected); got != OutForDelivery {
		t.Errorf("delivery day = %s, want %s", got, OutForDelivery)
	}
	if got := Resolve(placed, expected, placed.AddDate(0, 0, 3)); got != Complete {
		t.Errorf("day 3 = %s, want %s", got, Complete)
	}

	// delivery on the placement day
	if got := Resolve(placed, placed, placed); got != OutForDelivery {
		t.Errorf("same-day delivery = %s, want %s", got, OutForDelivery)
	}
}

func TestResolve_NormalisesTimeZones(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	placed := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	expected := placed.AddDate(0, 0, 5)
	// 2024-06-04 06:00 JST is 2024-06-03 21:00 UTC: still day 2
	today := time.Date(2024, 6, 4, 6, 0, 0, 0, tokyo)
	if got := Resolve(placed, expected, today); got != Processing {
		t.Errorf("got %s, want %s", got, Processing)
	}
}
