package core

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"15.99", 15.99, true},
		{"15,99", 15.99, true},
		{"10990", 10990, true},
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestClampDay(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
		want  int
	}{
		{2024, time.February, 31, 29},
		{2023, time.February, 31, 28},
		{2023, time.February, 29, 28},
		{2024, time.April, 31, 30},
		{2024, time.January, 31, 31},
		{2024, time.June, 15, 15},
	}
	for _, tc := range cases {
		if got := ClampDay(tc.year, tc.month, tc.day); got != tc.want {
			t.Fatalf("ClampDay(%d, %s, %d) = %d, want %d", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	ref := time.Date(2024, 2, 10, 15, 4, 5, 0, time.UTC)
	if got := StartOfMonth(ref); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartOfMonth = %v", got)
	}
	if got := EndOfMonth(ref); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("EndOfMonth = %v", got)
	}
	if got := StartOfYear(ref); !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartOfYear = %v", got)
	}
	if got := AddDays(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), -1); !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("AddDays = %v", got)
	}
	if got := AddMonths(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("AddMonths = %v", got)
	}
}

func TestDaysBetween(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), 0},
		{"across leap day", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 2},
		{"backwards", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), -7},
		{"calendar days read in own zone", time.Date(2024, 3, 1, 0, 0, 0, 0, seoul), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}
