package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParsePercentToBasisPoints(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"100", 10000, true},
		{"50", 5000, true},
		{"33.33", 3333, true},
		{"33,3", 3330, true},
		{"0.01", 1, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"100.01", 0, false},
		{"101", 0, false},
		{"12.345", 0, false}, // more precision than basis points carry
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePercentToBasisPoints(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{1234, "12.34"},
		{-1234, "-12.34"},
		{-5, "-0.05"},
		{1000000, "10000.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("%d cents -> %q, want %q", tc.cents, got, tc.want)
		}
	}
}
