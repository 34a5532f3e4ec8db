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
		{"0.1", 10, true},
		{"0.2", 20, true},
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

func TestCentArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.30 in cents, never a float artifact.
	a, err := ParseMoney("0.1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseMoney("0.2")
	if err != nil {
		t.Fatal(err)
	}
	sum := a.Add(b)
	if sum.Cents != 30 {
		t.Fatalf("expected 30 cents, got %d", sum.Cents)
	}
	if sum.String() != "0.30" {
		t.Fatalf("expected 0.30, got %s", sum.String())
	}
}

func TestNonNegativeCents(t *testing.T) {
	if got, err := NonNegativeCents("0"); err != nil || got != 0 {
		t.Fatalf("zero budget should be allowed, got %d (err=%v)", got, err)
	}
	if got, err := NonNegativeCents("12.50"); err != nil || got != 1250 {
		t.Fatalf("expected 1250, got %d (err=%v)", got, err)
	}
	if _, err := NonNegativeCents("-5"); err == nil {
		t.Fatal("negative budget should be rejected")
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}
