package core

import "testing"

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.34", 12.34, true},
		{"12,34", 12.34, true},
		{"0", 0, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-1", 0, false},
		{"1.2.3", 0, false},
	}
	for i, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d (%q): got %v, %v", i, tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.in)
		}
	}
}

func TestParseOptionalDecimal(t *testing.T) {
	if v, err := ParseOptionalDecimal("  "); err != nil || v != nil {
		t.Fatalf("blank input: got %v, %v", v, err)
	}
	v, err := ParseOptionalDecimal("3,50")
	if err != nil || v == nil || *v != 3.5 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestRounding(t *testing.T) {
	if Round2(13.333333) != 13.33 {
		t.Fatalf("Round2")
	}
	if Round3(0.2999999) != 0.3 {
		t.Fatalf("Round3")
	}
	if Round0(166.67) != 167 {
		t.Fatalf("Round0")
	}
	if Round1(2.25) != 2.3 {
		t.Fatalf("Round1 half-up")
	}
}
