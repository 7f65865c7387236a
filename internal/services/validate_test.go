package services

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string // canonical form; "" means rejected
	}{
		{"0.01", "0.01"},
		{" 000.50 ", "0.5"},
		{"1e3", "1000"},
		{"2.5e-3", "0.0025"},
		{"0.000000000000000001", "0.000000000000000001"},
		{"1e39", "1" + strings.Repeat("0", 39)},
		{strings.Repeat("9", 40), strings.Repeat("9", 40)},
		{"1e40", ""},
		{"1e5000", ""},
		{"1e2000000", ""},
		{"9e2147483647", ""},
		{"1e-19", ""},
		{"0.0000000000000000001", ""},
		{"0", ""},
		{"-1", ""},
		{"abc", ""},
		{"", ""},
		{strings.Repeat("1", 41), ""},
	}
	for _, tc := range cases {
		d, err := parseAmount(tc.in)
		if tc.want == "" {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("parseAmount(%q) = %v, %v; want ErrInvalidInput", tc.in, d, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q) error: %v", tc.in, err)
			continue
		}
		if got := d.String(); got != tc.want {
			t.Errorf("parseAmount(%q) = %s; want %s", tc.in, got, tc.want)
		}
	}
}

func TestValidToken(t *testing.T) {
	if err := validToken("payerAddress", "0xBB", 128); err != nil {
		t.Fatalf("plain address rejected: %v", err)
	}
	for _, bad := range []string{"", "has space", "tab\there", strings.Repeat("x", 129)} {
		if err := validToken("payerAddress", bad, 128); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("validToken(%q) = %v; want ErrInvalidInput", bad, err)
		}
	}
}
