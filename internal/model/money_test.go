package model

import (
	"testing"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		quantity int
		want     string
		wantOK   bool
	}{
		{"whole number", "10", 2, "20.00", true},
		{"with cents", "12.5", 3, "37.50", true},
		{"float trap", "0.1", 3, "0.30", true},
		{"zero quantity", "9.99", 0, "0.00", true},
		{"padded", " 4.25 ", 1, "4.25", true},
		{"empty string", "", 1, "", false},
		{"not a number", "N/A", 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LineTotal(tt.price, tt.quantity)
			if ok != tt.wantOK {
				t.Fatalf("LineTotal(%q, %d) ok = %v, want %v", tt.price, tt.quantity, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("LineTotal(%q, %d) = %q, want %q", tt.price, tt.quantity, got, tt.want)
			}
		})
	}
}

func TestFormatMinorUnits(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		minorUnit int
		want      string
	}{
		{"two decimals", "8900", 2, "89.00"},
		{"odd cents", "1999", 2, "19.99"},
		{"zero decimals", "1500", 0, "1500"},
		{"three decimals", "12345", 3, "12.345"},
		{"empty string", "", 2, "0.00"},
		{"invalid string", "abc", 2, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMinorUnits(tt.input, tt.minorUnit)
			if got != tt.want {
				t.Errorf("FormatMinorUnits(%q, %d) = %q, want %q", tt.input, tt.minorUnit, got, tt.want)
			}
		})
	}
}
