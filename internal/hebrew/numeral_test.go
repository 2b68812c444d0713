package hebrew

import (
	"strings"
	"testing"
)

func TestNumeral(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "א"},
		{9, "ט"},
		{10, "י"},
		{11, "יא"},
		{15, "טו"},
		{16, "טז"},
		{17, "יז"},
		{20, "כ"},
		{23, "כג"},
		{99, "צט"},
		{100, "ק"},
		{115, "קטו"},
		{116, "קטז"},
		{119, "קיט"},
		{150, "קנ"},
		{176, "קעו"},
		{400, "ת"},
		{500, "תק"},
		{915, "תתקטו"},
	}
	for _, tt := range tests {
		if got := Numeral(tt.n); got != tt.want {
			t.Errorf("Numeral(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestNumeralNonPositive(t *testing.T) {
	if got := Numeral(0); got != "0" {
		t.Errorf("Numeral(0) = %q, want %q", got, "0")
	}
	if got := Numeral(-3); got != "-3" {
		t.Errorf("Numeral(-3) = %q, want %q", got, "-3")
	}
}

func TestNumeralAvoidsDivineName(t *testing.T) {
	for n := 1; n <= 176; n++ {
		got := Numeral(n)
		if strings.Contains(got, "יה") || strings.Contains(got, "יו") {
			t.Errorf("Numeral(%d) = %q spells a reserved combination", n, got)
		}
		switch n % 100 {
		case 15:
			if !strings.HasSuffix(got, "טו") {
				t.Errorf("Numeral(%d) = %q, want suffix טו", n, got)
			}
		case 16:
			if !strings.HasSuffix(got, "טז") {
				t.Errorf("Numeral(%d) = %q, want suffix טז", n, got)
			}
		}
	}
}
