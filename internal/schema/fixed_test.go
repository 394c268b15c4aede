package schema

import "testing"

func TestMulDiv(t *testing.T) {
	testCases := []struct {
		desc     string
		a, b, d  int64
		expected int64
		ok       bool
	}{
		{"identity", 42 * Unit, Unit, Unit, 42 * Unit, true},
		{"price times qty", 50_000 * Unit, Unit / 100, Unit, 500 * Unit, true},
		{"negative a", -3 * Unit, 2 * Unit, Unit, -6 * Unit, true},
		{"negative d", 3 * Unit, 2 * Unit, -Unit, -6 * Unit, true},
		{"both negative", -3 * Unit, -2 * Unit, Unit, 6 * Unit, true},
		{"truncates toward zero", 1, 1, 3, 0, true},
		{"truncates negative toward zero", -1, 1, 3, 0, true},
		{"large no overflow", 90_000 * Unit, 1000 * Unit, Unit, 90_000_000 * Unit, true},
		{"div zero", 1, 1, 0, 0, false},
		{"overflow", 1 << 62, 1 << 62, 1, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := MulDiv(tc.a, tc.b, tc.d)
			if ok != tc.ok {
				t.Fatalf("ok mismatch! should be %t but got %t", tc.ok, ok)
			}
			if ok && got != tc.expected {
				t.Fatalf("value mismatch! should be %d but got %d", tc.expected, got)
			}
		})
	}
}

func TestMulDivLargeIntermediate(t *testing.T) {
	// 92233 BTC at 99999.99 USDT overflows a 64-bit intermediate but
	// the result still fits.
	price := int64(9_999_999_000_000)
	qty := int64(92_233 * Unit)
	got, ok := MulDiv(price, qty, Unit)
	if !ok {
		t.Fatal("should not overflow")
	}
	expected := int64(922_329_907_767_000_000)
	if got != expected {
		t.Fatalf("value mismatch! should be %d but got %d", expected, got)
	}
}

func TestParseScaled(t *testing.T) {
	testCases := []struct {
		desc     string
		input    string
		expected int64
		wantErr  bool
	}{
		{"integer", "42", 42 * Unit, false},
		{"fraction", "0.5", Unit / 2, false},
		{"full precision", "1.23456789", 123456789, false},
		{"truncates excess digits", "1.234567891", 123456789, false},
		{"negative", "-0.0004", -40_000, false},
		{"plus sign", "+2", 2 * Unit, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, true},
		{"just sign", "-", 0, true},
		{"just dot", ".", 0, true},
		{"sign and dot", "-.", 0, true},
		{"double dot", "1.2.3", 0, true},
		{"letters", "12a", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ParseScaled(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("should fail but got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("should succeed but got error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("value mismatch! should be %d but got %d", tc.expected, got)
			}
		})
	}
}

func TestFormatScaled(t *testing.T) {
	testCases := []struct {
		desc     string
		input    int64
		expected string
	}{
		{"integer", 42 * Unit, "42.00000000"},
		{"fraction", Unit / 2, "0.50000000"},
		{"negative", -40_000, "-0.00040000"},
		{"small", 1, "0.00000001"},
		{"zero", 0, "0.00000000"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if got := FormatScaled(tc.input); got != tc.expected {
				t.Fatalf("format mismatch! should be %s but got %s", tc.expected, got)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	inputs := []string{"50000.12345678", "-1.00000001", "0.00000000"}
	for _, in := range inputs {
		v, err := ParseScaled(in)
		if err != nil {
			t.Fatalf("parse %s failed: %v", in, err)
		}
		if got := FormatScaled(v); got != in {
			t.Fatalf("round trip mismatch! should be %s but got %s", in, got)
		}
	}
}

func TestNotionalAndRate(t *testing.T) {
	notional, ok := Notional(Price(50_000*Unit), Quantity(Unit/100))
	if !ok || notional != Money(500*Unit) {
		t.Fatalf("notional mismatch! should be %d but got %d (ok=%t)", 500*Unit, notional, ok)
	}

	fee, ok := ApplyRate(notional, Rate(40_000))
	if !ok || fee != Money(20_000_000) {
		t.Fatalf("fee mismatch! should be %d but got %d (ok=%t)", 20_000_000, fee, ok)
	}
}
