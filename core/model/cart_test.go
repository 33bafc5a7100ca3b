package model

import "testing"

func TestEligible(t *testing.T) {
	cases := []struct {
		name string
		cart Cart
		min  float64
		want bool
	}{
		{"active above floor", Cart{Status: StatusActive, Battery: 50}, 10, true},
		{"at floor excluded", Cart{Status: StatusActive, Battery: 10}, 10, false},
		{"below floor", Cart{Status: StatusActive, Battery: 5}, 10, false},
		{"maintenance excluded", Cart{Status: StatusMaintenance, Battery: 100}, 10, false},
		{"inactive excluded", Cart{Status: StatusInactive, Battery: 100}, 10, false},
	}
	for _, tc := range cases {
		if got := tc.cart.Eligible(tc.min); got != tc.want {
			t.Errorf("%s: got %t, want %t", tc.name, got, tc.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []CartStatus{StatusActive, StatusInactive, StatusMaintenance} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if CartStatus("flying").Valid() {
		t.Errorf("unknown status should be invalid")
	}
}

func TestValidBattery(t *testing.T) {
	for _, b := range []float64{0, 50, 100} {
		if !ValidBattery(b) {
			t.Errorf("%v should be valid", b)
		}
	}
	for _, b := range []float64{-1, 100.5, 101} {
		if ValidBattery(b) {
			t.Errorf("%v should be invalid", b)
		}
	}
}
