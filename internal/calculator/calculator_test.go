package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateSettlement(t *testing.T) {
	tests := []struct {
		name         string
		positions    []MemberPosition
		wantErr      bool
		validateFunc func(t *testing.T, got []MemberAdjustment)
	}{
		{
			name: "three members with symmetric net positions",
			positions: []MemberPosition{
				{MemberID: "m1", Received: d("5000"), Contributed: d("3000")},
				{MemberID: "m2", Received: d("3000"), Contributed: d("3000")},
				{MemberID: "m3", Received: d("1000"), Contributed: d("3000")},
			},
			validateFunc: func(t *testing.T, got []MemberAdjustment) {
				// Net positions [+2000, 0, -2000], average 0.
				want := []string{"-2000", "0", "2000"}
				for i, w := range want {
					if !got[i].Adjustment.Equal(d(w)) {
						t.Errorf("%s adjustment = %s, want %s", got[i].MemberID, got[i].Adjustment, w)
					}
				}
				if !got[0].NetPosition.Equal(d("2000")) {
					t.Errorf("m1 net position = %s, want 2000", got[0].NetPosition)
				}
			},
		},
		{
			name: "residual cent goes to largest absolute adjustment",
			positions: []MemberPosition{
				{MemberID: "m1", Received: d("100"), Contributed: d("0")},
				{MemberID: "m2", Received: d("0"), Contributed: d("0")},
				{MemberID: "m3", Received: d("0"), Contributed: d("0")},
			},
			validateFunc: func(t *testing.T, got []MemberAdjustment) {
				// Average 33.33; raw adjustments [-66.67, 33.33, 33.33] sum to -0.01.
				if !got[0].Adjustment.Equal(d("-66.66")) {
					t.Errorf("m1 adjustment = %s, want -66.66", got[0].Adjustment)
				}
				if !got[1].Adjustment.Equal(d("33.33")) || !got[2].Adjustment.Equal(d("33.33")) {
					t.Errorf("m2/m3 adjustments = %s/%s, want 33.33", got[1].Adjustment, got[2].Adjustment)
				}
			},
		},
		{
			name: "everyone even needs no adjustment",
			positions: []MemberPosition{
				{MemberID: "m1", Received: d("10500"), Contributed: d("10500")},
				{MemberID: "m2", Received: d("10500"), Contributed: d("10500")},
			},
			validateFunc: func(t *testing.T, got []MemberAdjustment) {
				for _, a := range got {
					if !a.Adjustment.IsZero() {
						t.Errorf("%s adjustment = %s, want 0", a.MemberID, a.Adjustment)
					}
				}
			},
		},
		{
			name:      "no members should error",
			positions: nil,
			wantErr:   true,
		},
		{
			name: "duplicate member should error",
			positions: []MemberPosition{
				{MemberID: "m1"},
				{MemberID: "m1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSettlement(tt.positions)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CalculateSettlement() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if sum := SumAdjustments(got); !sum.IsZero() {
				t.Errorf("adjustments sum to %s, want exactly 0", sum)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, got)
			}
		})
	}
}

func TestCalculateSettlement_SumIsAlwaysZero(t *testing.T) {
	// Awkward divisors that force rounding residue.
	for n := 2; n <= 13; n++ {
		positions := make([]MemberPosition, n)
		for i := range positions {
			positions[i] = MemberPosition{
				MemberID:    string(rune('a' + i)),
				Received:    d("1000.01").Mul(decimal.NewFromInt(int64(i % 3))),
				Contributed: d("333.37"),
			}
		}
		got, err := CalculateSettlement(positions)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if sum := SumAdjustments(got); !sum.IsZero() {
			t.Errorf("n=%d: adjustments sum to %s", n, sum)
		}
	}
}

func TestSplitEqually(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		n       int
		want    []string
		wantErr bool
	}{
		{name: "even split", total: "300", n: 3, want: []string{"100", "100", "100"}},
		{name: "leftover cents to first recipients", total: "100", n: 3, want: []string{"33.34", "33.33", "33.33"}},
		{name: "two leftover cents", total: "0.05", n: 3, want: []string{"0.02", "0.02", "0.01"}},
		{name: "zero total", total: "0", n: 2, want: []string{"0", "0"}},
		{name: "no recipients should error", total: "10", n: 0, wantErr: true},
		{name: "negative total should error", total: "-10", n: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitEqually(d(tt.total), tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitEqually() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			sum := decimal.Zero
			for i, w := range tt.want {
				if !got[i].Equal(d(w)) {
					t.Errorf("share[%d] = %s, want %s", i, got[i], w)
				}
				sum = sum.Add(got[i])
			}
			if !sum.Equal(d(tt.total)) {
				t.Errorf("shares sum to %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestCountedAmount(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		recordedAt time.Time
		grace      int
		rate       string
		want       string
	}{
		{name: "ten days late with five day grace", recordedAt: due.AddDate(0, 0, 10), grace: 5, rate: "10", want: "3150"},
		{name: "within grace period", recordedAt: due.AddDate(0, 0, 4), grace: 5, rate: "10", want: "3500"},
		{name: "exactly at end of grace", recordedAt: due.AddDate(0, 0, 5), grace: 5, rate: "10", want: "3500"},
		{name: "late with zero rate", recordedAt: due.AddDate(0, 0, 30), grace: 0, rate: "0", want: "3500"},
		{name: "due day afternoon with no grace", recordedAt: due.Add(15 * time.Hour), grace: 0, rate: "10", want: "3500"},
		{name: "full penalty", recordedAt: due.AddDate(0, 1, 0), grace: 0, rate: "100", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountedAmount(d("3500"), tt.recordedAt, due, tt.grace, d(tt.rate))
			if !got.Equal(d(tt.want)) {
				t.Errorf("CountedAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}
