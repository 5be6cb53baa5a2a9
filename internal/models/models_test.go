package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestContributionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ContributionStatus
		to      ContributionStatus
		wantErr error
	}{
		{name: "unverified to verified", from: ContributionUnverified, to: ContributionVerified},
		{name: "unverified to rejected", from: ContributionUnverified, to: ContributionRejected},
		{name: "unverified to unverified", from: ContributionUnverified, to: ContributionUnverified, wantErr: ErrValidation},
		{name: "verified is terminal", from: ContributionVerified, to: ContributionRejected, wantErr: ErrAlreadyDecided},
		{name: "rejected is terminal", from: ContributionRejected, to: ContributionVerified, wantErr: ErrAlreadyDecided},
		{name: "verify twice", from: ContributionVerified, to: ContributionVerified, wantErr: ErrAlreadyDecided},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.from.CanTransition(tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CanTransition() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanTransition() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPeriodDueDate(t *testing.T) {
	tests := []struct {
		period  string
		dueDay  int
		want    time.Time
		wantErr bool
	}{
		{period: "2025-03", dueDay: 1, want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{period: "2025-03", dueDay: 25, want: time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)},
		{period: "2025-12", dueDay: 0, want: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{period: "2025-13", dueDay: 1, wantErr: true},
		{period: "March", dueDay: 1, wantErr: true},
		{period: "", dueDay: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.period, tt.dueDay), func(t *testing.T) {
			got, err := PeriodDueDate(tt.period, tt.dueDay)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("PeriodDueDate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PeriodDueDate() unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("PeriodDueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStokvel_Validate(t *testing.T) {
	valid := func() *Stokvel {
		return &Stokvel{
			Name:               "Soweto Taxi Club",
			Type:               TypeVehicle,
			Currency:           "ZAR",
			ContributionAmount: decimal.NewFromInt(3500),
			TargetAmount:       decimal.NewFromInt(100000),
			Rules:              DefaultRuleSettings(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Stokvel)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Stokvel) {}},
		{name: "missing name", mutate: func(s *Stokvel) { s.Name = "  " }, wantErr: true},
		{name: "unknown type", mutate: func(s *Stokvel) { s.Type = "boat" }, wantErr: true},
		{name: "missing currency", mutate: func(s *Stokvel) { s.Currency = "" }, wantErr: true},
		{name: "zero contribution", mutate: func(s *Stokvel) { s.ContributionAmount = decimal.Zero }, wantErr: true},
		{name: "negative target", mutate: func(s *Stokvel) { s.TargetAmount = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "bad manual shape", mutate: func(s *Stokvel) { s.ManualShape = "lottery" }, wantErr: true},
		{name: "bad value basis", mutate: func(s *Stokvel) { s.ValueBasis = "market" }, wantErr: true},
		{name: "penalty above 100", mutate: func(s *Stokvel) { s.Rules.LatePaymentPenaltyRate = decimal.NewFromInt(101) }, wantErr: true},
		{name: "negative grace", mutate: func(s *Stokvel) { s.Rules.GracePeriodDays = -1 }, wantErr: true},
		{name: "negative rollover", mutate: func(s *Stokvel) { s.Rules.MinimumRolloverBalance = decimal.NewFromInt(-5) }, wantErr: true},
		{name: "due day 29", mutate: func(s *Stokvel) { s.Rules.DueDayOfMonth = 29 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestMember_EligibleIn(t *testing.T) {
	m := Member{Status: MemberActive, EligibleFromCycle: 2}
	if m.EligibleIn(1) {
		t.Error("member joining for cycle 2 should not be eligible in cycle 1")
	}
	if !m.EligibleIn(2) {
		t.Error("member should be eligible in cycle 2")
	}
	m.Status = MemberInactive
	if m.EligibleIn(3) {
		t.Error("inactive member should never be eligible")
	}
}

func TestPayout_Process(t *testing.T) {
	p := Payout{ID: "p1", Status: PayoutPending}
	now := time.Now()
	if err := p.Process(now); err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if p.Status != PayoutProcessed || p.ProcessedAt == nil {
		t.Fatalf("payout not processed: %+v", p)
	}
	if err := p.Process(now); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second Process() error = %v, want ErrAlreadyProcessed", err)
	}
}

func TestPayout_ValueReceived(t *testing.T) {
	p := Payout{Amount: decimal.NewFromInt(95000), NominalValue: decimal.NewFromInt(100000)}
	if got := p.ValueReceived(ValueBasisCash); !got.Equal(decimal.NewFromInt(95000)) {
		t.Errorf("cash basis = %s, want 95000", got)
	}
	if got := p.ValueReceived(ValueBasisNominal); !got.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("nominal basis = %s, want 100000", got)
	}
	p.NominalValue = decimal.Zero
	if got := p.ValueReceived(ValueBasisNominal); !got.Equal(decimal.NewFromInt(95000)) {
		t.Errorf("nominal basis without nominal value = %s, want 95000", got)
	}
}

func TestErrorKind(t *testing.T) {
	wrapped := fmt.Errorf("%w: contribution c1", ErrAlreadyDecided)
	if got := ErrorKind(wrapped); got != "already_decided" {
		t.Errorf("ErrorKind() = %q, want already_decided", got)
	}
	if got := ErrorKind(errors.New("disk full")); got != "internal" {
		t.Errorf("ErrorKind() = %q, want internal", got)
	}
	if got := ErrorKind(nil); got != "none" {
		t.Errorf("ErrorKind(nil) = %q, want none", got)
	}
}
