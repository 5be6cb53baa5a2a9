package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/calculator"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// Ledger is a read view over a stokvel's contributions and payouts.
// Only verified contributions count toward any balance, at their
// counted (post-penalty) value.
type Ledger struct {
	contributions []*models.Contribution
	payouts       []*models.Payout
}

// NewLedger builds a ledger view. Contributions are expected in RecordedAt order.
func NewLedger(contributions []*models.Contribution, payouts []*models.Payout) *Ledger {
	return &Ledger{contributions: contributions, payouts: payouts}
}

// VerifiedBalance is the member's verified contributions across all cycles.
func (l *Ledger) VerifiedBalance(memberID string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.contributions {
		if c.MemberID == memberID && c.IsVerified() {
			total = total.Add(c.CountedAmount)
		}
	}
	return total
}

// VerifiedTotal is the stokvel's verified contributions across all cycles.
func (l *Ledger) VerifiedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.contributions {
		if c.IsVerified() {
			total = total.Add(c.CountedAmount)
		}
	}
	return total
}

// Disbursed is the cash paid out by processed payouts.
func (l *Ledger) Disbursed() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.payouts {
		if p.Status == models.PayoutProcessed {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Available is the pool balance: verified total less disbursements.
func (l *Ledger) Available() decimal.Decimal {
	return l.VerifiedTotal().Sub(l.Disbursed())
}

// Unverified returns contributions awaiting a decision, oldest first.
func (l *Ledger) Unverified() []*models.Contribution {
	var out []*models.Contribution
	for _, c := range l.contributions {
		if c.Status == models.ContributionUnverified {
			out = append(out, c)
		}
	}
	return out
}

// VerifiedMembersForPeriod returns the members with a verified contribution
// tagged with period.
func (l *Ledger) VerifiedMembersForPeriod(period string) map[string]bool {
	paid := make(map[string]bool)
	for _, c := range l.contributions {
		if c.Period == period && c.IsVerified() {
			paid[c.MemberID] = true
		}
	}
	return paid
}

// ContributedInCycle is the member's verified contributions tagged with cycle.
func (l *Ledger) ContributedInCycle(memberID string, cycle int) decimal.Decimal {
	total := decimal.Zero
	for _, c := range l.contributions {
		if c.MemberID == memberID && c.CycleNumber == cycle && c.IsVerified() {
			total = total.Add(c.CountedAmount)
		}
	}
	return total
}

// CountedValue computes what a contribution is worth once verified, applying
// the late-payment penalty when it was recorded after the grace period.
func CountedValue(c *models.Contribution, rules models.RuleSettings) (decimal.Decimal, error) {
	due, err := models.PeriodDueDate(c.Period, rules.DueDay())
	if err != nil {
		return decimal.Zero, err
	}
	return calculator.CountedAmount(c.Amount, c.RecordedAt, due, rules.GracePeriodDays, rules.LatePaymentPenaltyRate), nil
}
