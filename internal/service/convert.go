package service

import (
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/engine"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func stokvelFromAPI(in api.Stokvel) *models.Stokvel {
	rules := models.DefaultRuleSettings()
	rules.LatePaymentPenaltyRate = in.Rules.LatePaymentPenaltyRate
	rules.GracePeriodDays = in.Rules.GracePeriodDays
	rules.JoiningFee = in.Rules.JoiningFee
	rules.AllowEmergencyWithdrawals = in.Rules.AllowEmergencyWithdrawals
	rules.EmergencyWithdrawalLimit = in.Rules.EmergencyWithdrawalLimit
	rules.MinimumRolloverBalance = in.Rules.MinimumRolloverBalance
	rules.DueDayOfMonth = in.Rules.DueDayOfMonth
	if in.Rules.RequirePaymentVerification != nil {
		rules.RequirePaymentVerification = *in.Rules.RequirePaymentVerification
	}

	return &models.Stokvel{
		Name:               in.Name,
		Type:               models.StokvelType(in.Type),
		Currency:           in.Currency,
		ContributionAmount: in.ContributionAmount,
		TargetAmount:       in.TargetAmount,
		ManualShape:        models.DistributionShape(in.ManualShape),
		ValueBasis:         models.ValueBasis(in.ValueBasis),
		Rules:              rules,
	}
}

func stokvelToAPI(s *models.Stokvel) api.Stokvel {
	verify := s.Rules.RequirePaymentVerification
	return api.Stokvel{
		ID:                 s.ID,
		Name:               s.Name,
		Type:               string(s.Type),
		Currency:           s.Currency,
		ContributionAmount: s.ContributionAmount,
		TargetAmount:       s.TargetAmount,
		ManualShape:        string(s.ManualShape),
		ValueBasis:         string(s.EffectiveValueBasis()),
		Rules: api.RuleSettings{
			LatePaymentPenaltyRate:     s.Rules.LatePaymentPenaltyRate,
			GracePeriodDays:            s.Rules.GracePeriodDays,
			JoiningFee:                 s.Rules.JoiningFee,
			AllowEmergencyWithdrawals:  s.Rules.AllowEmergencyWithdrawals,
			EmergencyWithdrawalLimit:   s.Rules.EmergencyWithdrawalLimit,
			MinimumRolloverBalance:     s.Rules.MinimumRolloverBalance,
			DueDayOfMonth:              s.Rules.DueDay(),
			RequirePaymentVerification: &verify,
		},
		CreatedAt: s.CreatedAt,
	}
}

func policyToAPI(p engine.Policy) api.Policy {
	return api.Policy{Family: string(p.Family), Shape: string(p.Shape)}
}

func memberToAPI(m *models.Member) api.Member {
	return api.Member{
		ID:                m.ID,
		StokvelID:         m.StokvelID,
		UserID:            m.UserID,
		DisplayName:       m.DisplayName,
		RotationOrder:     m.RotationOrder,
		Status:            string(m.Status),
		EligibleFromCycle: m.EligibleFromCycle,
		JoinedAt:          m.JoinedAt,
	}
}

func membersToAPI(members []*models.Member) []api.Member {
	out := make([]api.Member, len(members))
	for i, m := range members {
		out[i] = memberToAPI(m)
	}
	return out
}

func contributionToAPI(c *models.Contribution) api.Contribution {
	return api.Contribution{
		ID:            c.ID,
		StokvelID:     c.StokvelID,
		MemberID:      c.MemberID,
		CycleNumber:   c.CycleNumber,
		Period:        c.Period,
		Amount:        c.Amount,
		CountedAmount: c.CountedAmount,
		Status:        string(c.Status),
		ProofRef:      c.ProofRef,
		RejectReason:  c.RejectReason,
		RecordedAt:    c.RecordedAt,
		DecidedAt:     c.DecidedAt,
	}
}

func contributionsToAPI(contributions []*models.Contribution) []api.Contribution {
	out := make([]api.Contribution, len(contributions))
	for i, c := range contributions {
		out[i] = contributionToAPI(c)
	}
	return out
}

func payoutsToAPI(payouts []*models.Payout) []api.Payout {
	out := make([]api.Payout, len(payouts))
	for i, p := range payouts {
		out[i] = api.Payout{
			ID:           p.ID,
			StokvelID:    p.StokvelID,
			MemberID:     p.MemberID,
			CycleNumber:  p.CycleNumber,
			Amount:       p.Amount,
			NominalValue: p.NominalValue,
			Kind:         string(p.Kind),
			TriggerRef:   p.TriggerRef,
			Status:       string(p.Status),
			ProcessedAt:  p.ProcessedAt,
		}
	}
	return out
}

func adjustmentToAPI(a *models.Adjustment) api.Adjustment {
	return api.Adjustment{
		ID:               a.ID,
		StokvelID:        a.StokvelID,
		MemberID:         a.MemberID,
		CycleNumber:      a.CycleNumber,
		NetPosition:      a.NetPosition,
		AdjustmentAmount: a.AdjustmentAmount,
		Settled:          a.Settled,
		CreatedAt:        a.CreatedAt,
		SettledAt:        a.SettledAt,
	}
}

func adjustmentsToAPI(adjustments []*models.Adjustment) []api.Adjustment {
	out := make([]api.Adjustment, len(adjustments))
	for i, a := range adjustments {
		out[i] = adjustmentToAPI(a)
	}
	return out
}

func evaluationToAPI(e engine.Evaluation) api.Evaluation {
	return api.Evaluation{
		Policy:         policyToAPI(e.Policy),
		Fired:          e.Fired,
		Reason:         e.Reason,
		Available:      e.Available,
		Threshold:      e.Threshold,
		MissingMembers: e.MissingMembers,
	}
}
