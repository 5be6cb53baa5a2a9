package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/engine"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/middleware"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

var _ api.StokvelServiceHandler = (*StokvelService)(nil)

// AdminProcedures are the StokvelService procedures only admins may call.
var AdminProcedures = []string{
	api.StokvelServiceCreateStokvelProcedure,
	api.StokvelServiceAddMemberProcedure,
	api.StokvelServiceSetMemberStatusProcedure,
	api.StokvelServiceBackfillMemberProcedure,
	api.StokvelServiceVerifyContributionProcedure,
	api.StokvelServiceRejectContributionProcedure,
	api.StokvelServiceProcessPayoutProcedure,
	api.StokvelServiceSettleCycleProcedure,
	api.StokvelServiceMarkAdjustmentSettledProcedure,
	api.AuthServiceIssueTokenProcedure,
}

// ErrorObserver counts failed engine operations.
type ErrorObserver interface {
	EngineError(err error)
}

// Options configures a StokvelService.
type Options struct {
	// AutoSettle runs settlement as soon as a payout completes a
	// RotationSingle cycle.
	AutoSettle bool

	Logger *slog.Logger
	Errors ErrorObserver
	Clock  func() time.Time
}

// StokvelService implements the StokvelService RPC interface on top of the
// engine.
type StokvelService struct {
	engine     *engine.Engine
	autoSettle bool
	logger     *slog.Logger
	errors     ErrorObserver
	now        func() time.Time
}

// NewStokvelService creates a StokvelService.
func NewStokvelService(eng *engine.Engine, opts Options) *StokvelService {
	s := &StokvelService{
		engine:     eng,
		autoSettle: opts.AutoSettle,
		logger:     opts.Logger,
		errors:     opts.Errors,
		now:        opts.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// fail converts an engine error into a connect error carrying its kind.
func (s *StokvelService) fail(op string, err error) error {
	if s.errors != nil {
		s.errors.EngineError(err)
	}
	code := connectCode(err)
	if code == connect.CodeInternal {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err, "kind", models.ErrorKind(err))
	}
	connectErr := connect.NewError(code, err)
	connectErr.Meta().Set(errorKindHeader, models.ErrorKind(err))
	return connectErr
}

func (s *StokvelService) CreateStokvel(ctx context.Context, req *connect.Request[api.CreateStokvelRequest]) (*connect.Response[api.CreateStokvelResponse], error) {
	stokvel := stokvelFromAPI(req.Msg.Stokvel)
	if err := s.engine.CreateStokvel(ctx, stokvel); err != nil {
		return nil, s.fail("CreateStokvel", err)
	}
	_, policy, err := s.engine.GetStokvel(ctx, stokvel.ID)
	if err != nil {
		return nil, s.fail("CreateStokvel", err)
	}
	return connect.NewResponse(&api.CreateStokvelResponse{
		Stokvel: stokvelToAPI(stokvel),
		Policy:  policyToAPI(policy),
	}), nil
}

func (s *StokvelService) GetStokvel(ctx context.Context, req *connect.Request[api.GetStokvelRequest]) (*connect.Response[api.GetStokvelResponse], error) {
	stokvel, policy, err := s.engine.GetStokvel(ctx, req.Msg.StokvelID)
	if err != nil {
		return nil, s.fail("GetStokvel", err)
	}
	return connect.NewResponse(&api.GetStokvelResponse{
		Stokvel: stokvelToAPI(stokvel),
		Policy:  policyToAPI(policy),
	}), nil
}

func (s *StokvelService) ListStokvels(ctx context.Context, req *connect.Request[api.ListStokvelsRequest]) (*connect.Response[api.ListStokvelsResponse], error) {
	stokvels, err := s.engine.ListStokvels(ctx)
	if err != nil {
		return nil, s.fail("ListStokvels", err)
	}
	out := make([]api.Stokvel, len(stokvels))
	for i, stokvel := range stokvels {
		out[i] = stokvelToAPI(stokvel)
	}
	return connect.NewResponse(&api.ListStokvelsResponse{Stokvels: out}), nil
}

func (s *StokvelService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	member, err := s.engine.AddMember(ctx, engine.NewMember{
		StokvelID:   req.Msg.StokvelID,
		UserID:      req.Msg.UserID,
		DisplayName: req.Msg.DisplayName,
		JoinCycle:   req.Msg.JoinCycle,
		Status:      models.MemberStatus(req.Msg.Status),
	})
	if err != nil {
		return nil, s.fail("AddMember", err)
	}
	return connect.NewResponse(&api.AddMemberResponse{Member: memberToAPI(member)}), nil
}

func (s *StokvelService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	members, err := s.engine.ListMembers(ctx, req.Msg.StokvelID)
	if err != nil {
		return nil, s.fail("ListMembers", err)
	}
	return connect.NewResponse(&api.ListMembersResponse{Members: membersToAPI(members)}), nil
}

func (s *StokvelService) SetMemberStatus(ctx context.Context, req *connect.Request[api.SetMemberStatusRequest]) (*connect.Response[api.SetMemberStatusResponse], error) {
	member, err := s.engine.SetMemberStatus(ctx, req.Msg.StokvelID, req.Msg.MemberID, models.MemberStatus(req.Msg.Status))
	if err != nil {
		return nil, s.fail("SetMemberStatus", err)
	}
	return connect.NewResponse(&api.SetMemberStatusResponse{Member: memberToAPI(member)}), nil
}

func (s *StokvelService) BackfillMember(ctx context.Context, req *connect.Request[api.BackfillMemberRequest]) (*connect.Response[api.BackfillMemberResponse], error) {
	member, err := s.engine.BackfillMember(ctx, req.Msg.StokvelID, req.Msg.MemberID, req.Msg.Cycle)
	if err != nil {
		return nil, s.fail("BackfillMember", err)
	}
	return connect.NewResponse(&api.BackfillMemberResponse{Member: memberToAPI(member)}), nil
}

// RecordContribution records a contribution. Members may only record their
// own, stamped with the server clock; admins may record for anyone and may
// backdate a payment that was received earlier.
func (s *StokvelService) RecordContribution(ctx context.Context, req *connect.Request[api.RecordContributionRequest]) (*connect.Response[api.RecordContributionResponse], error) {
	msg := req.Msg
	if !middleware.IsAdmin(ctx) {
		// recorded_at decides the late penalty.
		if msg.RecordedAt != nil {
			return nil, connect.NewError(connect.CodePermissionDenied,
				fmt.Errorf("%w: only admins may set recorded_at", auth.ErrForbidden))
		}
		member, err := s.engine.GetMember(ctx, msg.StokvelID, msg.MemberID)
		if err != nil {
			return nil, s.fail("RecordContribution", err)
		}
		if member.UserID != middleware.GetUserID(ctx) {
			return nil, connect.NewError(connect.CodePermissionDenied, auth.ErrForbidden)
		}
	}

	period := msg.Period
	if period == "" {
		period = s.now().UTC().Format("2006-01")
	}
	in := engine.NewContribution{
		StokvelID:   msg.StokvelID,
		MemberID:    msg.MemberID,
		CycleNumber: msg.CycleNumber,
		Period:      period,
		Amount:      msg.Amount,
		ProofRef:    msg.ProofRef,
	}
	if msg.RecordedAt != nil {
		in.RecordedAt = *msg.RecordedAt
	}

	c, err := s.engine.RecordContribution(ctx, in)
	if err != nil {
		return nil, s.fail("RecordContribution", err)
	}
	return connect.NewResponse(&api.RecordContributionResponse{Contribution: contributionToAPI(c)}), nil
}

func (s *StokvelService) VerifyContribution(ctx context.Context, req *connect.Request[api.VerifyContributionRequest]) (*connect.Response[api.VerifyContributionResponse], error) {
	c, err := s.engine.VerifyContribution(ctx, req.Msg.StokvelID, req.Msg.ContributionID)
	if err != nil {
		return nil, s.fail("VerifyContribution", err)
	}
	return connect.NewResponse(&api.VerifyContributionResponse{Contribution: contributionToAPI(c)}), nil
}

func (s *StokvelService) RejectContribution(ctx context.Context, req *connect.Request[api.RejectContributionRequest]) (*connect.Response[api.RejectContributionResponse], error) {
	c, err := s.engine.RejectContribution(ctx, req.Msg.StokvelID, req.Msg.ContributionID, req.Msg.Reason)
	if err != nil {
		return nil, s.fail("RejectContribution", err)
	}
	return connect.NewResponse(&api.RejectContributionResponse{Contribution: contributionToAPI(c)}), nil
}

func (s *StokvelService) ListPendingContributions(ctx context.Context, req *connect.Request[api.ListPendingContributionsRequest]) (*connect.Response[api.ListPendingContributionsResponse], error) {
	contributions, err := s.engine.ListUnverified(ctx, req.Msg.StokvelID)
	if err != nil {
		return nil, s.fail("ListPendingContributions", err)
	}
	return connect.NewResponse(&api.ListPendingContributionsResponse{Contributions: contributionsToAPI(contributions)}), nil
}

func (s *StokvelService) GetMemberBalance(ctx context.Context, req *connect.Request[api.GetMemberBalanceRequest]) (*connect.Response[api.GetMemberBalanceResponse], error) {
	balance, err := s.engine.VerifiedBalance(ctx, req.Msg.StokvelID, req.Msg.MemberID)
	if err != nil {
		return nil, s.fail("GetMemberBalance", err)
	}
	return connect.NewResponse(&api.GetMemberBalanceResponse{VerifiedBalance: balance}), nil
}

func (s *StokvelService) GetStatus(ctx context.Context, req *connect.Request[api.GetStatusRequest]) (*connect.Response[api.GetStatusResponse], error) {
	st, err := s.engine.GetStatus(ctx, req.Msg.StokvelID)
	if err != nil {
		return nil, s.fail("GetStatus", err)
	}
	return connect.NewResponse(&api.GetStatusResponse{
		Stokvel:              stokvelToAPI(st.Stokvel),
		Policy:               policyToAPI(st.Policy),
		VerifiedTotal:        st.VerifiedTotal,
		Disbursed:            st.Disbursed,
		Available:            st.Available,
		ActiveMembers:        st.ActiveMembers,
		PendingContributions: st.PendingContributions,
	}), nil
}

func (s *StokvelService) GetNextEligible(ctx context.Context, req *connect.Request[api.GetNextEligibleRequest]) (*connect.Response[api.GetNextEligibleResponse], error) {
	member, err := s.engine.NextEligible(ctx, req.Msg.StokvelID, req.Msg.Cycle)
	if err != nil {
		return nil, s.fail("GetNextEligible", err)
	}
	resp := &api.GetNextEligibleResponse{}
	if member != nil {
		m := memberToAPI(member)
		resp.Member = &m
	}
	return connect.NewResponse(resp), nil
}

func (s *StokvelService) EvaluateTrigger(ctx context.Context, req *connect.Request[api.EvaluateTriggerRequest]) (*connect.Response[api.EvaluateTriggerResponse], error) {
	eval, err := s.engine.EvaluateTrigger(ctx, req.Msg.StokvelID, engine.TriggerInput{
		Period:   req.Msg.Period,
		SignalID: req.Msg.SignalID,
	})
	if err != nil {
		return nil, s.fail("EvaluateTrigger", err)
	}
	return connect.NewResponse(&api.EvaluateTriggerResponse{Evaluation: evaluationToAPI(eval)}), nil
}

// ProcessPayout pays out one trigger firing and, with auto-settle on,
// settles the cycle it completes.
func (s *StokvelService) ProcessPayout(ctx context.Context, req *connect.Request[api.ProcessPayoutRequest]) (*connect.Response[api.ProcessPayoutResponse], error) {
	msg := req.Msg
	in := engine.ProcessRequest{
		StokvelID:    msg.StokvelID,
		Cycle:        msg.Cycle,
		Period:       msg.Period,
		SignalID:     msg.SignalID,
		RequestKey:   msg.RequestKey,
		NominalValue: msg.NominalValue,
	}
	if msg.Emergency != nil {
		in.Emergency = &engine.EmergencyRequest{
			MemberID: msg.Emergency.MemberID,
			Amount:   msg.Emergency.Amount,
		}
	}

	plan, err := s.engine.Process(ctx, in)
	if err != nil {
		return nil, s.fail("ProcessPayout", err)
	}

	resp := &api.ProcessPayoutResponse{
		TriggerRef:    plan.TriggerRef,
		Shape:         string(plan.Shape),
		Evaluation:    evaluationToAPI(plan.Evaluation),
		Payouts:       payoutsToAPI(plan.Payouts),
		Total:         plan.Total(),
		CycleComplete: plan.CycleComplete,
	}

	if s.autoSettle && plan.CycleComplete {
		adjustments, err := s.engine.Settle(ctx, msg.StokvelID, msg.Cycle)
		switch {
		case err == nil:
			resp.Adjustments = adjustmentsToAPI(adjustments)
		case errors.Is(err, models.ErrAlreadySettled), errors.Is(err, models.ErrConflict):
			// Another caller got there first; the payouts stand.
			s.logger.Info("auto-settle skipped", "stokvel_id", msg.StokvelID, "cycle", msg.Cycle, "reason", err)
		default:
			// The payouts are committed, so report them and leave settlement
			// to an explicit SettleCycle.
			s.logger.Error("auto-settle failed", "stokvel_id", msg.StokvelID, "cycle", msg.Cycle, "error", err)
			if s.errors != nil {
				s.errors.EngineError(err)
			}
		}
	}
	return connect.NewResponse(resp), nil
}

func (s *StokvelService) ListPayouts(ctx context.Context, req *connect.Request[api.ListPayoutsRequest]) (*connect.Response[api.ListPayoutsResponse], error) {
	payouts, err := s.engine.ListPayouts(ctx, req.Msg.StokvelID, req.Msg.Cycle)
	if err != nil {
		return nil, s.fail("ListPayouts", err)
	}
	return connect.NewResponse(&api.ListPayoutsResponse{Payouts: payoutsToAPI(payouts)}), nil
}

func (s *StokvelService) SettleCycle(ctx context.Context, req *connect.Request[api.SettleCycleRequest]) (*connect.Response[api.SettleCycleResponse], error) {
	adjustments, err := s.engine.Settle(ctx, req.Msg.StokvelID, req.Msg.Cycle)
	if err != nil {
		return nil, s.fail("SettleCycle", err)
	}
	return connect.NewResponse(&api.SettleCycleResponse{Adjustments: adjustmentsToAPI(adjustments)}), nil
}

func (s *StokvelService) ListAdjustments(ctx context.Context, req *connect.Request[api.ListAdjustmentsRequest]) (*connect.Response[api.ListAdjustmentsResponse], error) {
	adjustments, err := s.engine.ListAdjustments(ctx, req.Msg.StokvelID, req.Msg.Cycle)
	if err != nil {
		return nil, s.fail("ListAdjustments", err)
	}
	return connect.NewResponse(&api.ListAdjustmentsResponse{Adjustments: adjustmentsToAPI(adjustments)}), nil
}

func (s *StokvelService) MarkAdjustmentSettled(ctx context.Context, req *connect.Request[api.MarkAdjustmentSettledRequest]) (*connect.Response[api.MarkAdjustmentSettledResponse], error) {
	a, err := s.engine.MarkAdjustmentSettled(ctx, req.Msg.StokvelID, req.Msg.AdjustmentID)
	if err != nil {
		return nil, s.fail("MarkAdjustmentSettled", err)
	}
	return connect.NewResponse(&api.MarkAdjustmentSettledResponse{Adjustment: adjustmentToAPI(a)}), nil
}
