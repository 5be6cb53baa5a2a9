package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/engine"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/middleware"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/storage/memory"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type countingErrors struct {
	mu   sync.Mutex
	errs []error
}

func (c *countingErrors) EngineError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *countingErrors) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

type testServer struct {
	t      *testing.T
	url    string
	jwt    *auth.JWTManager
	errors *countingErrors
}

// setupTestServer serves both services behind the same interceptor chain the
// server binary installs.
func setupTestServer(t *testing.T, autoSettle bool) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	eng := engine.New(memory.New(), engine.Options{Logger: logger, Clock: clock})
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	errs := &countingErrors{}

	stokvelSvc := NewStokvelService(eng, Options{
		AutoSettle: autoSettle,
		Logger:     logger,
		Errors:     errs,
		Clock:      clock,
	})
	authSvc := NewAuthService(jwtManager, logger)

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(logger, nil),
		middleware.RequireAuth(jwtManager),
		middleware.RequireAdmin(AdminProcedures...),
	)
	mux := http.NewServeMux()
	mux.Handle(api.NewStokvelServiceHandler(stokvelSvc, interceptors))
	mux.Handle(api.NewAuthServiceHandler(authSvc, interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{t: t, url: server.URL, jwt: jwtManager, errors: errs}
}

func (s *testServer) token(userID string, role auth.Role) string {
	s.t.Helper()
	token, err := s.jwt.Generate(userID, role)
	if err != nil {
		s.t.Fatalf("Generate failed: %v", err)
	}
	return token
}

func (s *testServer) client(userID string, role auth.Role) api.StokvelServiceClient {
	return api.NewStokvelServiceClient(http.DefaultClient, s.url,
		connect.WithInterceptors(middleware.BearerToken(s.token(userID, role))))
}

func (s *testServer) authClient(token string) api.AuthServiceClient {
	return api.NewAuthServiceClient(http.DefaultClient, s.url,
		connect.WithInterceptors(middleware.BearerToken(token)))
}

func assertCode(t *testing.T, err error, code connect.Code, kind string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %s, want %s (err: %v)", got, code, err)
	}
	if kind != "" {
		if got := ErrorKind(err); got != kind {
			t.Fatalf("kind = %q, want %q", got, kind)
		}
	}
}

// createVehicleClub creates a threshold stokvel with n members user-1..user-n
// and returns the stokvel id and member ids.
func createVehicleClub(t *testing.T, admin api.StokvelServiceClient, target string, n int, verify bool) (string, []string) {
	t.Helper()
	ctx := context.Background()

	resp, err := admin.CreateStokvel(ctx, connect.NewRequest(&api.CreateStokvelRequest{
		Stokvel: api.Stokvel{
			Name:               "Taxi fund",
			Type:               "vehicle",
			Currency:           "ZAR",
			ContributionAmount: dec("3500"),
			TargetAmount:       dec(target),
			Rules:              api.RuleSettings{RequirePaymentVerification: &verify},
		},
	}))
	if err != nil {
		t.Fatalf("CreateStokvel failed: %v", err)
	}
	stokvelID := resp.Msg.Stokvel.ID

	memberIDs := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		m, err := admin.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{
			StokvelID:   stokvelID,
			UserID:      fmt.Sprintf("user-%d", i),
			DisplayName: fmt.Sprintf("Member %d", i),
		}))
		if err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		memberIDs = append(memberIDs, m.Msg.Member.ID)
	}
	return stokvelID, memberIDs
}

func TestCreateStokvel(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	ctx := context.Background()

	resp, err := admin.CreateStokvel(ctx, connect.NewRequest(&api.CreateStokvelRequest{
		Stokvel: api.Stokvel{
			Name:               "Funeral cover",
			Type:               "burial",
			Currency:           "ZAR",
			ContributionAmount: dec("200"),
			ManualShape:        "equal_share",
		},
	}))
	if err != nil {
		t.Fatalf("CreateStokvel failed: %v", err)
	}

	got := resp.Msg
	if got.Stokvel.ID == "" {
		t.Error("expected stokvel id to be set")
	}
	if got.Policy.Family != "manual" || got.Policy.Shape != "equal_share" {
		t.Errorf("policy = %+v, want manual/equal_share", got.Policy)
	}
	if got.Stokvel.Rules.RequirePaymentVerification == nil || !*got.Stokvel.Rules.RequirePaymentVerification {
		t.Error("verification should default to required")
	}
	if got.Stokvel.Rules.DueDayOfMonth != 1 || got.Stokvel.ValueBasis != "cash" {
		t.Errorf("defaults not applied: due day %d, value basis %q", got.Stokvel.Rules.DueDayOfMonth, got.Stokvel.ValueBasis)
	}

	fetched, err := admin.GetStokvel(ctx, connect.NewRequest(&api.GetStokvelRequest{StokvelID: got.Stokvel.ID}))
	if err != nil {
		t.Fatalf("GetStokvel failed: %v", err)
	}
	if fetched.Msg.Stokvel.Name != "Funeral cover" || !fetched.Msg.Stokvel.ContributionAmount.Equal(dec("200")) {
		t.Errorf("fetched stokvel = %+v", fetched.Msg.Stokvel)
	}

	list, err := admin.ListStokvels(ctx, connect.NewRequest(&api.ListStokvelsRequest{}))
	if err != nil {
		t.Fatalf("ListStokvels failed: %v", err)
	}
	if len(list.Msg.Stokvels) != 1 {
		t.Errorf("ListStokvels returned %d stokvels, want 1", len(list.Msg.Stokvels))
	}
}

func TestCreateStokvel_Validation(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)

	tests := []struct {
		name    string
		stokvel api.Stokvel
	}{
		{
			name:    "unknown type",
			stokvel: api.Stokvel{Name: "x", Type: "lottery", Currency: "ZAR", ContributionAmount: dec("10")},
		},
		{
			name:    "zero contribution amount",
			stokvel: api.Stokvel{Name: "x", Type: "vehicle", Currency: "ZAR", TargetAmount: dec("1000")},
		},
		{
			name: "penalty above 100",
			stokvel: api.Stokvel{
				Name: "x", Type: "grocery", Currency: "ZAR", ContributionAmount: dec("10"),
				Rules: api.RuleSettings{LatePaymentPenaltyRate: dec("150")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admin.CreateStokvel(context.Background(), connect.NewRequest(&api.CreateStokvelRequest{Stokvel: tt.stokvel}))
			assertCode(t, err, connect.CodeInvalidArgument, "validation")
		})
	}
	if srv.errors.count() != len(tests) {
		t.Errorf("engine errors observed = %d, want %d", srv.errors.count(), len(tests))
	}
}

func TestGetStokvel_NotFound(t *testing.T) {
	srv := setupTestServer(t, false)
	member := srv.client("user-1", auth.RoleMember)

	_, err := member.GetStokvel(context.Background(), connect.NewRequest(&api.GetStokvelRequest{StokvelID: "missing"}))
	assertCode(t, err, connect.CodeNotFound, "not_found")
}

func TestAuthorization(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "1000", 2, true)
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		anon := api.NewStokvelServiceClient(http.DefaultClient, srv.url)
		_, err := anon.GetStokvel(ctx, connect.NewRequest(&api.GetStokvelRequest{StokvelID: stokvelID}))
		assertCode(t, err, connect.CodeUnauthenticated, "")
	})

	t.Run("forged token", func(t *testing.T) {
		forged, err := auth.NewJWTManager("other-secret", time.Hour).Generate("admin", auth.RoleAdmin)
		if err != nil {
			t.Fatal(err)
		}
		client := api.NewStokvelServiceClient(http.DefaultClient, srv.url,
			connect.WithInterceptors(middleware.BearerToken(forged)))
		_, err = client.GetStokvel(ctx, connect.NewRequest(&api.GetStokvelRequest{StokvelID: stokvelID}))
		assertCode(t, err, connect.CodeUnauthenticated, "")
	})

	member := srv.client("user-1", auth.RoleMember)

	t.Run("member cannot administer", func(t *testing.T) {
		_, err := member.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{StokvelID: stokvelID, UserID: "user-9"}))
		assertCode(t, err, connect.CodePermissionDenied, "")

		_, err = member.ProcessPayout(ctx, connect.NewRequest(&api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1}))
		assertCode(t, err, connect.CodePermissionDenied, "")
	})

	t.Run("member records own contribution", func(t *testing.T) {
		resp, err := member.RecordContribution(ctx, connect.NewRequest(&api.RecordContributionRequest{
			StokvelID:   stokvelID,
			MemberID:    memberIDs[0],
			CycleNumber: 1,
			Amount:      dec("3500"),
		}))
		if err != nil {
			t.Fatalf("RecordContribution failed: %v", err)
		}
		c := resp.Msg.Contribution
		if c.Period != "2025-06" {
			t.Errorf("period = %q, want current month 2025-06", c.Period)
		}
		if c.Status != "unverified" {
			t.Errorf("status = %q, want unverified", c.Status)
		}
	})

	t.Run("member cannot record for someone else", func(t *testing.T) {
		_, err := member.RecordContribution(ctx, connect.NewRequest(&api.RecordContributionRequest{
			StokvelID:   stokvelID,
			MemberID:    memberIDs[1],
			CycleNumber: 1,
			Amount:      dec("3500"),
		}))
		assertCode(t, err, connect.CodePermissionDenied, "")
	})

	t.Run("member reads state", func(t *testing.T) {
		if _, err := member.GetStatus(ctx, connect.NewRequest(&api.GetStatusRequest{StokvelID: stokvelID})); err != nil {
			t.Errorf("GetStatus failed: %v", err)
		}
		if _, err := member.ListMembers(ctx, connect.NewRequest(&api.ListMembersRequest{StokvelID: stokvelID})); err != nil {
			t.Errorf("ListMembers failed: %v", err)
		}
	})
}

func TestContributionVerification(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "1000", 1, true)
	ctx := context.Background()

	record := func(amount string, hour int) api.Contribution {
		t.Helper()
		recordedAt := time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
		resp, err := admin.RecordContribution(ctx, connect.NewRequest(&api.RecordContributionRequest{
			StokvelID:   stokvelID,
			MemberID:    memberIDs[0],
			CycleNumber: 1,
			Period:      "2025-06",
			Amount:      dec(amount),
			RecordedAt:  &recordedAt,
		}))
		if err != nil {
			t.Fatalf("RecordContribution failed: %v", err)
		}
		return resp.Msg.Contribution
	}

	first := record("300", 8)
	second := record("200", 9)

	pending, err := admin.ListPendingContributions(ctx, connect.NewRequest(&api.ListPendingContributionsRequest{StokvelID: stokvelID}))
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Msg.Contributions) != 2 || pending.Msg.Contributions[0].ID != first.ID {
		t.Fatalf("pending = %+v, want both contributions oldest first", pending.Msg.Contributions)
	}

	verified, err := admin.VerifyContribution(ctx, connect.NewRequest(&api.VerifyContributionRequest{StokvelID: stokvelID, ContributionID: first.ID}))
	if err != nil {
		t.Fatalf("VerifyContribution failed: %v", err)
	}
	if verified.Msg.Contribution.Status != "verified" || !verified.Msg.Contribution.CountedAmount.Equal(dec("300")) {
		t.Errorf("verified contribution = %+v", verified.Msg.Contribution)
	}

	rejected, err := admin.RejectContribution(ctx, connect.NewRequest(&api.RejectContributionRequest{
		StokvelID:      stokvelID,
		ContributionID: second.ID,
		Reason:         "proof of payment unreadable",
	}))
	if err != nil {
		t.Fatalf("RejectContribution failed: %v", err)
	}
	if rejected.Msg.Contribution.RejectReason != "proof of payment unreadable" {
		t.Errorf("reject reason = %q", rejected.Msg.Contribution.RejectReason)
	}

	_, err = admin.VerifyContribution(ctx, connect.NewRequest(&api.VerifyContributionRequest{StokvelID: stokvelID, ContributionID: second.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition, "already_decided")

	balance, err := admin.GetMemberBalance(ctx, connect.NewRequest(&api.GetMemberBalanceRequest{StokvelID: stokvelID, MemberID: memberIDs[0]}))
	if err != nil {
		t.Fatal(err)
	}
	if !balance.Msg.VerifiedBalance.Equal(dec("300")) {
		t.Errorf("verified balance = %s, want 300", balance.Msg.VerifiedBalance)
	}

	status, err := admin.GetStatus(ctx, connect.NewRequest(&api.GetStatusRequest{StokvelID: stokvelID}))
	if err != nil {
		t.Fatal(err)
	}
	if !status.Msg.VerifiedTotal.Equal(dec("300")) || status.Msg.PendingContributions != 0 || status.Msg.ActiveMembers != 1 {
		t.Errorf("status = %+v", status.Msg)
	}
}

// contributeVerified records contributions for a club that auto-verifies.
func TestRecordContribution_OnlyAdminsBackdate(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	member := srv.client("user-1", auth.RoleMember)
	ctx := context.Background()

	verify := true
	resp, err := admin.CreateStokvel(ctx, connect.NewRequest(&api.CreateStokvelRequest{
		Stokvel: api.Stokvel{
			Name:               "Taxi fund",
			Type:               "vehicle",
			Currency:           "ZAR",
			ContributionAmount: dec("3500"),
			Rules: api.RuleSettings{
				LatePaymentPenaltyRate:     dec("10"),
				GracePeriodDays:            5,
				RequirePaymentVerification: &verify,
			},
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	stokvelID := resp.Msg.Stokvel.ID
	m, err := admin.AddMember(ctx, connect.NewRequest(&api.AddMemberRequest{StokvelID: stokvelID, UserID: "user-1"}))
	if err != nil {
		t.Fatal(err)
	}
	memberID := m.Msg.Member.ID

	dueDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	record := func(client api.StokvelServiceClient, recordedAt *time.Time) (api.Contribution, error) {
		resp, err := client.RecordContribution(ctx, connect.NewRequest(&api.RecordContributionRequest{
			StokvelID:   stokvelID,
			MemberID:    memberID,
			CycleNumber: 1,
			Period:      "2025-03",
			Amount:      dec("3500"),
			RecordedAt:  recordedAt,
		}))
		if err != nil {
			return api.Contribution{}, err
		}
		return resp.Msg.Contribution, nil
	}
	counted := func(c api.Contribution) decimal.Decimal {
		t.Helper()
		resp, err := admin.VerifyContribution(ctx, connect.NewRequest(&api.VerifyContributionRequest{StokvelID: stokvelID, ContributionID: c.ID}))
		if err != nil {
			t.Fatalf("VerifyContribution failed: %v", err)
		}
		return resp.Msg.Contribution.CountedAmount
	}

	_, err = record(member, &dueDate)
	assertCode(t, err, connect.CodePermissionDenied, "")

	// Recorded on the server clock, 2025-06-01: three months late.
	late, err := record(member, nil)
	if err != nil {
		t.Fatalf("RecordContribution failed: %v", err)
	}
	if got := counted(late); !got.Equal(dec("3150")) {
		t.Errorf("member contribution counted = %s, want 3150 after the late penalty", got)
	}

	// An admin entering a payment received on time may backdate it.
	onTime, err := record(admin, &dueDate)
	if err != nil {
		t.Fatalf("admin RecordContribution failed: %v", err)
	}
	if got := counted(onTime); !got.Equal(dec("3500")) {
		t.Errorf("backdated contribution counted = %s, want 3500", got)
	}
}

func contributeVerified(t *testing.T, admin api.StokvelServiceClient, stokvelID string, memberIDs []string, amounts ...string) {
	t.Helper()
	for i, amount := range amounts {
		_, err := admin.RecordContribution(context.Background(), connect.NewRequest(&api.RecordContributionRequest{
			StokvelID:   stokvelID,
			MemberID:    memberIDs[i],
			CycleNumber: 1,
			Period:      "2025-06",
			Amount:      dec(amount),
		}))
		if err != nil {
			t.Fatalf("RecordContribution failed: %v", err)
		}
	}
}

func TestRotationAndAutoSettle(t *testing.T) {
	srv := setupTestServer(t, true)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "3000", 3, false)
	ctx := context.Background()

	_, err := admin.ProcessPayout(ctx, connect.NewRequest(&api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1}))
	assertCode(t, err, connect.CodeFailedPrecondition, "not_ready")

	contributeVerified(t, admin, stokvelID, memberIDs, "1000", "3000", "5000")

	eval, err := admin.EvaluateTrigger(ctx, connect.NewRequest(&api.EvaluateTriggerRequest{StokvelID: stokvelID}))
	if err != nil {
		t.Fatal(err)
	}
	if !eval.Msg.Evaluation.Fired || !eval.Msg.Evaluation.Available.Equal(dec("9000")) {
		t.Fatalf("evaluation = %+v, want fired with 9000 available", eval.Msg.Evaluation)
	}

	var last *api.ProcessPayoutResponse
	for i := 0; i < 3; i++ {
		next, err := admin.GetNextEligible(ctx, connect.NewRequest(&api.GetNextEligibleRequest{StokvelID: stokvelID, Cycle: 1}))
		if err != nil {
			t.Fatal(err)
		}
		if next.Msg.Member == nil || next.Msg.Member.ID != memberIDs[i] {
			t.Fatalf("next eligible = %+v, want member #%d", next.Msg.Member, i+1)
		}

		resp, err := admin.ProcessPayout(ctx, connect.NewRequest(&api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1}))
		if err != nil {
			t.Fatalf("ProcessPayout #%d failed: %v", i+1, err)
		}
		last = resp.Msg
		if len(last.Payouts) != 1 || last.Payouts[0].MemberID != memberIDs[i] || !last.Total.Equal(dec("3000")) {
			t.Fatalf("payout #%d = %+v", i+1, last.Payouts)
		}
		if i < 2 && (last.CycleComplete || len(last.Adjustments) != 0) {
			t.Fatalf("payout #%d should not complete the cycle", i+1)
		}
	}

	if !last.CycleComplete {
		t.Fatal("third payout should complete the cycle")
	}
	want := map[string]string{memberIDs[0]: "-2000", memberIDs[1]: "0", memberIDs[2]: "2000"}
	if len(last.Adjustments) != 3 {
		t.Fatalf("adjustments = %d, want 3", len(last.Adjustments))
	}
	for _, a := range last.Adjustments {
		if !a.AdjustmentAmount.Equal(dec(want[a.MemberID])) {
			t.Errorf("member %s adjustment = %s, want %s", a.MemberID, a.AdjustmentAmount, want[a.MemberID])
		}
	}

	next, err := admin.GetNextEligible(ctx, connect.NewRequest(&api.GetNextEligibleRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Msg.Member != nil {
		t.Errorf("next eligible = %+v, want none once everyone was paid", next.Msg.Member)
	}

	_, err = admin.SettleCycle(ctx, connect.NewRequest(&api.SettleCycleRequest{StokvelID: stokvelID, Cycle: 1}))
	assertCode(t, err, connect.CodeFailedPrecondition, "already_settled")

	payouts, err := admin.ListPayouts(ctx, connect.NewRequest(&api.ListPayoutsRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if len(payouts.Msg.Payouts) != 3 {
		t.Errorf("payouts = %d, want 3", len(payouts.Msg.Payouts))
	}

	stored, err := admin.ListAdjustments(ctx, connect.NewRequest(&api.ListAdjustmentsRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Msg.Adjustments) != 3 {
		t.Fatalf("stored adjustments = %d, want 3", len(stored.Msg.Adjustments))
	}

	target := stored.Msg.Adjustments[2].ID
	marked, err := admin.MarkAdjustmentSettled(ctx, connect.NewRequest(&api.MarkAdjustmentSettledRequest{StokvelID: stokvelID, AdjustmentID: target}))
	if err != nil {
		t.Fatalf("MarkAdjustmentSettled failed: %v", err)
	}
	if !marked.Msg.Adjustment.Settled || marked.Msg.Adjustment.SettledAt == nil {
		t.Errorf("adjustment = %+v, want settled", marked.Msg.Adjustment)
	}
	_, err = admin.MarkAdjustmentSettled(ctx, connect.NewRequest(&api.MarkAdjustmentSettledRequest{StokvelID: stokvelID, AdjustmentID: target}))
	assertCode(t, err, connect.CodeFailedPrecondition, "already_decided")
}

func TestSettleCycle_Manual(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "1000", 2, false)
	ctx := context.Background()

	contributeVerified(t, admin, stokvelID, memberIDs, "1000", "1000")

	if _, err := admin.ProcessPayout(ctx, connect.NewRequest(&api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1})); err != nil {
		t.Fatal(err)
	}
	_, err := admin.SettleCycle(ctx, connect.NewRequest(&api.SettleCycleRequest{StokvelID: stokvelID, Cycle: 1}))
	assertCode(t, err, connect.CodeFailedPrecondition, "not_ready")

	resp, err := admin.ProcessPayout(ctx, connect.NewRequest(&api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Msg.CycleComplete || len(resp.Msg.Adjustments) != 0 {
		t.Fatalf("response = %+v, want complete cycle without auto-settlement", resp.Msg)
	}

	settled, err := admin.SettleCycle(ctx, connect.NewRequest(&api.SettleCycleRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatalf("SettleCycle failed: %v", err)
	}
	for _, a := range settled.Msg.Adjustments {
		if !a.AdjustmentAmount.IsZero() {
			t.Errorf("member %s adjustment = %s, want 0 for equal contributions", a.MemberID, a.AdjustmentAmount)
		}
	}
}

func TestProcessPayout_RequestKeyIsIdempotent(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "1000", 2, false)
	ctx := context.Background()

	contributeVerified(t, admin, stokvelID, memberIDs, "5000")

	req := &api.ProcessPayoutRequest{StokvelID: stokvelID, Cycle: 1, RequestKey: "req-1"}
	if _, err := admin.ProcessPayout(ctx, connect.NewRequest(req)); err != nil {
		t.Fatal(err)
	}
	_, err := admin.ProcessPayout(ctx, connect.NewRequest(req))
	assertCode(t, err, connect.CodeFailedPrecondition, "already_processed")
}

func TestMemberAdministration(t *testing.T) {
	srv := setupTestServer(t, false)
	admin := srv.client("admin", auth.RoleAdmin)
	stokvelID, memberIDs := createVehicleClub(t, admin, "1000", 2, false)
	ctx := context.Background()

	resp, err := admin.SetMemberStatus(ctx, connect.NewRequest(&api.SetMemberStatusRequest{
		StokvelID: stokvelID,
		MemberID:  memberIDs[0],
		Status:    "inactive",
	}))
	if err != nil {
		t.Fatalf("SetMemberStatus failed: %v", err)
	}
	if resp.Msg.Member.Status != "inactive" || resp.Msg.Member.RotationOrder != 1 {
		t.Errorf("member = %+v, want inactive keeping rotation order 1", resp.Msg.Member)
	}

	_, err = admin.SetMemberStatus(ctx, connect.NewRequest(&api.SetMemberStatusRequest{
		StokvelID: stokvelID,
		MemberID:  memberIDs[0],
		Status:    "retired",
	}))
	assertCode(t, err, connect.CodeInvalidArgument, "validation")

	next, err := admin.GetNextEligible(ctx, connect.NewRequest(&api.GetNextEligibleRequest{StokvelID: stokvelID, Cycle: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Msg.Member == nil || next.Msg.Member.ID != memberIDs[1] {
		t.Errorf("next eligible = %+v, want member #2 while #1 is inactive", next.Msg.Member)
	}

	members, err := admin.ListMembers(ctx, connect.NewRequest(&api.ListMembersRequest{StokvelID: stokvelID}))
	if err != nil {
		t.Fatal(err)
	}
	if len(members.Msg.Members) != 2 || members.Msg.Members[0].ID != memberIDs[0] {
		t.Errorf("members = %+v, want rotation order", members.Msg.Members)
	}
}

func TestAuthService(t *testing.T) {
	srv := setupTestServer(t, false)
	ctx := context.Background()
	adminAuth := srv.authClient(srv.token("admin", auth.RoleAdmin))

	issued, err := adminAuth.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{UserID: "user-7", Role: "Member"}))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	memberAuth := srv.authClient(issued.Msg.Token)
	who, err := memberAuth.WhoAmI(ctx, connect.NewRequest(&api.WhoAmIRequest{}))
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if who.Msg.UserID != "user-7" || who.Msg.Role != "member" {
		t.Errorf("WhoAmI = %+v, want user-7/member", who.Msg)
	}

	_, err = memberAuth.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{UserID: "user-8", Role: "admin"}))
	assertCode(t, err, connect.CodePermissionDenied, "")

	tests := []struct {
		name string
		req  *api.IssueTokenRequest
	}{
		{"missing user", &api.IssueTokenRequest{Role: "member"}},
		{"unknown role", &api.IssueTokenRequest{UserID: "user-8", Role: "treasurer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adminAuth.IssueToken(ctx, connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument, "")
		})
	}
}

func TestErrorKind_LocalErrors(t *testing.T) {
	if got := ErrorKind(nil); got != "none" {
		t.Errorf("ErrorKind(nil) = %q, want none", got)
	}
	if got := ErrorKind(connect.NewError(connect.CodeUnavailable, errors.New("down"))); got != "internal" {
		t.Errorf("ErrorKind(unavailable) = %q, want internal", got)
	}
}
