package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// StokvelServiceName is the fully-qualified name of the StokvelService service.
	StokvelServiceName = "stokvel.v1.StokvelService"
	// AuthServiceName is the fully-qualified name of the AuthService service.
	AuthServiceName = "stokvel.v1.AuthService"
)

// Procedure names, used for routing and for per-procedure interceptors.
const (
	StokvelServiceCreateStokvelProcedure            = "/stokvel.v1.StokvelService/CreateStokvel"
	StokvelServiceGetStokvelProcedure               = "/stokvel.v1.StokvelService/GetStokvel"
	StokvelServiceListStokvelsProcedure             = "/stokvel.v1.StokvelService/ListStokvels"
	StokvelServiceAddMemberProcedure                = "/stokvel.v1.StokvelService/AddMember"
	StokvelServiceListMembersProcedure              = "/stokvel.v1.StokvelService/ListMembers"
	StokvelServiceSetMemberStatusProcedure          = "/stokvel.v1.StokvelService/SetMemberStatus"
	StokvelServiceBackfillMemberProcedure           = "/stokvel.v1.StokvelService/BackfillMember"
	StokvelServiceRecordContributionProcedure       = "/stokvel.v1.StokvelService/RecordContribution"
	StokvelServiceVerifyContributionProcedure       = "/stokvel.v1.StokvelService/VerifyContribution"
	StokvelServiceRejectContributionProcedure       = "/stokvel.v1.StokvelService/RejectContribution"
	StokvelServiceListPendingContributionsProcedure = "/stokvel.v1.StokvelService/ListPendingContributions"
	StokvelServiceGetMemberBalanceProcedure         = "/stokvel.v1.StokvelService/GetMemberBalance"
	StokvelServiceGetStatusProcedure                = "/stokvel.v1.StokvelService/GetStatus"
	StokvelServiceGetNextEligibleProcedure          = "/stokvel.v1.StokvelService/GetNextEligible"
	StokvelServiceEvaluateTriggerProcedure          = "/stokvel.v1.StokvelService/EvaluateTrigger"
	StokvelServiceProcessPayoutProcedure            = "/stokvel.v1.StokvelService/ProcessPayout"
	StokvelServiceListPayoutsProcedure              = "/stokvel.v1.StokvelService/ListPayouts"
	StokvelServiceSettleCycleProcedure              = "/stokvel.v1.StokvelService/SettleCycle"
	StokvelServiceListAdjustmentsProcedure          = "/stokvel.v1.StokvelService/ListAdjustments"
	StokvelServiceMarkAdjustmentSettledProcedure    = "/stokvel.v1.StokvelService/MarkAdjustmentSettled"
	AuthServiceIssueTokenProcedure                  = "/stokvel.v1.AuthService/IssueToken"
	AuthServiceWhoAmIProcedure                      = "/stokvel.v1.AuthService/WhoAmI"
)

// StokvelServiceHandler is implemented by the server side of StokvelService.
type StokvelServiceHandler interface {
	CreateStokvel(context.Context, *connect.Request[CreateStokvelRequest]) (*connect.Response[CreateStokvelResponse], error)
	GetStokvel(context.Context, *connect.Request[GetStokvelRequest]) (*connect.Response[GetStokvelResponse], error)
	ListStokvels(context.Context, *connect.Request[ListStokvelsRequest]) (*connect.Response[ListStokvelsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	ListMembers(context.Context, *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error)
	SetMemberStatus(context.Context, *connect.Request[SetMemberStatusRequest]) (*connect.Response[SetMemberStatusResponse], error)
	BackfillMember(context.Context, *connect.Request[BackfillMemberRequest]) (*connect.Response[BackfillMemberResponse], error)
	RecordContribution(context.Context, *connect.Request[RecordContributionRequest]) (*connect.Response[RecordContributionResponse], error)
	VerifyContribution(context.Context, *connect.Request[VerifyContributionRequest]) (*connect.Response[VerifyContributionResponse], error)
	RejectContribution(context.Context, *connect.Request[RejectContributionRequest]) (*connect.Response[RejectContributionResponse], error)
	ListPendingContributions(context.Context, *connect.Request[ListPendingContributionsRequest]) (*connect.Response[ListPendingContributionsResponse], error)
	GetMemberBalance(context.Context, *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	GetNextEligible(context.Context, *connect.Request[GetNextEligibleRequest]) (*connect.Response[GetNextEligibleResponse], error)
	EvaluateTrigger(context.Context, *connect.Request[EvaluateTriggerRequest]) (*connect.Response[EvaluateTriggerResponse], error)
	ProcessPayout(context.Context, *connect.Request[ProcessPayoutRequest]) (*connect.Response[ProcessPayoutResponse], error)
	ListPayouts(context.Context, *connect.Request[ListPayoutsRequest]) (*connect.Response[ListPayoutsResponse], error)
	SettleCycle(context.Context, *connect.Request[SettleCycleRequest]) (*connect.Response[SettleCycleResponse], error)
	ListAdjustments(context.Context, *connect.Request[ListAdjustmentsRequest]) (*connect.Response[ListAdjustmentsResponse], error)
	MarkAdjustmentSettled(context.Context, *connect.Request[MarkAdjustmentSettledRequest]) (*connect.Response[MarkAdjustmentSettledResponse], error)
}

// NewStokvelServiceHandler builds an HTTP handler serving every StokvelService
// procedure. It returns the path prefix to mount the handler on.
func NewStokvelServiceHandler(svc StokvelServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	createStokvelHandler := connect.NewUnaryHandler(StokvelServiceCreateStokvelProcedure, svc.CreateStokvel, opts...)
	getStokvelHandler := connect.NewUnaryHandler(StokvelServiceGetStokvelProcedure, svc.GetStokvel, opts...)
	listStokvelsHandler := connect.NewUnaryHandler(StokvelServiceListStokvelsProcedure, svc.ListStokvels, opts...)
	addMemberHandler := connect.NewUnaryHandler(StokvelServiceAddMemberProcedure, svc.AddMember, opts...)
	listMembersHandler := connect.NewUnaryHandler(StokvelServiceListMembersProcedure, svc.ListMembers, opts...)
	setMemberStatusHandler := connect.NewUnaryHandler(StokvelServiceSetMemberStatusProcedure, svc.SetMemberStatus, opts...)
	backfillMemberHandler := connect.NewUnaryHandler(StokvelServiceBackfillMemberProcedure, svc.BackfillMember, opts...)
	recordContributionHandler := connect.NewUnaryHandler(StokvelServiceRecordContributionProcedure, svc.RecordContribution, opts...)
	verifyContributionHandler := connect.NewUnaryHandler(StokvelServiceVerifyContributionProcedure, svc.VerifyContribution, opts...)
	rejectContributionHandler := connect.NewUnaryHandler(StokvelServiceRejectContributionProcedure, svc.RejectContribution, opts...)
	listPendingContributionsHandler := connect.NewUnaryHandler(StokvelServiceListPendingContributionsProcedure, svc.ListPendingContributions, opts...)
	getMemberBalanceHandler := connect.NewUnaryHandler(StokvelServiceGetMemberBalanceProcedure, svc.GetMemberBalance, opts...)
	getStatusHandler := connect.NewUnaryHandler(StokvelServiceGetStatusProcedure, svc.GetStatus, opts...)
	getNextEligibleHandler := connect.NewUnaryHandler(StokvelServiceGetNextEligibleProcedure, svc.GetNextEligible, opts...)
	evaluateTriggerHandler := connect.NewUnaryHandler(StokvelServiceEvaluateTriggerProcedure, svc.EvaluateTrigger, opts...)
	processPayoutHandler := connect.NewUnaryHandler(StokvelServiceProcessPayoutProcedure, svc.ProcessPayout, opts...)
	listPayoutsHandler := connect.NewUnaryHandler(StokvelServiceListPayoutsProcedure, svc.ListPayouts, opts...)
	settleCycleHandler := connect.NewUnaryHandler(StokvelServiceSettleCycleProcedure, svc.SettleCycle, opts...)
	listAdjustmentsHandler := connect.NewUnaryHandler(StokvelServiceListAdjustmentsProcedure, svc.ListAdjustments, opts...)
	markAdjustmentSettledHandler := connect.NewUnaryHandler(StokvelServiceMarkAdjustmentSettledProcedure, svc.MarkAdjustmentSettled, opts...)
	return "/" + StokvelServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case StokvelServiceCreateStokvelProcedure:
			createStokvelHandler.ServeHTTP(w, r)
		case StokvelServiceGetStokvelProcedure:
			getStokvelHandler.ServeHTTP(w, r)
		case StokvelServiceListStokvelsProcedure:
			listStokvelsHandler.ServeHTTP(w, r)
		case StokvelServiceAddMemberProcedure:
			addMemberHandler.ServeHTTP(w, r)
		case StokvelServiceListMembersProcedure:
			listMembersHandler.ServeHTTP(w, r)
		case StokvelServiceSetMemberStatusProcedure:
			setMemberStatusHandler.ServeHTTP(w, r)
		case StokvelServiceBackfillMemberProcedure:
			backfillMemberHandler.ServeHTTP(w, r)
		case StokvelServiceRecordContributionProcedure:
			recordContributionHandler.ServeHTTP(w, r)
		case StokvelServiceVerifyContributionProcedure:
			verifyContributionHandler.ServeHTTP(w, r)
		case StokvelServiceRejectContributionProcedure:
			rejectContributionHandler.ServeHTTP(w, r)
		case StokvelServiceListPendingContributionsProcedure:
			listPendingContributionsHandler.ServeHTTP(w, r)
		case StokvelServiceGetMemberBalanceProcedure:
			getMemberBalanceHandler.ServeHTTP(w, r)
		case StokvelServiceGetStatusProcedure:
			getStatusHandler.ServeHTTP(w, r)
		case StokvelServiceGetNextEligibleProcedure:
			getNextEligibleHandler.ServeHTTP(w, r)
		case StokvelServiceEvaluateTriggerProcedure:
			evaluateTriggerHandler.ServeHTTP(w, r)
		case StokvelServiceProcessPayoutProcedure:
			processPayoutHandler.ServeHTTP(w, r)
		case StokvelServiceListPayoutsProcedure:
			listPayoutsHandler.ServeHTTP(w, r)
		case StokvelServiceSettleCycleProcedure:
			settleCycleHandler.ServeHTTP(w, r)
		case StokvelServiceListAdjustmentsProcedure:
			listAdjustmentsHandler.ServeHTTP(w, r)
		case StokvelServiceMarkAdjustmentSettledProcedure:
			markAdjustmentSettledHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// StokvelServiceClient is a client for StokvelService.
type StokvelServiceClient interface {
	CreateStokvel(context.Context, *connect.Request[CreateStokvelRequest]) (*connect.Response[CreateStokvelResponse], error)
	GetStokvel(context.Context, *connect.Request[GetStokvelRequest]) (*connect.Response[GetStokvelResponse], error)
	ListStokvels(context.Context, *connect.Request[ListStokvelsRequest]) (*connect.Response[ListStokvelsResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	ListMembers(context.Context, *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error)
	SetMemberStatus(context.Context, *connect.Request[SetMemberStatusRequest]) (*connect.Response[SetMemberStatusResponse], error)
	BackfillMember(context.Context, *connect.Request[BackfillMemberRequest]) (*connect.Response[BackfillMemberResponse], error)
	RecordContribution(context.Context, *connect.Request[RecordContributionRequest]) (*connect.Response[RecordContributionResponse], error)
	VerifyContribution(context.Context, *connect.Request[VerifyContributionRequest]) (*connect.Response[VerifyContributionResponse], error)
	RejectContribution(context.Context, *connect.Request[RejectContributionRequest]) (*connect.Response[RejectContributionResponse], error)
	ListPendingContributions(context.Context, *connect.Request[ListPendingContributionsRequest]) (*connect.Response[ListPendingContributionsResponse], error)
	GetMemberBalance(context.Context, *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	GetNextEligible(context.Context, *connect.Request[GetNextEligibleRequest]) (*connect.Response[GetNextEligibleResponse], error)
	EvaluateTrigger(context.Context, *connect.Request[EvaluateTriggerRequest]) (*connect.Response[EvaluateTriggerResponse], error)
	ProcessPayout(context.Context, *connect.Request[ProcessPayoutRequest]) (*connect.Response[ProcessPayoutResponse], error)
	ListPayouts(context.Context, *connect.Request[ListPayoutsRequest]) (*connect.Response[ListPayoutsResponse], error)
	SettleCycle(context.Context, *connect.Request[SettleCycleRequest]) (*connect.Response[SettleCycleResponse], error)
	ListAdjustments(context.Context, *connect.Request[ListAdjustmentsRequest]) (*connect.Response[ListAdjustmentsResponse], error)
	MarkAdjustmentSettled(context.Context, *connect.Request[MarkAdjustmentSettledRequest]) (*connect.Response[MarkAdjustmentSettledResponse], error)
}

// NewStokvelServiceClient constructs a client for StokvelService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewStokvelServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) StokvelServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &stokvelServiceClient{
		createStokvel:            connect.NewClient[CreateStokvelRequest, CreateStokvelResponse](httpClient, baseURL+StokvelServiceCreateStokvelProcedure, opts...),
		getStokvel:               connect.NewClient[GetStokvelRequest, GetStokvelResponse](httpClient, baseURL+StokvelServiceGetStokvelProcedure, opts...),
		listStokvels:             connect.NewClient[ListStokvelsRequest, ListStokvelsResponse](httpClient, baseURL+StokvelServiceListStokvelsProcedure, opts...),
		addMember:                connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+StokvelServiceAddMemberProcedure, opts...),
		listMembers:              connect.NewClient[ListMembersRequest, ListMembersResponse](httpClient, baseURL+StokvelServiceListMembersProcedure, opts...),
		setMemberStatus:          connect.NewClient[SetMemberStatusRequest, SetMemberStatusResponse](httpClient, baseURL+StokvelServiceSetMemberStatusProcedure, opts...),
		backfillMember:           connect.NewClient[BackfillMemberRequest, BackfillMemberResponse](httpClient, baseURL+StokvelServiceBackfillMemberProcedure, opts...),
		recordContribution:       connect.NewClient[RecordContributionRequest, RecordContributionResponse](httpClient, baseURL+StokvelServiceRecordContributionProcedure, opts...),
		verifyContribution:       connect.NewClient[VerifyContributionRequest, VerifyContributionResponse](httpClient, baseURL+StokvelServiceVerifyContributionProcedure, opts...),
		rejectContribution:       connect.NewClient[RejectContributionRequest, RejectContributionResponse](httpClient, baseURL+StokvelServiceRejectContributionProcedure, opts...),
		listPendingContributions: connect.NewClient[ListPendingContributionsRequest, ListPendingContributionsResponse](httpClient, baseURL+StokvelServiceListPendingContributionsProcedure, opts...),
		getMemberBalance:         connect.NewClient[GetMemberBalanceRequest, GetMemberBalanceResponse](httpClient, baseURL+StokvelServiceGetMemberBalanceProcedure, opts...),
		getStatus:                connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+StokvelServiceGetStatusProcedure, opts...),
		getNextEligible:          connect.NewClient[GetNextEligibleRequest, GetNextEligibleResponse](httpClient, baseURL+StokvelServiceGetNextEligibleProcedure, opts...),
		evaluateTrigger:          connect.NewClient[EvaluateTriggerRequest, EvaluateTriggerResponse](httpClient, baseURL+StokvelServiceEvaluateTriggerProcedure, opts...),
		processPayout:            connect.NewClient[ProcessPayoutRequest, ProcessPayoutResponse](httpClient, baseURL+StokvelServiceProcessPayoutProcedure, opts...),
		listPayouts:              connect.NewClient[ListPayoutsRequest, ListPayoutsResponse](httpClient, baseURL+StokvelServiceListPayoutsProcedure, opts...),
		settleCycle:              connect.NewClient[SettleCycleRequest, SettleCycleResponse](httpClient, baseURL+StokvelServiceSettleCycleProcedure, opts...),
		listAdjustments:          connect.NewClient[ListAdjustmentsRequest, ListAdjustmentsResponse](httpClient, baseURL+StokvelServiceListAdjustmentsProcedure, opts...),
		markAdjustmentSettled:    connect.NewClient[MarkAdjustmentSettledRequest, MarkAdjustmentSettledResponse](httpClient, baseURL+StokvelServiceMarkAdjustmentSettledProcedure, opts...),
	}
}

type stokvelServiceClient struct {
	createStokvel            *connect.Client[CreateStokvelRequest, CreateStokvelResponse]
	getStokvel               *connect.Client[GetStokvelRequest, GetStokvelResponse]
	listStokvels             *connect.Client[ListStokvelsRequest, ListStokvelsResponse]
	addMember                *connect.Client[AddMemberRequest, AddMemberResponse]
	listMembers              *connect.Client[ListMembersRequest, ListMembersResponse]
	setMemberStatus          *connect.Client[SetMemberStatusRequest, SetMemberStatusResponse]
	backfillMember           *connect.Client[BackfillMemberRequest, BackfillMemberResponse]
	recordContribution       *connect.Client[RecordContributionRequest, RecordContributionResponse]
	verifyContribution       *connect.Client[VerifyContributionRequest, VerifyContributionResponse]
	rejectContribution       *connect.Client[RejectContributionRequest, RejectContributionResponse]
	listPendingContributions *connect.Client[ListPendingContributionsRequest, ListPendingContributionsResponse]
	getMemberBalance         *connect.Client[GetMemberBalanceRequest, GetMemberBalanceResponse]
	getStatus                *connect.Client[GetStatusRequest, GetStatusResponse]
	getNextEligible          *connect.Client[GetNextEligibleRequest, GetNextEligibleResponse]
	evaluateTrigger          *connect.Client[EvaluateTriggerRequest, EvaluateTriggerResponse]
	processPayout            *connect.Client[ProcessPayoutRequest, ProcessPayoutResponse]
	listPayouts              *connect.Client[ListPayoutsRequest, ListPayoutsResponse]
	settleCycle              *connect.Client[SettleCycleRequest, SettleCycleResponse]
	listAdjustments          *connect.Client[ListAdjustmentsRequest, ListAdjustmentsResponse]
	markAdjustmentSettled    *connect.Client[MarkAdjustmentSettledRequest, MarkAdjustmentSettledResponse]
}

func (c *stokvelServiceClient) CreateStokvel(ctx context.Context, req *connect.Request[CreateStokvelRequest]) (*connect.Response[CreateStokvelResponse], error) {
	return c.createStokvel.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) GetStokvel(ctx context.Context, req *connect.Request[GetStokvelRequest]) (*connect.Response[GetStokvelResponse], error) {
	return c.getStokvel.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ListStokvels(ctx context.Context, req *connect.Request[ListStokvelsRequest]) (*connect.Response[ListStokvelsResponse], error) {
	return c.listStokvels.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) SetMemberStatus(ctx context.Context, req *connect.Request[SetMemberStatusRequest]) (*connect.Response[SetMemberStatusResponse], error) {
	return c.setMemberStatus.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) BackfillMember(ctx context.Context, req *connect.Request[BackfillMemberRequest]) (*connect.Response[BackfillMemberResponse], error) {
	return c.backfillMember.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) RecordContribution(ctx context.Context, req *connect.Request[RecordContributionRequest]) (*connect.Response[RecordContributionResponse], error) {
	return c.recordContribution.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) VerifyContribution(ctx context.Context, req *connect.Request[VerifyContributionRequest]) (*connect.Response[VerifyContributionResponse], error) {
	return c.verifyContribution.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) RejectContribution(ctx context.Context, req *connect.Request[RejectContributionRequest]) (*connect.Response[RejectContributionResponse], error) {
	return c.rejectContribution.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ListPendingContributions(ctx context.Context, req *connect.Request[ListPendingContributionsRequest]) (*connect.Response[ListPendingContributionsResponse], error) {
	return c.listPendingContributions.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) GetMemberBalance(ctx context.Context, req *connect.Request[GetMemberBalanceRequest]) (*connect.Response[GetMemberBalanceResponse], error) {
	return c.getMemberBalance.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) GetNextEligible(ctx context.Context, req *connect.Request[GetNextEligibleRequest]) (*connect.Response[GetNextEligibleResponse], error) {
	return c.getNextEligible.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) EvaluateTrigger(ctx context.Context, req *connect.Request[EvaluateTriggerRequest]) (*connect.Response[EvaluateTriggerResponse], error) {
	return c.evaluateTrigger.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ProcessPayout(ctx context.Context, req *connect.Request[ProcessPayoutRequest]) (*connect.Response[ProcessPayoutResponse], error) {
	return c.processPayout.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ListPayouts(ctx context.Context, req *connect.Request[ListPayoutsRequest]) (*connect.Response[ListPayoutsResponse], error) {
	return c.listPayouts.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) SettleCycle(ctx context.Context, req *connect.Request[SettleCycleRequest]) (*connect.Response[SettleCycleResponse], error) {
	return c.settleCycle.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) ListAdjustments(ctx context.Context, req *connect.Request[ListAdjustmentsRequest]) (*connect.Response[ListAdjustmentsResponse], error) {
	return c.listAdjustments.CallUnary(ctx, req)
}

func (c *stokvelServiceClient) MarkAdjustmentSettled(ctx context.Context, req *connect.Request[MarkAdjustmentSettledRequest]) (*connect.Response[MarkAdjustmentSettledResponse], error) {
	return c.markAdjustmentSettled.CallUnary(ctx, req)
}

// AuthServiceHandler is implemented by the server side of AuthService.
type AuthServiceHandler interface {
	IssueToken(context.Context, *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error)
	WhoAmI(context.Context, *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler serving every AuthService
// procedure. It returns the path prefix to mount the handler on.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	issueTokenHandler := connect.NewUnaryHandler(AuthServiceIssueTokenProcedure, svc.IssueToken, opts...)
	whoAmIHandler := connect.NewUnaryHandler(AuthServiceWhoAmIProcedure, svc.WhoAmI, opts...)
	return "/" + AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AuthServiceIssueTokenProcedure:
			issueTokenHandler.ServeHTTP(w, r)
		case AuthServiceWhoAmIProcedure:
			whoAmIHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// AuthServiceClient is a client for AuthService.
type AuthServiceClient interface {
	IssueToken(context.Context, *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error)
	WhoAmI(context.Context, *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error)
}

// NewAuthServiceClient constructs a client for AuthService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &authServiceClient{
		issueToken: connect.NewClient[IssueTokenRequest, IssueTokenResponse](httpClient, baseURL+AuthServiceIssueTokenProcedure, opts...),
		whoAmI:     connect.NewClient[WhoAmIRequest, WhoAmIResponse](httpClient, baseURL+AuthServiceWhoAmIProcedure, opts...),
	}
}

type authServiceClient struct {
	issueToken *connect.Client[IssueTokenRequest, IssueTokenResponse]
	whoAmI     *connect.Client[WhoAmIRequest, WhoAmIResponse]
}

func (c *authServiceClient) IssueToken(ctx context.Context, req *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error) {
	return c.issueToken.CallUnary(ctx, req)
}

func (c *authServiceClient) WhoAmI(ctx context.Context, req *connect.Request[WhoAmIRequest]) (*connect.Response[WhoAmIResponse], error) {
	return c.whoAmI.CallUnary(ctx, req)
}
