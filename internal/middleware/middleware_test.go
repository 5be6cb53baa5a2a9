package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

// echoAuth reports the caller the interceptors put in the context.
type echoAuth struct{}

func (echoAuth) IssueToken(ctx context.Context, req *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error) {
	return connect.NewResponse(&api.IssueTokenResponse{Token: "issued-by-" + GetUserID(ctx)}), nil
}

func (echoAuth) WhoAmI(ctx context.Context, req *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	return connect.NewResponse(&api.WhoAmIResponse{UserID: GetUserID(ctx), Role: string(GetRole(ctx))}), nil
}

type rpcCall struct {
	procedure string
	code      string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []rpcCall
}

func (r *recordingObserver) ObserveRPC(procedure, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rpcCall{procedure, code})
}

func (r *recordingObserver) snapshot() []rpcCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rpcCall(nil), r.calls...)
}

// lockedBuffer is written by server goroutines and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func serve(t *testing.T, interceptors ...connect.Interceptor) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(echoAuth{}, connect.WithInterceptors(interceptors...)))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func rawClient(url, authorization string) api.AuthServiceClient {
	header := connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if authorization != "" {
				req.Header().Set("Authorization", authorization)
			}
			return next(ctx, req)
		}
	})
	return api.NewAuthServiceClient(http.DefaultClient, url, connect.WithInterceptors(header))
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	url := serve(t, RequireAuth(jwtManager))

	valid, err := jwtManager.Generate("user-1", auth.RoleMember)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := auth.NewJWTManager("secret", -time.Minute).Generate("user-1", auth.RoleMember)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		authorization string
		wantCode      connect.Code
	}{
		{"missing header", "", connect.CodeUnauthenticated},
		{"wrong scheme", "Token " + valid, connect.CodeUnauthenticated},
		{"garbage token", "Bearer not-a-jwt", connect.CodeUnauthenticated},
		{"expired token", "Bearer " + expired, connect.CodeUnauthenticated},
		{"valid token", "Bearer " + valid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := rawClient(url, tt.authorization).WhoAmI(context.Background(), connect.NewRequest(&api.WhoAmIRequest{}))
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("WhoAmI failed: %v", err)
			}
			if resp.Msg.UserID != "user-1" || resp.Msg.Role != "member" {
				t.Errorf("caller = %+v, want user-1/member", resp.Msg)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	url := serve(t, RequireAuth(jwtManager), RequireAdmin(api.AuthServiceIssueTokenProcedure))
	ctx := context.Background()

	client := func(userID string, role auth.Role) api.AuthServiceClient {
		token, err := jwtManager.Generate(userID, role)
		if err != nil {
			t.Fatal(err)
		}
		return api.NewAuthServiceClient(http.DefaultClient, url, connect.WithInterceptors(BearerToken(token)))
	}

	member := client("user-1", auth.RoleMember)
	_, err := member.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{UserID: "x", Role: "admin"}))
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("member IssueToken error = %v, want permission_denied", err)
	}
	if _, err := member.WhoAmI(ctx, connect.NewRequest(&api.WhoAmIRequest{})); err != nil {
		t.Errorf("member WhoAmI failed: %v", err)
	}

	resp, err := client("chair", auth.RoleAdmin).IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{UserID: "x", Role: "member"}))
	if err != nil {
		t.Fatalf("admin IssueToken failed: %v", err)
	}
	if resp.Msg.Token != "issued-by-chair" {
		t.Errorf("token = %q", resp.Msg.Token)
	}
}

func TestStaticCaller(t *testing.T) {
	url := serve(t, StaticCaller("local-admin", auth.RoleAdmin), RequireAdmin(api.AuthServiceIssueTokenProcedure))

	client := api.NewAuthServiceClient(http.DefaultClient, url)
	resp, err := client.IssueToken(context.Background(), connect.NewRequest(&api.IssueTokenRequest{UserID: "x", Role: "member"}))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if resp.Msg.Token != "issued-by-local-admin" {
		t.Errorf("token = %q", resp.Msg.Token)
	}
}

func TestLoggingInterceptor(t *testing.T) {
	buf := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	observer := &recordingObserver{}
	url := serve(t,
		LoggingInterceptor(logger, observer),
		StaticCaller("user-1", auth.RoleMember),
		RequireAdmin(api.AuthServiceIssueTokenProcedure),
	)
	client := api.NewAuthServiceClient(http.DefaultClient, url)
	ctx := context.Background()

	if _, err := client.WhoAmI(ctx, connect.NewRequest(&api.WhoAmIRequest{})); err != nil {
		t.Fatal(err)
	}
	if _, err := client.IssueToken(ctx, connect.NewRequest(&api.IssueTokenRequest{})); err == nil {
		t.Fatal("expected permission denied")
	}

	want := []rpcCall{
		{api.AuthServiceWhoAmIProcedure, "ok"},
		{api.AuthServiceIssueTokenProcedure, "permission_denied"},
	}
	calls := observer.snapshot()
	if len(calls) != len(want) {
		t.Fatalf("observed %d calls, want %d", len(calls), len(want))
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], w)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["level"] != "WARN" || entry["code"] != "permission_denied" {
		t.Errorf("error entry = %v", entry)
	}
	if entry["user_id"] != "user-1" || entry["role"] != "member" {
		t.Errorf("caller not logged: %v", entry)
	}
}
