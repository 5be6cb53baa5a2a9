package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/middleware"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/pkg/api"
)

var _ api.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface. Identities are
// managed elsewhere; the service only mints and inspects tokens.
type AuthService struct {
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// IssueToken mints a token for a user. Only admins reach it.
func (s *AuthService) IssueToken(ctx context.Context, req *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error) {
	userID := strings.TrimSpace(req.Msg.UserID)
	if userID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}
	role, err := auth.ParseRole(req.Msg.Role)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	token, err := s.jwtManager.Generate(userID, role)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Token issued", "user_id", userID, "role", role, "issued_by", middleware.GetUserID(ctx))
	return connect.NewResponse(&api.IssueTokenResponse{Token: token}), nil
}

// WhoAmI returns the identity the request was authenticated as.
func (s *AuthService) WhoAmI(ctx context.Context, req *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return connect.NewResponse(&api.WhoAmIResponse{
		UserID: userID,
		Role:   string(middleware.GetRole(ctx)),
	}), nil
}
