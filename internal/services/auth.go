package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/requestdata"
)

type JWTClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type SessionResult struct {
	Token    string
	ClientID uuid.UUID
}

// AuthService issues and verifies the session tokens the intake flow runs
// under. A session starts from an email address alone; the client row itself
// is created lazily on the first progress save.
type AuthService interface {
	StartSession(ctx context.Context, email string) (*SessionResult, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log          *logger.Logger
	clientRepo   repos.ClientRepo
	jwtSecretKey string
	sessionTTL   time.Duration
}

func NewAuthService(log *logger.Logger, clientRepo repos.ClientRepo, jwtSecretKey string, sessionTTL time.Duration) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		clientRepo:   clientRepo,
		jwtSecretKey: jwtSecretKey,
		sessionTTL:   sessionTTL,
	}
}

func (as *authService) StartSession(ctx context.Context, email string) (*SessionResult, error) {
	email = repos.NormalizeEmail(email)
	if email == "" {
		return nil, apierr.Validation("email required")
	}

	// Returning clients resume their identity; new ones get a fresh one.
	clientID := uuid.New()
	existing, err := as.clientRepo.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, fmt.Errorf("look up client by email: %w", err)
	}
	if existing != nil {
		clientID = existing.ID
	}

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
		Role:  requestdata.RoleClient,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	as.log.Debug("Session started", "client_id", clientID)
	return &SessionResult{Token: signed, ClientID: clientID}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthorized("missing token")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apierr.Unauthorized("failed to parse token: %v", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, apierr.Unauthorized("invalid or expired token")
	}
	clientID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid subject in token")
	}

	role := claims.Role
	if role == "" {
		role = requestdata.RoleClient
	}
	rd := &requestdata.RequestData{
		ClientID: clientID,
		Email:    claims.Email,
		Role:     role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}
