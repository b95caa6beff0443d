package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/budgetvault-backend/internal/platform/ctxutil"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

// JWTClaims identifies the actor recorded in created_by.
type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	Enabled() bool
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(subject string, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
}

// NewAuthService returns a verifier for HS256 bearer tokens. An empty secret
// disables authentication.
func NewAuthService(baseLog *logger.Logger, jwtSecretKey string) AuthService {
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		jwtSecretKey: strings.TrimSpace(jwtSecretKey),
	}
}

func (as *authService) Enabled() bool { return as.jwtSecretKey != "" }

func (as *authService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !as.Enabled() {
		return "", fmt.Errorf("auth not configured")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("subject required")
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	if !as.Enabled() {
		return ctx, fmt.Errorf("auth not configured")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	actor := strings.TrimSpace(claims.Subject)
	if actor == "" {
		return ctx, fmt.Errorf("token has no subject")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		Actor:       actor,
	}), nil
}
