package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/server/middleware"
)

// OperatorID identifies the single operator account. It is stable across
// restarts so tokens survive a redeploy with the same secret.
var OperatorID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("learn-overlay:operator"))

// Claims represents operator token claims.
type Claims struct {
	OperatorID uuid.UUID `json:"operator_id"`
	jwt.RegisteredClaims
}

// GetOperatorID implements middleware.OperatorIDGetter.
func (c *Claims) GetOperatorID() uuid.UUID {
	return c.OperatorID
}

// AsTokenValidator returns a TokenValidator adapter for this JWTService.
// This allows the JWTService to be used with middleware without creating import cycles.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return &jwtServiceValidator{service: s}
}

type jwtServiceValidator struct {
	service *JWTService
}

func (v *jwtServiceValidator) ValidateToken(tokenString string) (middleware.OperatorIDGetter, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenAudience marks tokens as operator API credentials.
const TokenAudience = "learn-overlay-operator"

// JWTService issues and validates HS256 operator tokens.
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg, now: time.Now}
}

// GenerateToken signs a token for operatorID. Each token gets a random jti.
func (s *JWTService) GenerateToken(operatorID uuid.UUID) (string, error) {
	now := s.now()
	claims := &Claims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   operatorID.String(),
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// tokenFailures maps parser sentinels to the reason reported to callers.
var tokenFailures = []struct {
	err    error
	reason string
}{
	{jwt.ErrTokenSignatureInvalid, "invalid token signature"},
	{jwt.ErrTokenExpired, "token expired"},
	{jwt.ErrTokenNotValidYet, "token not valid yet"},
	{jwt.ErrTokenMalformed, "malformed token"},
	{jwt.ErrTokenInvalidAudience, "token audience mismatch"},
	{jwt.ErrTokenInvalidIssuer, "token issuer mismatch"},
}

// ValidateToken parses tokenString and returns its claims. Only HS256 tokens
// with this service's issuer and the operator audience are accepted.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(s.config.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		for _, f := range tokenFailures {
			if errors.Is(err, f.err) {
				return nil, fmt.Errorf("%s: %w", f.reason, err)
			}
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.OperatorID == uuid.Nil {
		return nil, errors.New("token has no operator id")
	}
	return claims, nil
}
