package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"stakeledger/crypto"
)

const defaultClockSkew = 30 * time.Second

var (
	errMissingToken = errors.New("missing bearer token")
	errAuthDisabled = errors.New("auth secret not configured")
)

// AuthConfig controls JWT verification of callers.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	// MaxTTL bounds exp-iat. Zero disables the check.
	MaxTTL    time.Duration
	ClockSkew time.Duration
}

// Authenticator resolves the caller identity of a request from an HS256
// bearer token whose subject is the caller's address.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	nowFn  func() time.Time
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = defaultClockSkew
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		nowFn:  time.Now,
	}
}

// Caller authenticates r and returns the subject address.
func (a *Authenticator) Caller(r *http.Request) (crypto.Address, error) {
	if a == nil || len(a.secret) == 0 {
		return crypto.Address{}, errAuthDisabled
	}
	token := extractBearer(r.Header.Get("Authorization"))
	if token == "" {
		return crypto.Address{}, errMissingToken
	}
	claims, err := a.parseToken(token)
	if err != nil {
		return crypto.Address{}, err
	}
	if claims.Subject == "" {
		return crypto.Address{}, errors.New("token subject required")
	}
	addr, err := crypto.DecodeAddress(claims.Subject)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("token subject: %w", err)
	}
	return addr, nil
}

func (a *Authenticator) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithTimeFunc(a.nowFn),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	if a.cfg.MaxTTL > 0 {
		if claims.IssuedAt == nil {
			return nil, errors.New("token iat required")
		}
		if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > a.cfg.MaxTTL {
			return nil, errors.New("token lifetime exceeds maximum")
		}
	}
	return claims, nil
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// TokenRequest describes a caller token to mint.
type TokenRequest struct {
	Secret   string
	Issuer   string
	Audience string
	Subject  crypto.Address
	TTL      time.Duration
	Now      time.Time
}

// IssueToken signs an HS256 token naming req.Subject as the caller.
func IssueToken(req TokenRequest) (string, error) {
	secret := strings.TrimSpace(req.Secret)
	if secret == "" {
		return "", errAuthDisabled
	}
	if req.Subject.IsZero() {
		return "", errors.New("token subject required")
	}
	if req.TTL <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	claims := jwt.RegisteredClaims{
		Subject:   req.Subject.String(),
		Issuer:    req.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
	}
	if req.Audience != "" {
		claims.Audience = jwt.ClaimStrings{req.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
