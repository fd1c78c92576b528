package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the player's token
const CookieName = "access_token"

// ErrPlayerNotAuthenticated is returned when a request carries no valid identity
var ErrPlayerNotAuthenticated = errors.New("player not authenticated")

// Authenticator resolves the player behind a request
type Authenticator interface {
	PlayerID(r *http.Request) (string, error)
}

// Config configures a JWT authenticator
type Config struct {
	Secret   []byte
	Issuer   string
	GuestTTL time.Duration
	Now      func() time.Time
}

// JWT verifies and issues HS256 tokens whose subject is the player id
type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type playerClaims struct {
	jwt.RegisteredClaims
	Guest bool `json:"guest,omitempty"`
}

// NewJWT creates an authenticator
func NewJWT(cfg Config) (*JWT, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth secret is required")
	}
	if cfg.GuestTTL <= 0 {
		cfg.GuestTTL = 30 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWT{secret: cfg.Secret, issuer: cfg.Issuer, ttl: cfg.GuestTTL, now: cfg.Now}, nil
}

// PlayerID reads a bearer token or the access_token cookie
func (a *JWT) PlayerID(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return "", ErrPlayerNotAuthenticated
	}
	return a.Verify(token)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Verify validates token and returns its subject
func (a *JWT) Verify(token string) (string, error) {
	var claims playerClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlayerNotAuthenticated, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrPlayerNotAuthenticated)
	}
	return claims.Subject, nil
}

// Issue signs a token for playerID
func (a *JWT) Issue(playerID string, guest bool) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Guest: guest,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// IssueGuest creates a fresh anonymous identity
func (a *JWT) IssueGuest() (playerID, token string, expires time.Time, err error) {
	playerID = "guest-" + uuid.NewString()
	token, expires, err = a.Issue(playerID, true)
	return playerID, token, expires, err
}
