// Package auth verifies access tokens of marketplace users
//
// Tokens are HS256 JWTs issued by the identity service sharing the secret key.
// Issue exists for tooling and tests
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

const (
	defaultAccessTokenTTL = 15 * time.Minute
	defaultSigningMethod  = "HS256"
)

var (
	ErrNoToken      = errors.New("access token not found")
	ErrInvalidToken = errors.New("access token is invalid")
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Lifetime of issued access tokens
	// If not set than default is used
	AccessTTL time.Duration
}

type Verifier struct {
	key       string
	alg       jwt.SigningMethod
	accessTTL time.Duration
}

func New(cfg Config) (*Verifier, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method %q", cfg.Alg)
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}

	return &Verifier{
		key:       cfg.SecretKey,
		alg:       alg,
		accessTTL: cfg.AccessTTL,
	}, nil
}

// Issue signs access token for the user
func (v *Verifier) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(v.accessTTL)

	token := jwt.NewWithClaims(v.alg, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	access, err := token.SignedString([]byte(v.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}
	return access, expiresAt, nil
}

// Parse and validate access token
func (v *Verifier) ParseAccess(access string) (uuid.UUID, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(v.key), nil
		},
		jwt.WithValidMethods([]string{v.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: no user id", ErrInvalidToken)
	}

	return claims.UserID, nil
}

// Auth returns id of the user who sent the request
// Token is read from 'Authorization: Bearer <token>' header
func (v *Verifier) Auth(r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get("Authorization")
	access, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || access == "" {
		return uuid.Nil, ErrNoToken
	}
	return v.ParseAccess(access)
}
