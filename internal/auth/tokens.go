package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/streamcatalog/backend/internal/models"
)

var (
	// ErrInvalidToken indicates the token failed signature or shape validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the claim set embedded in every issued token.
type Claims struct {
	UserID string `json:"_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates signed access and refresh tokens. The
// signing secret is fixed at construction for the process lifetime.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewTokenIssuer constructs an issuer signing HS256 tokens with the provided
// secret and lifetimes.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// RefreshTTL reports the configured refresh token lifetime so callers can
// align cookie and stored-row expiries with the token itself.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// IssueAccessToken creates a short-lived bearer token for the user.
func (i *TokenIssuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	return i.sign(user, i.accessTTL)
}

// IssueRefreshToken creates the long-lived token used solely to mint new
// pairs. Persisting it on the user row is the caller's responsibility.
func (i *TokenIssuer) IssueRefreshToken(user models.User) (string, time.Time, error) {
	return i.sign(user, i.refreshTTL)
}

// IssuePair mints a fresh access and refresh token for the user.
func (i *TokenIssuer) IssuePair(user models.User) (models.TokenPair, error) {
	access, accessExp, err := i.IssueAccessToken(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, refreshExp, err := i.IssueRefreshToken(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Validate checks the token signature and claim shape. It deliberately skips
// lifetime validation: refresh expiry is tracked on the user row, and the
// bearer middleware compares the expiry claim itself.
func (i *TokenIssuer) Validate(tokenString string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if claims.UserID == "" {
		return Claims{}, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}

	return claims, nil
}

func (i *TokenIssuer) sign(user models.User, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(ttl)

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expires, nil
}

func (i *TokenIssuer) now() time.Time {
	if i.NowFunc != nil {
		return i.NowFunc()
	}
	return time.Now().UTC()
}
