package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keygate/keygate/pkg/apperrors"
)

// Claims holds the identity facts embedded in an issued token.
type Claims struct {
	UserID   int64
	Email    string
	TenantID int64
	IsAdmin  bool
}

// tokenClaims is the wire representation used for JWT encoding.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	TenantID int64  `json:"tenant_id"`
	IsAdmin  bool   `json:"is_admin"`
}

// TokenIssuer encodes identity claims into signed, expiring bearer tokens
// and decodes them back. Tokens are stateless: there is no revocation list,
// logout is purely client-side discard.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer signing with an HS256 symmetric secret.
func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue creates a signed bearer token carrying claims, valid for ttl.
func (ti *TokenIssuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := ti.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    claims.Email,
		TenantID: claims.TenantID,
		IsAdmin:  claims.IsAdmin,
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Decode validates a bearer token and returns its claims.
// Bad signature, malformed structure, and expiry all map to InvalidToken.
func (ti *TokenIssuer) Decode(token string) (*Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidToken, err, "could not validate credentials")
	}

	userID, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInvalidToken, "invalid subject claim: %s", parsed.Subject)
	}

	return &Claims{
		UserID:   userID,
		Email:    parsed.Email,
		TenantID: parsed.TenantID,
		IsAdmin:  parsed.IsAdmin,
	}, nil
}
