package utils // package utils provides token signing, hashing and formatting helpers

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/hrpass/internal/model"
)

// Token decoding failures.  Callers at the HTTP boundary collapse both to
// one generic response; the distinction is only for logs.
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// PassClaims is the signed claim set of a pass token.  It is a snapshot of
// the pass at issuance and is never re-signed; consumption is tracked in
// the passes table, not in the token.  TokenID equals the pass id.
type PassClaims struct {
	Subject   string         `json:"sub"`
	PassType  model.PassType `json:"ptype"`
	Scope     []string       `json:"scope"`
	IssuedAt  int64          `json:"iat"` // epoch seconds
	ExpiresAt int64          `json:"exp"` // epoch seconds
	MaxUses   int            `json:"mu"`
	UsedCount int            `json:"uc"`
	TokenID   string         `json:"jti"`
}

// HasScope reports whether the claims grant s.
func (c PassClaims) HasScope(s string) bool { return slices.Contains(c.Scope, s) }

// ClaimsForPass builds the claim set for a freshly issued pass.
func ClaimsForPass(p model.Pass, issuedAt time.Time) PassClaims {
	return PassClaims{
		Subject:   p.Subject,
		PassType:  p.Type,
		Scope:     slices.Clone(p.Scope),
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: p.ExpiresAt.Unix(),
		MaxUses:   p.MaxUses,
		UsedCount: p.UsedCount,
		TokenID:   p.ID,
	}
}

// wireClaims adapts PassClaims to jwt.Claims.  The registered fields carry
// sub, iat, exp and jti so the library validates expiry.
type wireClaims struct {
	jwt.RegisteredClaims
	PassType  model.PassType `json:"ptype"`
	Scope     []string       `json:"scope"`
	MaxUses   int            `json:"mu"`
	UsedCount int            `json:"uc"`
}

// PassCodec signs and verifies pass tokens with a single server-held HMAC
// secret.  Only HS256 is accepted on decode, which rules out algorithm
// confusion (none, RS256 with the secret as public key, and so on).
type PassCodec struct {
	secret []byte
	now    func() time.Time
}

// NewPassCodec returns a codec using secret.  now defaults to time.Now.
func NewPassCodec(secret string, now func() time.Time) *PassCodec {
	if now == nil {
		now = time.Now
	}
	return &PassCodec{secret: []byte(secret), now: now}
}

// Encode signs pc.  Identical claims and secret always produce the same
// token string.
func (c *PassCodec) Encode(pc PassClaims) (string, error) {
	wc := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pc.Subject,
			IssuedAt:  jwt.NewNumericDate(time.Unix(pc.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(pc.ExpiresAt, 0)),
			ID:        pc.TokenID,
		},
		PassType:  pc.PassType,
		Scope:     pc.Scope,
		MaxUses:   pc.MaxUses,
		UsedCount: pc.UsedCount,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(c.secret)
}

// Decode verifies the signature and expiry of token and returns its
// claims.  A token is expired once now reaches its exp.  Every failure
// other than expiry, including malformed input and foreign algorithms,
// is reported as ErrInvalidSignature.
func (c *PassCodec) Decode(token string) (PassClaims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(token, &wc,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidSignature
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return PassClaims{}, ErrTokenExpired
		}
		return PassClaims{}, ErrInvalidSignature
	}
	if wc.ID == "" {
		return PassClaims{}, ErrInvalidSignature
	}
	pc := PassClaims{
		Subject:   wc.Subject,
		PassType:  wc.PassType,
		Scope:     wc.Scope,
		ExpiresAt: wc.ExpiresAt.Unix(),
		MaxUses:   wc.MaxUses,
		UsedCount: wc.UsedCount,
		TokenID:   wc.ID,
	}
	if wc.IssuedAt != nil {
		pc.IssuedAt = wc.IssuedAt.Unix()
	}
	return pc, nil
}
