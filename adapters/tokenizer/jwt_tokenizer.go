package tokenizer

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/ports"
	pkgerrors "github.com/pkg/errors"
)

const AudienceChallenge = "web3:challenge"
const AudienceSession = "web3:session"

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock overrides the time source used for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer signing with a symmetric secret
func NewJWTTokenizer(secret []byte, opts ...Option) ports.Tokenizer {
	j := &JWTTokenizer{
		secret: secret,
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ChallengeToToken converts a Challenge to a JWT token
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge, ttl time.Duration) (string, error) {
	if challenge.ID == "" {
		challenge.ID = uuid.New().String()
	}
	challenge.IssuedAt = j.now().Truncate(time.Second)
	challenge.ExpiresAt = challenge.IssuedAt.Add(ttl)

	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   challenge.Address,
			ID:        challenge.ID,
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceChallenge},
		},
		Nonce: challenge.Nonce,
	}

	signedToken, err := jwt.NewWithClaims(j.method, claims).SignedString(j.secret)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to sign challenge token")
	}

	return signedToken, nil
}

// TokenToChallenge converts a JWT token to a Challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	claims := &ChallengeClaims{}
	if err := j.parse(tokenStr, claims, AudienceChallenge); err != nil {
		return nil, err
	}

	return &core.Challenge{
		ID:        claims.ID,
		Address:   claims.Subject,
		Nonce:     claims.Nonce,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// SessionToToken converts a Session to a session JWT token
func (j *JWTTokenizer) SessionToToken(session *core.Session, ttl time.Duration) (string, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.IssuedAt = j.now().Truncate(time.Second)
	session.ExpiresAt = session.IssuedAt.Add(ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
	}

	signedToken, err := jwt.NewWithClaims(j.method, claims).SignedString(j.secret)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to sign session token")
	}

	return signedToken, nil
}

// TokenToSession parses a session token and returns the associated session
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	claims := &SessionClaims{}
	if err := j.parse(tokenStr, claims, AudienceSession); err != nil {
		return nil, err
	}

	return &core.Session{
		ID:        claims.ID,
		Address:   claims.Subject,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// parse verifies signature, audience and expiry. Expired or expiry-less
// tokens yield core.ErrExpiredToken, everything else core.ErrInvalidToken.
func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, audience string) error {
	if tokenStr == "" {
		return core.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, j.keyFunc,
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || (errors.Is(err, jwt.ErrTokenInvalidClaims) && missingExpiry(claims)) {
			return core.ErrExpiredToken
		}
		return core.ErrInvalidToken
	}

	if !token.Valid {
		return core.ErrInvalidToken
	}

	return nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, core.ErrInvalidToken
	}
	return j.secret, nil
}

func missingExpiry(claims jwt.Claims) bool {
	exp, err := claims.GetExpirationTime()
	return err == nil && exp == nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
