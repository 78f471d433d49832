package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("security: invalid token")
	ErrInvalidSubject = errors.New("security: invalid subject")
)

// JWTSigner issues HS256 access tokens carrying the user id and name.
type JWTSigner struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
}

func NewJWTSigner(secret, issuer string, ttl, clockSkew time.Duration) (*JWTSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("security: jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTSigner{
		secret:    []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
	}, nil
}

func (s *JWTSigner) TTL() time.Duration {
	return s.ttl
}

type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// SignAccessToken выпускает JWT с sub=userID и exp=now+ttl.
func (s *JWTSigner) SignAccessToken(userID int64, username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-s.clockSkew)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseAndValidate checks signature, issuer and time claims at now.
func (s *JWTSigner) ParseAndValidate(token string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SubjectAsUserID парсит sub в user id.
func SubjectAsUserID(claims *AccessClaims) (int64, error) {
	if claims == nil || claims.Subject == "" {
		return 0, ErrInvalidSubject
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}

// Session turns validated claims into the domain session.
func (s *JWTSigner) Session(token string, now time.Time) (domain.Session, error) {
	claims, err := s.ParseAndValidate(token, now)
	if err != nil {
		return domain.Session{}, err
	}
	id, err := SubjectAsUserID(claims)
	if err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{UserID: id, Username: claims.Username, Token: token}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
