package auth

import (
	"crypto/rand"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SecretSize is the length of generated signing keys and the minimum
// accepted length of a configured one.
const SecretSize = 32

// Identity is who a caller proved to be at login.
type Identity struct {
	UserID   int
	Username string
	IsAdmin  bool
}

// Claims are the verified attributes carried by an access token.
type Claims struct {
	UserID    int
	IsAdmin   bool
	ExpiresAt time.Time
}

type tokenClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// NewSecret returns fresh random key material. The key lives only as long
// as the process; restarting invalidates every token signed with it.
func NewSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, "generate signing secret")
	}
	return secret, nil
}

// Tokens signs and verifies HS256 access tokens with one process-wide key.
// It is safe for concurrent use; nothing in it changes after construction.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) (*Tokens, error) {
	if len(secret) < SecretSize {
		return nil, errors.Errorf("signing secret must be at least %d bytes", SecretSize)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Tokens{secret: key, ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	claims := &tokenClaims{
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Every failure is reported
// as ErrUnauthenticated.
func (t *Tokens) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, errors.Wrap(ErrUnauthenticated, "missing token")
	}

	parsed := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if !token.Valid {
		return Claims{}, errors.Wrap(ErrUnauthenticated, "invalid token")
	}

	userID, err := strconv.Atoi(parsed.Subject)
	if err != nil || userID <= 0 {
		return Claims{}, errors.Wrap(ErrUnauthenticated, "invalid subject")
	}

	return Claims{
		UserID:    userID,
		IsAdmin:   parsed.IsAdmin,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}
