package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/inamate/keyframes/internal/typeid"
)

var (
	ErrInvalidToken    = errors.New("invalid control token")
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// DefaultTokenTTL is how long a control token stays valid.
const DefaultTokenTTL = 12 * time.Hour

// Service issues and checks control tokens. A control token lets its holder
// drive the shared playback session of one track.
type Service struct {
	secret    []byte
	adminHash []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewService signs tokens with secret. adminKey may be given in plain text
// or as a bcrypt hash.
func NewService(secret, adminKey string) (*Service, error) {
	hash := []byte(adminKey)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin key: %w", err)
		}
	}
	return &Service{
		secret:    []byte(secret),
		adminHash: hash,
		ttl:       DefaultTokenTTL,
		now:       time.Now,
	}, nil
}

type ControlToken struct {
	Token     string `json:"token"`
	TrackID   string `json:"trackId"`
	ExpiresAt string `json:"expiresAt"`
}

// CheckAdminKey compares key against the configured admin key.
func (s *Service) CheckAdminKey(key string) error {
	if key == "" || bcrypt.CompareHashAndPassword(s.adminHash, []byte(key)) != nil {
		return ErrInvalidAdminKey
	}
	return nil
}

// Issue creates a control token for trackID.
func (s *Service) Issue(trackID string) (*ControlToken, error) {
	if err := typeid.Validate(trackID, typeid.PrefixTrack); err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub": trackID,
		"jti": typeid.NewTokenID(),
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &ControlToken{
		Token:     signed,
		TrackID:   trackID,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	}, nil
}

// Validate checks tokenString and returns the track it controls.
func (s *Service) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	trackID, ok := claims["sub"].(string)
	if !ok || trackID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return trackID, nil
}
