package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/anon-inbox/internal/domain"
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionConfig holds session configuration.
type SessionConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// SessionService issues and validates signed session tokens.
type SessionService struct {
	config SessionConfig
	now    func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig) *SessionService {
	if config.TTL == 0 {
		config.TTL = DefaultSessionTTL
	}
	return &SessionService{config: config, now: time.Now}
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}

// SessionClaims carries the principal inside the token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username            string `json:"username"`
	IsVerified          bool   `json:"isVerified"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

// Issue signs a session token for p.
func (s *SessionService) Issue(p domain.Principal) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.config.TTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		Username:            p.Username,
		IsVerified:          p.IsVerified,
		IsAcceptingMessages: p.IsAcceptingMessages,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Validate checks a session token and returns its principal.
func (s *SessionService) Validate(tokenString string) (domain.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired()}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	return domain.Principal{
		ID:                  claims.Subject,
		Username:            claims.Username,
		IsVerified:          claims.IsVerified,
		IsAcceptingMessages: claims.IsAcceptingMessages,
	}, nil
}
