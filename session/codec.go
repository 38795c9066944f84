package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

const (
	// CookieName carries the encoded session.
	CookieName = "planfest_session"

	// schemaVersion is bumped whenever the claim layout changes; cookies
	// holding an older version fail decoding and force a fresh login.
	schemaVersion = 1
)

var ErrMissingSecret = errors.New("session: signing secret must be at least 32 bytes")

// Codec serializes sessions into signed, tamper-evident cookie values and
// back. Decode fails closed: any signature mismatch, schema drift, expired
// timestamp, or variant violation yields no session at all.
type Codec struct {
	secret        []byte
	ttl           time.Duration
	refreshWithin time.Duration
	secure        bool
	now           func() time.Time
}

// CodecOption tweaks codec construction.
type CodecOption func(*Codec)

// WithNow injects the clock, primarily for tests.
func WithNow(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a codec. ttl fixes session lifetime from issuance;
// refreshWithin is the threshold under which the gate refreshes the cookie;
// secure controls the cookie's Secure attribute (off only in local dev).
func NewCodec(secret []byte, ttl, refreshWithin time.Duration, secure bool, opts ...CodecOption) (*Codec, error) {
	if len(secret) < 32 {
		return nil, ErrMissingSecret
	}
	c := &Codec{
		secret:        secret,
		ttl:           ttl,
		refreshWithin: refreshWithin,
		secure:        secure,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Version            int      `json:"v"`
	Status             string   `json:"status"`
	Email              string   `json:"email"`
	Name               string   `json:"name,omitempty"`
	Picture            string   `json:"picture,omitempty"`
	Provider           string   `json:"provider"`
	NeedsOnboarding    bool     `json:"needs_onboarding,omitempty"`
	NeedsRoleSelection bool     `json:"needs_role_selection,omitempty"`
	AvailableRoles     []string `json:"available_roles,omitempty"`
	Role               string   `json:"role,omitempty"`
	UserID             string   `json:"user_id,omitempty"`
}

// Issue stamps the session with fresh issuance timestamps and encodes it.
func (c *Codec) Issue(s Session) (Session, string, error) {
	now := c.now()
	s.IssuedAt = now
	s.ExpiresAt = now.Add(c.ttl)
	encoded, err := c.Encode(s)
	return s, encoded, err
}

// Encode signs the session into a compact cookie value. The session must
// already carry issuance timestamps and satisfy the variant invariant.
func (c *Codec) Encode(s Session) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	available := make([]string, 0, len(s.AvailableRoles))
	for _, r := range s.AvailableRoles {
		available = append(available, string(r))
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Subject,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Version:            schemaVersion,
		Status:             string(s.Status),
		Email:              s.Email,
		Name:               s.Name,
		Picture:            s.Picture,
		Provider:           string(s.Provider),
		NeedsOnboarding:    s.NeedsOnboarding,
		NeedsRoleSelection: s.NeedsRoleSelection,
		AvailableRoles:     available,
		Role:               string(s.Role),
		UserID:             s.UserID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode parses and verifies a cookie value. The second return is false for
// anything less than a fully valid, unexpired, well-formed session.
func (c *Codec) Decode(value string) (*Session, bool) {
	if value == "" {
		return nil, false
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(value, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.Version != schemaVersion {
		return nil, false
	}

	provider, err := providers.ParseName(claims.Provider)
	if err != nil {
		return nil, false
	}

	available := make([]roles.Role, 0, len(claims.AvailableRoles))
	for _, name := range claims.AvailableRoles {
		r, err := roles.Parse(name)
		if err != nil {
			return nil, false
		}
		available = append(available, r)
	}
	if len(available) == 0 {
		available = nil
	}

	s := Session{
		Subject:            claims.Subject,
		Email:              claims.Email,
		Name:               claims.Name,
		Picture:            claims.Picture,
		Provider:           provider,
		IssuedAt:           claims.IssuedAt.Time,
		ExpiresAt:          claims.ExpiresAt.Time,
		Status:             Status(claims.Status),
		NeedsOnboarding:    claims.NeedsOnboarding,
		NeedsRoleSelection: claims.NeedsRoleSelection,
		AvailableRoles:     available,
		Role:               roles.Role(claims.Role),
		UserID:             claims.UserID,
	}
	if err := s.Validate(); err != nil {
		return nil, false
	}
	return &s, true
}

// Refresh extends a decoded session's lifetime from now, preserving the
// variant and every identity claim unchanged. Safe to run concurrently for
// the same user; each call produces an independent cookie value and the last
// write wins.
func (c *Codec) Refresh(s Session) (Session, string, error) {
	return c.Issue(s)
}

// NeedsRefresh reports whether the session is inside the refresh threshold.
func (c *Codec) NeedsRefresh(s *Session) bool {
	return s != nil && c.now().Add(c.refreshWithin).After(s.ExpiresAt)
}

// Cookie wraps an encoded session in the hardened cookie policy: HttpOnly,
// SameSite=Lax, Path=/, Secure outside local development.
func (c *Codec) Cookie(encoded string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookies returns deletion cookies using two independent expiry
// mechanisms (negative MaxAge and an Expires far in the past) so partial
// client cookie-jar handling still drops the session.
func (c *Codec) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		},
		{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}
