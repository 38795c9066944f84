// Package session defines the application session and its cookie codec. The
// cookie is the session: there is no server-side table, and the codec's
// decode is the only authority on whether a session is valid.
package session

import (
	"errors"
	"time"

	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

// Status discriminates the two session variants.
type Status string

const (
	// StatusTemporary marks a verified identity whose profile or role setup
	// is still incomplete.
	StatusTemporary Status = "temporary"
	// StatusComplete marks a fully resolved session authorizing normal access.
	StatusComplete Status = "complete"
)

var ErrInvalidVariant = errors.New("session: fields do not form exactly one variant")

// Session is the decoded session record. It is exactly one of two variants:
// temporary (NeedsOnboarding or NeedsRoleSelection set, no Role) or complete
// (Role and UserID set, no temporary fields).
type Session struct {
	Subject  string
	Email    string
	Name     string
	Picture  string
	Provider providers.Name

	IssuedAt  time.Time
	ExpiresAt time.Time

	Status Status

	// Temporary variant only.
	NeedsOnboarding    bool
	NeedsRoleSelection bool
	AvailableRoles     []roles.Role

	// Complete variant only.
	Role   roles.Role
	UserID string
}

// NewTemporary builds the temporary variant from validated identity claims.
// Exactly one of needsOnboarding / needsRoleSelection must be set by the
// caller; availableRoles accompanies role selection.
func NewTemporary(claims identity.Claims, needsOnboarding, needsRoleSelection bool, availableRoles []roles.Role) Session {
	return Session{
		Subject:            claims.Subject,
		Email:              claims.Email,
		Name:               claims.Name,
		Picture:            claims.Picture,
		Provider:           claims.Provider,
		Status:             StatusTemporary,
		NeedsOnboarding:    needsOnboarding,
		NeedsRoleSelection: needsRoleSelection,
		AvailableRoles:     availableRoles,
	}
}

// NewComplete builds the complete variant from validated identity claims plus
// the resolved role and internal user id.
func NewComplete(claims identity.Claims, role roles.Role, userID string) Session {
	return Session{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		Provider: claims.Provider,
		Status:   StatusComplete,
		Role:     role,
		UserID:   userID,
	}
}

// Complete reports whether the session is the complete variant.
func (s *Session) Complete() bool {
	return s != nil && s.Status == StatusComplete
}

// Temporary reports whether the session is a temporary variant.
func (s *Session) Temporary() bool {
	return s != nil && s.Status == StatusTemporary
}

// Validate enforces the exactly-one-variant invariant. The codec refuses to
// encode or decode a session that fails it.
func (s *Session) Validate() error {
	if s.Subject == "" || s.Email == "" {
		return ErrInvalidVariant
	}
	switch s.Status {
	case StatusTemporary:
		if s.Role != "" || s.UserID != "" {
			return ErrInvalidVariant
		}
		if s.NeedsOnboarding == s.NeedsRoleSelection {
			return ErrInvalidVariant
		}
		if s.NeedsRoleSelection && len(s.AvailableRoles) < 2 {
			return ErrInvalidVariant
		}
	case StatusComplete:
		if !s.Role.Valid() || s.UserID == "" {
			return ErrInvalidVariant
		}
		if s.NeedsOnboarding || s.NeedsRoleSelection || len(s.AvailableRoles) > 0 {
			return ErrInvalidVariant
		}
	default:
		return ErrInvalidVariant
	}
	return nil
}
