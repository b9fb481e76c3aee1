// Package auth turns Schedule Service access tokens into a client session.
//
// The client never verifies signatures; the service does. Claims are only read
// to decide what the UI offers.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/models"
)

// Claims carried by Schedule Service tokens
type Claims struct {
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// Session is who the client is acting as
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Role      models.Role
	ExpiresAt time.Time
}

// CanMutate reports whether the session's role may edit schedules
func (s Session) CanMutate() bool { return s.Role.CanMutate() }

// Expired reports whether the token has passed its expiry at now. Tokens
// without an expiry never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Anonymous reports whether there is no token at all
func (s Session) Anonymous() bool { return s.Token == "" }

// FromToken reads a session out of an access token without verifying it.
func FromToken(token string) (Session, error) {
	if token == "" {
		return Session{}, errors.ErrNotAuthenticated
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("read token: %w", err)
	}

	s := Session{Token: token, Username: claims.Username, Role: claims.Role}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err == nil {
			s.UserID = id
		}
	}
	return s, nil
}

// FromUser builds a session from a token and the user the service returned
// for it, overriding whatever the claims said.
func FromUser(token string, u models.User) Session {
	s, _ := FromToken(token)
	s.Token = token
	s.UserID = u.ID
	s.Username = u.Username
	s.Role = u.Role
	return s
}

// Issue signs a token for u. Used by the development server.
func Issue(u models.User, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:     u.Role,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(u.ID, 10),
		},
	})
	return token.SignedString(secret)
}

// Verify checks a token's signature and expiry. Used by the development server.
func Verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
