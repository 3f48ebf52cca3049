// Package auth issues guest tokens and resolves the caller's session for
// each request.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// AdminKeyHeader carries the back-office key.
const AdminKeyHeader = "X-Admin-Key"

// Claims identify the booking a guest token was issued for.
type Claims struct {
	BookingID  string `json:"bid"`
	PropertyID string `json:"pid"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies guest tokens with HS256.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// IssueGuestToken returns a token that lets the guest view and cancel b.
// It stays valid until the day after check-out.
func (i *Issuer) IssueGuestToken(b *model.Booking) (string, error) {
	now := i.now()
	claims := Claims{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   b.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(b.CheckOut.AddDays(1).Time()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies a guest token. Any failure is apperror.ErrUnauthorized.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ErrUnauthorized.WithMessage("token has expired")
		}
		return nil, apperror.ErrUnauthorized
	}
	if claims.BookingID == "" {
		return nil, apperror.ErrUnauthorized
	}
	return claims, nil
}

// Session is who the current request acts as. It is built once per request
// by Middleware and only changed through its methods.
type Session struct {
	bookingID  string
	propertyID string
	admin      bool
	expiresAt  time.Time
}

// BookingID is the booking a guest session may act on.
func (s *Session) BookingID() string { return s.bookingID }

// IsAdmin reports whether the back-office key was presented.
func (s *Session) IsAdmin() bool { return s.admin }

// Authenticated reports whether the session carries any identity.
func (s *Session) Authenticated() bool { return s.admin || s.bookingID != "" }

// CanAccess reports whether the session may view or cancel b.
func (s *Session) CanAccess(b *model.Booking) bool {
	return s.admin || (s.bookingID != "" && s.bookingID == b.ID)
}

// Clear drops every identity from the session.
func (s *Session) Clear() {
	*s = Session{}
}

// MarshalJSON renders the session for the client.
func (s *Session) MarshalJSON() ([]byte, error) {
	out := struct {
		Authenticated bool       `json:"authenticated"`
		Admin         bool       `json:"admin"`
		BookingID     string     `json:"bookingId,omitempty"`
		PropertyID    string     `json:"propertyId,omitempty"`
		ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	}{
		Authenticated: s.Authenticated(),
		Admin:         s.admin,
		BookingID:     s.bookingID,
		PropertyID:    s.propertyID,
	}
	if !s.expiresAt.IsZero() {
		out.ExpiresAt = &s.expiresAt
	}
	return json.Marshal(out)
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the request's session, or an anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return s
	}
	return &Session{}
}

// Middleware resolves the session from a bearer guest token and the admin
// key header. Bad credentials leave the session anonymous; routes decide
// whether that is enough.
func Middleware(issuer *Issuer, adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := &Session{}
			if key := r.Header.Get(AdminKeyHeader); adminKey != "" && key != "" &&
				subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
				s.admin = true
			}
			if token, ok := bearerToken(r); ok {
				if claims, err := issuer.Parse(token); err == nil {
					s.bookingID = claims.BookingID
					s.propertyID = claims.PropertyID
					s.expiresAt = claims.ExpiresAt.Time
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
