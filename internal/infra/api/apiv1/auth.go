package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/domain/model"
)

const (
	adminRole    = "admin"
	customerRole = "customer"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager mints and checks HS256 bearer tokens. An admin token's subject
// is the operator identity recorded as processedBy on refunds; a customer
// token's subject is the normalized email it may act for.
type AuthManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(cfg config.AdminConfig) *AuthManager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthManager{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}
}

// Mint issues an admin token for the operator subject.
func (a *AuthManager) Mint(subject string) (string, error) {
	return a.mint(adminRole, subject)
}

// MintCustomer issues a token that lets its holder manage the subscriptions
// of email only.
func (a *AuthManager) MintCustomer(email string) (string, error) {
	return a.mint(customerRole, model.NormalizeEmail(email))
}

func (a *AuthManager) mint(role, subject string) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	switch claims.Role {
	case adminRole, customerRole:
		return claims, nil
	}
	return nil, errors.New("unknown token role")
}

type ctxKey int

const (
	ctxAdmin ctxKey = iota
	ctxCaller
)

// RequireAdmin rejects requests without a valid admin token.
func (a *AuthManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err == nil && claims.Role != adminRole {
			err = errors.New("not an admin token")
		}
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAdmin, claims.Subject)))
	})
}

// RequireCaller accepts customer and admin tokens and records the caller for
// CallerMayActFor.
func (a *AuthManager) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxCaller, claims)))
	})
}

// AdminSubject returns the authenticated operator, if any.
func AdminSubject(ctx context.Context) string {
	s, _ := ctx.Value(ctxAdmin).(string)
	return s
}

// CallerEmail is the email a customer token is bound to; empty for admins
// and anonymous requests.
func CallerEmail(ctx context.Context) string {
	c, _ := ctx.Value(ctxCaller).(*Claims)
	if c == nil || c.Role != customerRole {
		return ""
	}
	return c.Subject
}

// CallerMayActFor reports whether the caller may read or change the
// subscriptions of email. Admins may act for anyone.
func CallerMayActFor(ctx context.Context, email string) bool {
	c, _ := ctx.Value(ctxCaller).(*Claims)
	if c == nil {
		return false
	}
	if c.Role == adminRole {
		return true
	}
	return c.Subject == model.NormalizeEmail(email)
}
