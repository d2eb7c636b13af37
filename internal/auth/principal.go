// Package auth resolves who is making a request and decides whether a path
// is open to them.
package auth

import (
	"context"
	"sort"
	"strings"

	"storefront/internal/domain"
)

type Level int

const (
	Anonymous Level = iota
	Authenticated
	Admin
)

func (l Level) String() string {
	switch l {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	}
	return "anonymous"
}

// Principal is the caller as seen by every handler. Via records which
// credential produced it ("session", "token" or "").
type Principal struct {
	Level Level
	User  *domain.User
	Via   string
}

func (p Principal) Satisfies(required Level) bool { return p.Level >= required }

func (p Principal) UserID() string {
	if p.User == nil {
		return ""
	}
	return p.User.ID
}

func principalFor(u *domain.User, via string) Principal {
	if u == nil {
		return Principal{}
	}
	lvl := Authenticated
	if u.IsAdmin() {
		lvl = Admin
	}
	return Principal{Level: lvl, User: u, Via: via}
}

type SessionLookup interface {
	SessionUser(ctx context.Context, sid string) (*domain.User, error)
}

type UserLookup interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolver turns request credentials into a Principal. A bearer token wins
// over a session cookie; any failure yields an anonymous principal.
//
// With Users set, a token's subject is looked up on every request so deleted
// or demoted accounts lose access before the token expires.
type Resolver struct {
	Sessions SessionLookup
	Users    UserLookup
	Tokens   *Tokens
}

func (r *Resolver) Resolve(ctx context.Context, sid, authorization string) Principal {
	if tok, ok := bearer(authorization); ok && r.Tokens != nil {
		u, err := r.Tokens.Parse(tok)
		if err != nil {
			return Principal{}
		}
		if r.Users != nil {
			if u, err = r.Users.ByID(ctx, u.ID); err != nil {
				return Principal{}
			}
		}
		return principalFor(u, "token")
	}
	if sid != "" && r.Sessions != nil {
		if u, err := r.Sessions.SessionUser(ctx, sid); err == nil {
			return principalFor(u, "session")
		}
	}
	return Principal{}
}

func bearer(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

type Rule struct {
	Prefix string
	Level  Level
}

// Policy maps path prefixes to the level they require. The longest matching
// prefix wins; prefixes only match on segment boundaries.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) Policy {
	rs := append([]Rule(nil), rules...)
	sort.Slice(rs, func(i, j int) bool { return len(rs[i].Prefix) > len(rs[j].Prefix) })
	return Policy{rules: rs}
}

// DefaultPolicy guards the admin panel and the shopper's order surface.
func DefaultPolicy() Policy {
	return NewPolicy(
		Rule{Prefix: "/admin", Level: Admin},
		Rule{Prefix: "/checkout", Level: Authenticated},
		Rule{Prefix: "/orders", Level: Authenticated},
	)
}

// Required matches case-insensitively so a guard cannot be dodged by
// changing the case of the path.
func (p Policy) Required(path string) Level {
	path = strings.ToLower(path)
	for _, r := range p.rules {
		prefix := strings.ToLower(r.Prefix)
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return r.Level
		}
	}
	return Anonymous
}
