package middleware

import (
	"context"
	"net/http"

	goSession "github.com/finchett/goSession"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity a guard injected for this
// request.
func IdentityFromContext(ctx context.Context) (goSession.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(goSession.Identity)
	return identity, ok
}

// ContextWithIdentity returns ctx carrying identity the way a guard injects
// it, for handler tests and for callers composing their own middleware.
func ContextWithIdentity(ctx context.Context, identity goSession.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Guard builds the route-guard middleware family around one session.
//
// LoginPath, when set, turns unauthenticated denials into redirects there;
// DefaultPath (falling back to "/") receives authenticated-but-unauthorized
// callers. With LoginPath empty the guards behave as API guards and answer
// 401/403. RememberReturn stores the denied request's path in a cookie so a
// later successful login can send the user back.
type Guard struct {
	Session        *goSession.Session
	LoginPath      string
	DefaultPath    string
	RememberReturn bool
}

// Require wraps next so it only runs for an authenticated session.
func (g *Guard) Require(next http.Handler) http.Handler {
	return g.guard(next, false)
}

// RequireAdmin wraps next so it only runs for an authenticated session
// whose verified role is "admin". Authenticated non-admins are sent to the
// default route, not to login — they have a session, just not this door.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.guard(next, true)
}

func (g *Guard) guard(next http.Handler, adminOnly bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Session == nil {
			g.denyUnauthenticated(w, r)
			return
		}

		identity, err := g.Session.Identity(r.Context())
		if err != nil || !identity.Authenticated {
			// Genuine query errors fail closed into the same outcome as
			// an expired session.
			g.Session.Metrics().Inc(goSession.MetricGuardDeniedUnauthenticated)
			g.denyUnauthenticated(w, r)
			return
		}

		if adminOnly && !identity.IsAdmin() {
			g.Session.Metrics().Inc(goSession.MetricGuardDeniedForbidden)
			g.denyForbidden(w, r)
			return
		}

		g.Session.Metrics().Inc(goSession.MetricGuardAllowed)
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (g *Guard) denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if g.LoginPath == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if g.RememberReturn {
		rememberReturnPath(w, r)
	}
	http.Redirect(w, r, g.LoginPath, http.StatusSeeOther)
}

func (g *Guard) denyForbidden(w http.ResponseWriter, r *http.Request) {
	if g.LoginPath == "" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	target := g.DefaultPath
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
