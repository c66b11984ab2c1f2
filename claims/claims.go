package claims

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the "type" claim. A token read from
// the access slot must decode with [TypeAccess]; a mismatch is treated as
// corruption and the token is considered invalid.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Roles issued by the backend.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// AccessExpiryBuffer is the default proactive expiry margin for access
// tokens. A token within this margin of its deadline is treated as already
// expired so a refresh can complete before an in-flight request would be
// rejected with it.
const AccessExpiryBuffer = 5 * time.Minute

// Hint is the unverified decoded payload of a stored token. It mirrors the
// claim set the backend issues but carries no authenticity whatsoever.
type Hint struct {
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CompanyID int64  `json:"company_id,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Decode splits token into its three segments, base64-decodes the payload,
// and unmarshals it into a [Hint]. It returns nil for any malformed input —
// wrong segment count, invalid base64, invalid JSON — and never panics.
// The signature segment is ignored entirely.
func Decode(token string) *Hint {
	if token == "" {
		return nil
	}

	hint := &Hint{}
	if _, _, err := parser.ParseUnverified(token, hint); err != nil {
		return nil
	}

	return hint
}

// ExpiresWithin reports whether the hint's deadline falls at or inside the
// given margin from now. A missing exp claim counts as expired.
func (h *Hint) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if h == nil || h.ExpiresAt == nil {
		return true
	}
	return !h.ExpiresAt.Time.After(now.Add(margin))
}

// AccessExpired reports whether an access-slot token should be treated as
// expired: absent, undecodable, or within buffer of its exp deadline.
// The boundary is inclusive: exp == now+buffer is expired.
func AccessExpired(token string, now time.Time, buffer time.Duration) bool {
	return Decode(token).ExpiresWithin(now, buffer)
}

// RefreshExpired reports whether a refresh-slot token has passed its literal
// deadline. No buffer is applied — there is no further fallback behind a
// refresh token, so it stays usable until the last second.
func RefreshExpired(token string, now time.Time) bool {
	return Decode(token).ExpiresWithin(now, 0)
}

// CurrentUser decodes an access-slot token and returns its identity hint.
// It returns nil when the token is absent, undecodable, or does not carry
// type "access" (a refresh token in the access slot is corruption, not a
// user).
func CurrentUser(accessToken string) *Hint {
	hint := Decode(accessToken)
	if hint == nil || hint.TokenType != TypeAccess {
		return nil
	}
	return hint
}
