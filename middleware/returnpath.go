package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const returnPathCookie = "gosession_return_to"

// rememberReturnPath stores the denied request's path so a later login can
// send the user back. Only safe, same-site navigation targets are kept:
// GET requests with a rooted path.
func rememberReturnPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		return
	}
	target := r.URL.RequestURI()
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     returnPathCookie,
		Value:    url.QueryEscape(target),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeReturnPath reads the remembered return path and clears it, so each
// stored path is used at most once. The second return is false when nothing
// usable was stored.
func ConsumeReturnPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(returnPathCookie)
	if err != nil {
		return "", false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     returnPathCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target, err := url.QueryUnescape(cookie.Value)
	if err != nil || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "", false
	}
	return target, true
}
