// Command session-bff is a small backend-for-frontend gateway built on
// goSession. It holds one logical session against the auth backend, guards
// browser routes, and proxies API calls upstream with a fresh bearer token
// injected.
//
// Routes:
//
//	POST /login   — JSON {"username":"...", "password":"..."}
//	POST /logout  — clears the session
//	GET  /app/    — guarded, any authenticated user
//	GET  /admin/  — guarded, admin role only
//	ANY  /api/    — proxied upstream with Authorization: Bearer <access>
//	GET  /healthz — liveness
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	goSession "github.com/finchett/goSession"
	"github.com/finchett/goSession/middleware"
	"github.com/finchett/goSession/store"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting session-bff", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	backend, cleanup, err := buildBackend(cfg.Store)
	if err != nil {
		log.Error("token store init failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	sessionCfg := goSession.DefaultConfig()
	sessionCfg.API.BaseURL = cfg.Auth.BaseURL
	sessionCfg.API.Timeout = cfg.Auth.Timeout

	session, err := goSession.New().
		WithConfig(sessionCfg).
		WithBackend(backend).
		WithLogger(log).
		WithMetricsEnabled(true).
		WithAuditSink(goSession.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		log.Error("session init failed", "err", err)
		os.Exit(1)
	}
	defer session.Close()

	upstream, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		log.Error("bad upstream url", "err", err)
		os.Exit(1)
	}

	guard := &middleware.Guard{
		Session:        session,
		LoginPath:      cfg.Guard.LoginPath,
		DefaultPath:    cfg.Guard.DefaultPath,
		RememberReturn: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /login", loginHandler(session, guard, log))
	mux.HandleFunc("POST /logout", logoutHandler(session, cfg.Guard.LoginPath, log))
	mux.Handle("/app/", guard.Require(appHandler()))
	mux.Handle("/admin/", guard.RequireAdmin(adminHandler()))
	mux.Handle("/api/", guard.Require(apiProxy(session, upstream, log)))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve failed", "err", err)
			rootCancel()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}

func buildBackend(cfg StoreConfig) (store.Backend, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return store.NewRedis(client), func() { _ = client.Close() }, nil
	}

	backend, err := store.NewFile(cfg.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return backend, func() {}, nil
}

func loginHandler(session *goSession.Session, guard *middleware.Guard, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		user, err := session.Login(r.Context(), body.Username, body.Password)
		switch {
		case errors.Is(err, goSession.ErrInvalidCredentials):
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		case err != nil:
			log.Error("login failed", "err", err)
			http.Error(w, "login unavailable", http.StatusBadGateway)
			return
		}

		// Send the user back to where a guard turned them away, once.
		target := guard.DefaultPath
		if remembered, ok := middleware.ConsumeReturnPath(w, r); ok {
			target = remembered
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":     user,
			"redirect": target,
		})
	}
}

func logoutHandler(session *goSession.Session, loginPath string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.Logout(r.Context()); err != nil {
			// Local state is already cleared; the server-side call is
			// best-effort.
			log.Warn("server-side logout failed", "err", err)
		}
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	}
}

func apiProxy(session *goSession.Session, upstream *url.URL, log *slog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		if token, ok := session.ValidAccessToken(req.Context()); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("upstream proxy failed", "path", r.URL.Path, "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return proxy
}

func appHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middleware.IdentityFromContext(r.Context())
		fmt.Fprintf(w, "hello %s\n", displayName(identity))
	})
}

func adminHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middleware.IdentityFromContext(r.Context())
		fmt.Fprintf(w, "admin console for %s\n", displayName(identity))
	})
}

// displayName tolerates an authenticated status response that carries no
// user payload.
func displayName(identity goSession.Identity) string {
	if identity.User == nil {
		return "session"
	}
	return identity.User.Username
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envLocal:
		fallthrough
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
