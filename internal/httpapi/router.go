package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"MentorMatchserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth          *service.AuthService
	Ledger        *service.LedgerService
	Discover      *service.DiscoverService
	Profile       *service.ProfileService
	Notifications *service.NotificationService
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		ledgerSvc:        opts.Ledger,
		discoverSvc:      opts.Discover,
		profileSvc:       opts.Profile,
		notificationsSvc: opts.Notifications,
		loginLimiter:     newLoginLimiter(5*time.Minute, 10),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		if api.authSvc.GoogleEnabled() {
			apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		} else {
			apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		}
		if api.authSvc.AppleEnabled() {
			apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthLoginApple)
		} else {
			apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
		}

		if api.profileSvc != nil {
			apiMux.HandleFunc("GET /v1/profile/{userId}", api.requireAuth(api.handleProfileGet))
			apiMux.HandleFunc("PUT /v1/profile", api.requireAuth(api.handleProfileUpdate))
		}

		if api.ledgerSvc != nil {
			apiMux.HandleFunc("GET /v1/connections", api.requireAuth(api.handleConnectionsList))
			apiMux.HandleFunc("POST /v1/connections/request/{targetId}", api.requireAuth(api.handleConnectionsRequest))
			apiMux.HandleFunc("POST /v1/connections/accept/{requestId}", api.requireAuth(api.handleConnectionsAccept))
			apiMux.HandleFunc("POST /v1/connections/decline/{requestId}", api.requireAuth(api.handleConnectionsDecline))
			apiMux.HandleFunc("POST /v1/connections/cancel/{requestId}", api.requireAuth(api.handleConnectionsCancel))
			apiMux.HandleFunc("POST /v1/connections/disconnect/{targetId}", api.requireAuth(api.handleConnectionsDisconnect))
			apiMux.HandleFunc("GET /v1/discover/connection-status/{targetId}", api.requireAuth(api.handleConnectionStatus))
		}

		if api.discoverSvc != nil {
			apiMux.HandleFunc("GET /v1/discover", api.requireAuth(api.handleDiscover))
		}

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("POST /v1/notifications/token", api.requireAuth(api.handleNotificationsTokenUpsert))
			apiMux.HandleFunc("DELETE /v1/notifications/token", api.requireAuth(api.handleNotificationsTokenDelete))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Handler only matches; ServeHTTP is what fills in r.PathValue.
		_, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		noteRoute(r.Context(), pattern)
		apiMux.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = Recoverer(logger, opts.IsProd)(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	ledgerSvc        *service.LedgerService
	discoverSvc      *service.DiscoverService
	profileSvc       *service.ProfileService
	notificationsSvc *service.NotificationService

	loginLimiter *loginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			a.logger.Warn("healthz: db ping failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
