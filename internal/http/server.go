package httpapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/inkpost/inkpost/internal/auth"
	"github.com/inkpost/inkpost/internal/config"
	"github.com/inkpost/inkpost/internal/rate"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/upload"

	_ "github.com/inkpost/inkpost/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

type Server struct {
	store   store.Store
	auth    *auth.Service
	uploads *upload.Intake
	limiter rate.Limiter
	cfg     config.Config
	logger  zerolog.Logger
	proxies []netip.Prefix
	router  chi.Router
}

func NewServer(st store.Store, authSvc *auth.Service, uploads *upload.Intake, limiter rate.Limiter, cfg config.Config, logger zerolog.Logger) *Server {
	s := &Server{
		store:   st,
		auth:    authSvc,
		uploads: uploads,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
	// Validate rejects bad entries at startup; anything unparsable here trusts no one.
	s.proxies, _ = config.ParseProxies(cfg.TrustedProxies)
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.realIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Set before mounting so sub-routers inherit them.
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/api/openapi.json", s.serveOpenAPIJSON)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", noListing(http.FileServer(http.Dir(s.uploads.Dir())))))

	r.Route("/api/users", func(r chi.Router) {
		r.With(s.throttle("register", s.cfg.RateLimits.RegisterPerMinute)).Post("/register", s.handleRegister)
		r.With(s.throttle("login", s.cfg.RateLimits.LoginPerMinute)).Post("/login", s.handleLogin)
		r.Get("/", s.handleListUsers)
		r.Get("/{id}", s.handleGetUser)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Patch("/change-avatar", s.handleChangeAvatar)
			r.Patch("/edit-user", s.handleEditUser)
		})
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", s.handleListPosts)
		r.Get("/{id}", s.handleGetPost)
		r.Get("/categories/{category}", s.handleCategoryPosts)
		r.Get("/users/{id}", s.handleUserPosts)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreatePost)
			r.Patch("/{id}", s.handleEditPost)
			r.Delete("/{id}", s.handleDeletePost)
		})
	})

	return r
}

// requireAuth admits requests carrying a valid bearer token and stores the
// caller's identity in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			fail(w, r, unauthorized("Unauthorized. No token provided"))
			return
		}
		id, err := s.auth.Authenticate(token)
		if err != nil {
			fail(w, r, &Error{Kind: KindForbidden, Message: "Unauthorized. Invalid token", Err: err})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (s *Server) throttle(action string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:ip:%s", action, clientIP(r))
			if ok, retry := s.limiter.Allow(key, limit, time.Minute); !ok {
				fail(w, r, &Error{Kind: KindTooManyRequests, Message: "Too many attempts. Try again later.", RetryAfter: retry})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identity is only called behind requireAuth.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			routeNotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth godoc
//
//	@Summary	Liveness and store connectivity
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		fail(w, r, internal("Could not load API description", err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	fail(w, r, notFoundErr("Not Found - "+r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
}
