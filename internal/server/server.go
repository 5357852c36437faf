package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ckpayment/ckmodal/internal/cache"
	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/notify"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Port      int
	TokenFile string
	// Token fixes the dashboard token; empty generates one.
	Token          string
	Logger         *logrus.Entry
	Cache          cache.Analytics
	// PublicURL is where embedding pages reach this server. When Embed has
	// no SDK URL, snippets load PublicURL/ckpay.js.
	PublicURL      string
	Embed          snippets.EmbedOptions
	FallbackTokens []string
}

type Server struct {
	store     store.Store
	port      int
	token     string
	tokenFile string
	router    chi.Router
	startTime time.Time
	log       *logrus.Entry
	cache     cache.Analytics
	embed     snippets.EmbedOptions
	fallback  []string

	mu          sync.Mutex
	controllers map[string]*controller.Controller
}

func New(s store.Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	token := opts.Token
	if token == "" {
		token = generateToken()
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewMemory(cache.DefaultTTL)
	}
	embed := opts.Embed
	if embed.SDKURL == "" && opts.PublicURL != "" {
		embed.SDKURL = strings.TrimRight(opts.PublicURL, "/") + "/ckpay.js"
	}

	srv := &Server{
		store:       s,
		port:        opts.Port,
		token:       token,
		tokenFile:   opts.TokenFile,
		startTime:   time.Now(),
		log:         log.WithField("component", "server"),
		cache:       c,
		embed:       embed,
		fallback:    opts.FallbackTokens,
		controllers: map[string]*controller.Controller{},
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ckpay.js", s.handleSDKScript)
	r.Options("/b", s.handleBeacon)
	r.Post("/b", s.handleBeacon)
	r.Options("/m/{modalID}", s.handlePublicModal)
	r.Get("/m/{modalID}", s.handlePublicModal)
	r.Options("/m/{modalID}/render", s.handleRenderModal)
	r.Get("/m/{modalID}/render", s.handleRenderModal)

	// Dashboard endpoints (protected)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/instances/{instanceID}", s.handleDashboardInstance)

		r.Route("/dashboard/api/instances", func(r chi.Router) {
			r.Get("/", s.handleListInstances)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/tokens", s.handleListTokens)
				r.Get("/modals", s.handleListModals)
				r.Post("/modals", s.handleCreateModal)
				r.Route("/modals/{modalID}", func(r chi.Router) {
					r.Get("/", s.handleGetModal)
					r.Put("/", s.handleUpdateModal)
					r.Delete("/", s.handleDeleteModal)
					r.Post("/toggle", s.handleToggleModal)
					r.Get("/analytics", s.handleModalAnalytics)
					r.Get("/embed", s.handleModalEmbed)
					r.Get("/preview", s.handleModalPreview)
				})
			})
		})
	})

	s.router = r
}

func (s *Server) Start() error {
	return s.StartWithOptions(true)
}

// StartQuiet starts the server without printing startup messages
func (s *Server) StartQuiet() error {
	return s.StartWithOptions(false)
}

func (s *Server) StartWithOptions(printMessages bool) error {
	// Write token to file for the dashboard-url command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.log.WithError(err).Warn("failed to write token file")
		}
	}

	addr := fmt.Sprintf(":%d", s.port)

	if printMessages {
		fmt.Println()
		fmt.Printf("ckmodal running on http://localhost:%d\n", s.port)
		fmt.Printf("Dashboard: http://localhost:%d/dashboard?token=%s\n", s.port, s.token)
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop")
	}

	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Store() store.Store {
	return s.store
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// controllerFor returns the controller of instanceID, loading its modals on
// first use. Controllers live for the lifetime of the server.
func (s *Server) controllerFor(ctx context.Context, instanceID string) (*controller.Controller, error) {
	s.mu.Lock()
	c, ok := s.controllers[instanceID]
	if !ok {
		log := s.log.WithField("instance", instanceID)
		c = controller.New(controller.Options{
			InstanceID:     instanceID,
			Client:         s.store,
			Tokens:         s.store,
			Notifier:       notify.NewLogger(log),
			Cache:          s.cache,
			Logger:         log,
			Embed:          s.embed,
			FallbackTokens: s.fallback,
		})
	}
	s.mu.Unlock()

	if !c.Loaded() {
		if err := c.FetchAll(ctx, instanceID); err != nil {
			return nil, err
		}
	}

	if !ok {
		s.mu.Lock()
		if existing, raced := s.controllers[instanceID]; raced {
			c = existing
		} else {
			s.controllers[instanceID] = c
		}
		s.mu.Unlock()
	}
	return c, nil
}

// reload refreshes a controller's collection; a failed reload keeps the
// previous list and is only logged.
func (s *Server) reload(ctx context.Context, c *controller.Controller) {
	if err := c.FetchAll(ctx, ""); err != nil && !errors.Is(err, context.Canceled) {
		s.log.WithError(err).WithField("instance", c.InstanceID()).Warn("reload failed, serving cached modals")
	}
}

func generateToken() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4e5f6a7b8"
	}
	return hex.EncodeToString(bytes)
}
