// Package http serves the reminder UI: an htmx dashboard backed by
// fragment endpoints, plus the notification permission and foreground
// hooks the scheduler listens to.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"followe/internal/cache"
	"followe/internal/core"
	"followe/internal/services"
	"followe/internal/store"
	appweb "followe/web"
)

// Rescheduler is the scheduler surface the handlers need: every
// mutation and the foreground hook trigger a full reschedule.
type Rescheduler interface {
	RescheduleAll(ctx context.Context) error
}

// Options tunes the server beyond its dependencies.
type Options struct {
	CacheTTL     time.Duration
	CacheMaxSize int
}

func (o *Options) withDefaults() Options {
	opts := Options{CacheTTL: 30 * time.Second, CacheMaxSize: 64}
	if o == nil {
		return opts
	}
	if o.CacheTTL > 0 {
		opts.CacheTTL = o.CacheTTL
	}
	if o.CacheMaxSize > 0 {
		opts.CacheMaxSize = o.CacheMaxSize
	}
	return opts
}

type Server struct {
	http.Server
	templates   *template.Template
	items       store.ItemStore
	perms       store.PermissionSource
	resched     Rescheduler
	rateLimiter *rateLimiter

	adviceCache  *cache.LRUCache[services.Advice]
	summaryCache *cache.LRUCache[services.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, items store.ItemStore, perms store.PermissionSource, resched Rescheduler, opts *Options) *Server {
	o := opts.withDefaults()
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		items:        items,
		perms:        perms,
		resched:      resched,
		rateLimiter:  newRateLimiter(),
		adviceCache:  cache.NewLRUCache[services.Advice](o.CacheMaxSize, o.CacheTTL),
		summaryCache: cache.NewLRUCache[services.Summary](o.CacheMaxSize, o.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.adviceCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", assetCachePolicy(r.URL.Path))
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/items", s.withSecurityHeaders(s.handleItems))
	mux.HandleFunc("/items/", s.withSecurityHeaders(s.handleItemAction))
	// UI partials
	mux.HandleFunc("/ui/advice", s.withSecurityHeaders(s.handleAdvice))
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.handleSummary))
	// App hooks
	mux.HandleFunc("/notifications/permission", s.withSecurityHeaders(s.handlePermission))
	mux.HandleFunc("/app/foreground", s.withSecurityHeaders(s.handleForeground))

	return s
}

// assetCachePolicy picks the Cache-Control header per asset class:
// bundled css/js never change between builds, fonts revalidate in the
// background, anything else gets a short public max-age.
func assetCachePolicy(path string) string {
	switch {
	case strings.HasSuffix(path, ".css"), strings.HasSuffix(path, ".js"):
		return "public, max-age=31536000, immutable"
	case strings.HasSuffix(path, ".woff2"), strings.HasSuffix(path, ".woff"):
		return "public, max-age=86400, stale-while-revalidate=604800"
	default:
		return "public, max-age=3600"
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"amount": func(m core.Money) string { return m.String() },
		"icon":   func(c core.Category) string { return c.Icon() },
	}
}

// invalidate drops the cached partials after any mutation.
func (s *Server) invalidate() {
	s.adviceCache.Purge()
	s.summaryCache.Purge()
}

// triggerReschedule refreshes the armed timers after a mutation.
// Reschedule failures are logged, never surfaced to the client: the
// item change itself already succeeded.
func (s *Server) triggerReschedule(ctx context.Context) {
	if s.resched == nil {
		return
	}
	if err := s.resched.RescheduleAll(ctx); err != nil {
		slog.ErrorContext(ctx, "reschedule after mutation failed", "error", err)
	}
}

// Shutdown stops the background cleanup goroutines, then the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
