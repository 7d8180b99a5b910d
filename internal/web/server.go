package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lucasnoah/sysbenchkit/internal/artifact"
	"github.com/lucasnoah/sysbenchkit/internal/db"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"badgeClass": func(status string) string {
		return "badge badge-" + status
	},
	"relTime": relTime,
}

// Server is the read-only results UI and JSON API.
type Server struct {
	db     *db.DB
	store  *artifact.Store
	addr   string
	logger *slog.Logger

	dashboardTmpl *template.Template
	runTmpl       *template.Template
}

// NewServer creates a Server with parsed templates. store may be nil when
// artifacts are disabled.
func NewServer(database *db.DB, store *artifact.Store, addr string) *Server {
	return &Server{
		db:            database,
		store:         store,
		addr:          addr,
		logger:        slog.Default(),
		dashboardTmpl: mustParseTmpl("base.html", "dashboard.html"),
		runTmpl:       mustParseTmpl("base.html", "run.html"),
	}
}

func mustParseTmpl(names ...string) *template.Template {
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = "templates/" + n
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, patterns...))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			s.handleDashboard(w, r)
		case strings.HasPrefix(r.URL.Path, "/run/"):
			s.handleRun(w, r, strings.Trim(strings.TrimPrefix(r.URL.Path, "/run/"), "/"))
		case strings.HasPrefix(r.URL.Path, "/chart/"):
			s.handleChart(w, r, strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/chart/"), ".png"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/runs", s.handleAPIRuns)
	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		s.handleAPIRun(w, r, strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/"))
	})
	mux.HandleFunc("/api/stats/", func(w http.ResponseWriter, r *http.Request) {
		s.handleAPIStats(w, r, strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stats/"), "/"))
	})
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sysbenchkit UI listening", "url", fmt.Sprintf("http://%s", displayAddr(s.addr)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
