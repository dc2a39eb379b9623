// Package serve keeps a comparison report up to date and serves it over HTTP.
package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/boostgo/errorx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"
	"github.com/sourcegraph/conc/pool"

	"github.com/boostgo/imgdiff"
)

var (
	ErrLockReport = errorx.New("imgdiff.serve.lock_report")
	ErrListen     = errorx.New("imgdiff.serve.listen")
)

const lockSuffix = ".lock"

// Option represents options for Server
type Option func(*Server)

// WithDebounce sets the quiet period between the last file event and a rerun
func WithDebounce(debounce time.Duration) Option {
	return func(s *Server) {
		if debounce > 0 {
			s.debounce = debounce
		}
	}
}

// WithLogger sets the server logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCompareOptions passes options to every comparison run
func WithCompareOptions(options ...imgdiff.CompareOption) Option {
	return func(s *Server) {
		s.compare = append(s.compare, options...)
	}
}

// Server reruns the comparison of two trees into one report directory.
//
// Reruns are serialized twice: by a mutex inside the process and by a file
// lock next to the report directory, so two processes never write the same
// report at once.
type Server struct {
	expectedRoot string
	actualRoot   string
	reportDir    string

	debounce time.Duration
	logger   *slog.Logger
	compare  []imgdiff.CompareOption

	mu     sync.Mutex
	lock   *flock.Flock
	report *imgdiff.Report
}

// New returns a server for the given trees. Nothing runs until Rerun or Run.
func New(expectedRoot, actualRoot, reportDir string, options ...Option) *Server {
	s := &Server{
		expectedRoot: expectedRoot,
		actualRoot:   actualRoot,
		reportDir:    reportDir,
		debounce:     300 * time.Millisecond,
		logger:       slog.New(slog.DiscardHandler),
		lock:         flock.New(reportDir + lockSuffix),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// ReportDir returns the directory the report is written to
func (s *Server) ReportDir() string {
	return s.reportDir
}

// Report returns the report of the last successful run, or nil
func (s *Server) Report() *imgdiff.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.report
}

// Rerun clears the report directory and runs compare and write again
func (s *Server) Rerun(ctx context.Context) (*imgdiff.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return nil, ErrLockReport.
			SetError(err).
			SetData(struct {
				Path  string `json:"path"`
				Error error  `json:"error"`
			}{
				Path:  s.lock.Path(),
				Error: err,
			})
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	if imgdiff.DirectoryExist(s.reportDir) {
		if err := imgdiff.ClearDirectory(s.reportDir); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	report, err := imgdiff.CompareAndWrite(ctx, s.expectedRoot, s.actualRoot, s.reportDir, s.compare...)
	if err != nil {
		s.report = nil
		s.logger.Error("comparison failed", "error", err)
		return nil, err
	}

	s.report = report
	s.logger.Info("comparison finished",
		"has_changes", report.HasChanges,
		"added", report.Summary.Added,
		"deleted", report.Summary.Deleted,
		"changed", report.Summary.Changed,
		"unchanged", report.Summary.Unchanged,
		"took", time.Since(started),
	)

	return report, nil
}

// Handler serves the report directory and triggers a rerun on GET /run
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/run", s.handleRun)
	r.Handle("/*", http.FileServer(http.Dir(s.reportDir)))

	return r
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Rerun(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Run compares once, then serves the report on addr and reruns on file
// changes until ctx is cancelled or either loop fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	if _, err := s.Rerun(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		return s.Watch(ctx)
	})

	p.Go(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		s.logger.Info("serving report", "addr", addr, "dir", s.reportDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return ErrListen.
				SetError(err).
				SetData(struct {
					Addr  string `json:"addr"`
					Error error  `json:"error"`
				}{
					Addr:  addr,
					Error: err,
				})
		}
		return nil
	})

	return p.Wait()
}

// Close releases the report lock file handle
func (s *Server) Close() error {
	return s.lock.Close()
}
