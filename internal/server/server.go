package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/attrguard/internal/model"
	"github.com/nao1215/attrguard/internal/pipeline"
)

const (
	// JobTTL is how long a job stays queryable after it started.
	JobTTL = time.Hour

	// DefaultScanTimeout bounds one background batch.
	DefaultScanTimeout = 10 * time.Minute

	// CSVDownloadName is the file name offered to clients downloading a report.
	CSVDownloadName = "cookie_stuffing_report.csv"

	shutdownTimeout = 10 * time.Second
)

// Runner runs one batch and always yields an Outcome.
// *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, urls []string) model.Outcome
}

// Server is the HTTP API in front of a Runner.
type Server struct {
	runner      Runner
	jobs        *JobStore
	logger      *slog.Logger
	scanTimeout time.Duration
	jobTTL      time.Duration
	newID       func() string
	now         func() time.Time

	// base is the parent context of background scans.
	base   context.Context
	cancel context.CancelFunc
	scans  sync.WaitGroup

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithScanTimeout bounds each background batch.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.scanTimeout = d
		}
	}
}

// WithJobTTL sets how long finished jobs are kept.
func WithJobTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.jobTTL = d
		}
	}
}

// WithIDGenerator overrides scan ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Server) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithClock overrides the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Server and builds its routes.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:      runner,
		jobs:        NewJobStore(),
		scanTimeout: DefaultScanTimeout,
		jobTTL:      JobTTL,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.base, s.cancel = context.WithCancel(context.Background())

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.logger))
	s.engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length", "Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))
	s.routes()

	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/scan", s.handleStartScan)
	api.GET("/scan/:id", s.handleGetScan)
	api.GET("/scan/:id/csv", s.handleDownloadCSV)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Jobs returns the job store.
func (s *Server) Jobs() *JobStore {
	return s.jobs
}

// Wait blocks until all background scans have finished.
func (s *Server) Wait() {
	s.scans.Wait()
}

// Close cancels running scans and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.scans.Wait()
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and cancels running scans.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("attrguard API listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.janitor(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown failed", "error", err)
		}
		return nil
	})

	err := g.Wait()
	s.Close()
	return err
}

// janitor evicts expired jobs until ctx is done.
func (s *Server) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.jobTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.jobs.Evict(s.now(), s.jobTTL) {
				s.logger.Debug("evicted expired scan job", "id", id)
			}
		}
	}
}

// startJob registers a running job and scans urls in the background.
func (s *Server) startJob(urls []string) Job {
	job := Job{
		ID:        s.newID(),
		Status:    JobRunning,
		Total:     len(urls),
		StartTime: s.now(),
	}
	s.jobs.Put(job)

	s.scans.Add(1)
	go func() {
		defer s.scans.Done()

		ctx, cancel := context.WithTimeout(s.base, s.scanTimeout)
		defer cancel()

		out := s.runner.Run(ctx, urls)
		if !s.jobs.Update(job.ID, func(j *Job) { j.finish(out, s.now()) }) {
			s.logger.Warn("scan finished after its job expired", "id", job.ID)
			return
		}
		if out.OK() {
			s.logger.Info("scan completed", "id", job.ID, "threats", out.Report.TotalThreats)
		} else {
			s.logger.Warn("scan failed", "id", job.ID, "error", out.Err)
		}
	}()

	return job
}

// filterURLs keeps the string entries that are absolute http(s) URLs.
func filterURLs(entries []any) []string {
	valid := make([]string, 0, len(entries))
	for _, e := range entries {
		raw, ok := e.(string)
		if ok && pipeline.IsValidURL(raw) {
			valid = append(valid, raw)
		}
	}
	return valid
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
