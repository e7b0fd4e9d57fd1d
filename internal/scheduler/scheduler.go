package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantdesk/quantdesk/internal/config"
	"github.com/quantdesk/quantdesk/internal/report"
)

// JobResult records one job execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Artifact  string        `json:"artifact,omitempty"`
}

// Status reports the scheduler's current state.
type Status struct {
	Running      bool          `json:"running"`
	EnabledJobs  int           `json:"enabled_jobs"`
	DisabledJobs int           `json:"disabled_jobs"`
	Uptime       time.Duration `json:"uptime"`
}

// Scheduler runs report jobs on fixed intervals.
type Scheduler struct {
	cfg config.ReportConfig
	gen *report.Generator

	mu        sync.Mutex
	running   bool
	startTime time.Time
}

// New creates a scheduler for the configured report jobs.
func New(cfg config.ReportConfig, gen *report.Generator) *Scheduler {
	return &Scheduler{cfg: cfg, gen: gen}
}

// ListJobs returns all configured jobs.
func (s *Scheduler) ListJobs() []config.Job {
	return s.cfg.Jobs
}

// GetStatus returns the current scheduler status.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, disabled := 0, 0
	for _, job := range s.cfg.Jobs {
		if job.Enabled {
			enabled++
		} else {
			disabled++
		}
	}

	var uptime time.Duration
	if s.running {
		uptime = time.Since(s.startTime)
	}
	return Status{
		Running:      s.running,
		EnabledJobs:  enabled,
		DisabledJobs: disabled,
		Uptime:       uptime,
	}
}

// Start runs all enabled jobs until ctx is cancelled. Each job gets its own
// ticker goroutine; the first run happens after one full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	started := 0
	for _, job := range s.cfg.Jobs {
		if !job.Enabled {
			continue
		}
		started++
		wg.Add(1)
		go func(job config.Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	log.Info().Int("jobs", started).Msg("Scheduler started")
	if started == 0 {
		log.Warn().Msg("No enabled jobs configured")
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runLoop(ctx context.Context, job config.Job) {
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := s.RunJob(ctx, job.Name)
			if !res.Success {
				log.Error().Str("job", job.Name).Str("error", res.Error).Msg("Job failed")
			}
		}
	}
}

// RunJob executes a job by name immediately and returns its result.
func (s *Scheduler) RunJob(ctx context.Context, name string) JobResult {
	res := JobResult{JobName: name, StartTime: time.Now()}

	var job *config.Job
	for i := range s.cfg.Jobs {
		if s.cfg.Jobs[i].Name == name {
			job = &s.cfg.Jobs[i]
			break
		}
	}
	if job == nil {
		res.Error = fmt.Sprintf("job not found: %s", name)
		return res
	}

	tickers := job.Tickers
	if len(tickers) == 0 {
		tickers = s.cfg.Tickers
	}

	log.Info().Str("job", name).Strs("tickers", tickers).Msg("Executing job")

	lines := s.gen.Collect(ctx, tickers)
	path, err := report.Save(s.cfg.OutputDir, lines, time.Now())
	res.Duration = time.Since(res.StartTime)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Artifact = path
	log.Info().Str("job", name).Str("artifact", path).Dur("duration", res.Duration).Msg("Job complete")
	return res
}
