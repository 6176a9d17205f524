package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/use-agent/dodf/cache"
	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, date time.Time) (*models.RunResult, error)
}

// RunStore tracks runs started through the API. Runs execute one at a
// time; a date that is already queued or running is not started twice.
// Unfinished jobs are always reachable; finished ones are kept for the
// cache TTL counted from completion.
type RunStore struct {
	runner Runner
	jobs   *cache.Cache[*models.RunJob]
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*models.RunJob // date -> unfinished job
	slot    chan struct{}
	wg      sync.WaitGroup
}

// NewRunStore keeps finished jobs for ttl after they finish, at most
// maxJobs of them.
func NewRunStore(runner Runner, maxJobs int, ttl time.Duration) *RunStore {
	return &RunStore{
		runner:  runner,
		jobs:    cache.New[*models.RunJob](maxJobs, ttl),
		now:     time.Now,
		pending: make(map[string]*models.RunJob),
		slot:    make(chan struct{}, 1),
	}
}

// Submit queues a run for date and returns its job. The second result is
// false when an unfinished job for the same date was returned instead.
func (s *RunStore) Submit(date time.Time) (*models.RunJob, bool) {
	day := date.Format(time.DateOnly)

	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.pending[day]; ok {
		return job, false
	}

	job := models.NewRunJob(uuid.NewString(), day, s.now().Unix())
	s.pending[day] = job

	s.wg.Add(1)
	go s.execute(job, date)
	return job, true
}

func (s *RunStore) execute(job *models.RunJob, date time.Time) {
	defer s.wg.Done()

	s.slot <- struct{}{}
	defer func() { <-s.slot }()

	slog.Info("run started", "id", job.ID, "date", job.Date)
	ctx := pipeline.WithRunID(context.Background(), job.ID)
	result, err := s.runner.Run(ctx, date)
	if err != nil {
		slog.Error("run failed", "id", job.ID, "date", job.Date, "error", err)
		job.Finish(nil, asScrapeError(err).ToDetail())
	} else {
		job.Finish(result, nil)
	}

	// Cache before leaving pending so Get never misses the job.
	s.mu.Lock()
	s.jobs.Set(job.ID, job)
	delete(s.pending, job.Date)
	s.mu.Unlock()
}

// Get returns a job by ID, queued, running or recently finished.
func (s *RunStore) Get(id string) (*models.RunJob, bool) {
	s.mu.Lock()
	for _, job := range s.pending {
		if job.ID == id {
			s.mu.Unlock()
			return job, true
		}
	}
	s.mu.Unlock()
	return s.jobs.Get(id)
}

// Active reports how many runs are queued or running.
func (s *RunStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait blocks until every submitted run has finished.
func (s *RunStore) Wait() {
	s.wg.Wait()
}

// PostRun returns a handler for POST /api/v1/runs. The run proceeds in the
// background; poll GET /api/v1/runs/:id for the result.
func PostRun(store *RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
				return
			}
		}

		date := store.now()
		if req.Date != "" {
			parsed, err := time.ParseInLocation(time.DateOnly, req.Date, time.Local)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, "date must be YYYY-MM-DD")
				return
			}
			date = parsed
		}

		job, created := store.Submit(date)
		status := http.StatusAccepted
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, models.RunResponse{
			ID:     job.ID,
			Status: job.Status().Status,
			Date:   job.Date,
		})
	}
}

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun(store *RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			abortWithError(c, http.StatusNotFound, models.ErrCodeNotFound, "run not found")
			return
		}
		c.JSON(http.StatusOK, job.Status())
	}
}
