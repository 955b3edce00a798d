package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/registry"
	"github.com/meteoboard/meteoboard/internal/weather"
)

// Job types understood by Handle.
const (
	JobRefreshAll     = "refresh_all"
	JobRefreshStation = "refresh_station"
	JobHealthCheck    = "health_check"
)

var (
	// ErrUnknownJobType is returned by Handle for unrecognised job types.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrStationNotFound is returned when a job names a missing station.
	ErrStationNotFound = errors.New("station not found")

	// ErrTooManyFailures is returned when a refresh run exceeds the failure ratio.
	ErrTooManyFailures = errors.New("too many refresh failures")
)

// Stations is the registry surface the refresh job drives.
type Stations interface {
	Load(ctx context.Context) error
	RefreshAll(ctx context.Context) *registry.RefreshSummary
	Refresh(ctx context.Context, st *weather.Station) (int, error)
	FindByName(name string) (*weather.Station, bool)
}

// Publisher receives every station whose refresh succeeded.
type Publisher interface {
	Publish(ctx context.Context, st *weather.Station) error
}

// RefreshJob runs station refreshes on a schedule or on demand.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	stations  Stations
	publisher Publisher

	// run serializes Run and RefreshStation.
	run sync.Mutex

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	Published         int64
	PublishFailures   int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Stations  Stations
	Publisher Publisher // optional
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		logger:    cfg.Logger,
		stations:  cfg.Stations,
		publisher: cfg.Publisher,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Published  int
	Errors     []RefreshError
}

// RefreshError represents a station that could not be refreshed or published.
type RefreshError struct {
	Station string
	Stage   string
	Error   string
}

// Run refreshes every station and publishes the ones that succeeded.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	j.run.Lock()
	defer j.run.Unlock()

	startTime := time.Now()
	j.logger.Info().Msg("starting station refresh job")

	summary := j.stations.RefreshAll(ctx)

	result := &RefreshResult{
		StartTime:  startTime,
		Total:      len(summary.Results),
		Successful: summary.Successful,
		Failed:     summary.Failed,
	}

	for _, res := range summary.Results {
		if res.Error != "" {
			result.Errors = append(result.Errors, RefreshError{Station: res.Station, Stage: "refresh", Error: res.Error})
			continue
		}
		if st, ok := j.stations.FindByName(res.Station); ok {
			if err := j.publish(ctx, st); err != nil {
				result.Errors = append(result.Errors, RefreshError{Station: res.Station, Stage: "publish", Error: err.Error()})
			} else if j.publisher != nil {
				result.Published++
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("published", result.Published).
		Msg("station refresh job completed")

	return result
}

// RefreshStation refreshes and publishes a single station by name.
func (j *RefreshJob) RefreshStation(ctx context.Context, name string) (int, error) {
	j.run.Lock()
	defer j.run.Unlock()

	st, ok := j.stations.FindByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStationNotFound, name)
	}

	n, err := j.stations.Refresh(ctx, st)

	j.metrics.mu.Lock()
	if err != nil {
		j.metrics.FailedRefreshes++
	} else {
		j.metrics.SuccessfulRefresh++
	}
	j.metrics.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if err := j.publish(ctx, st); err != nil {
		return n, err
	}
	return n, nil
}

func (j *RefreshJob) publish(ctx context.Context, st *weather.Station) error {
	if j.publisher == nil {
		return nil
	}
	err := j.publisher.Publish(ctx, st)

	j.metrics.mu.Lock()
	if err != nil {
		j.metrics.PublishFailures++
	} else {
		j.metrics.Published++
	}
	j.metrics.mu.Unlock()

	if err != nil {
		j.logger.Warn().Err(err).Str("station", st.Name).Msg("failed to publish station")
	}
	return err
}

// Start runs the job every configured interval until ctx is cancelled.
func (j *RefreshJob) Start(ctx context.Context) {
	j.logger.Info().Dur("interval", j.config.Interval).Msg("refresh loop started")

	if j.config.RunOnStart {
		j.Run(ctx)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("refresh loop stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

// RefreshMessage is a job request delivered through Pub/Sub.
type RefreshMessage struct {
	JobType string `json:"job_type"`
	Station string `json:"station,omitempty"`
}

// Handle executes a job request.
func (j *RefreshJob) Handle(ctx context.Context, msg RefreshMessage) error {
	switch msg.JobType {
	case JobRefreshAll:
		result := j.Run(ctx)
		if result.Total > 0 && float64(result.Failed)/float64(result.Total) > j.config.MaxFailureRatio {
			return fmt.Errorf("%w: %d/%d", ErrTooManyFailures, result.Failed, result.Total)
		}
		return nil
	case JobRefreshStation:
		_, err := j.RefreshStation(ctx, msg.Station)
		return err
	case JobHealthCheck:
		// Reloading picks up configuration written by other processes.
		return j.stations.Load(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		Published:           j.metrics.Published,
		PublishFailures:     j.metrics.PublishFailures,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"published":             m.Published,
		"publish_failures":      m.PublishFailures,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}

var _ Stations = (*registry.Service)(nil)
