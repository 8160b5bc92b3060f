package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Health levels
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

const (
	dlqCriticalDepth   = 100
	queueWarningDepth  = 1000
	failureWarningRate = 0.1
	minHandledForRate  = 10
)

// Stats holds the publishing pipeline's current state
type Stats struct {
	QueueDepth  int       `json:"queue_depth"`
	DLQDepth    int       `json:"dlq_depth"`
	Handled     int64     `json:"handled"`
	Failed      int64     `json:"failed"`
	LastUpdated time.Time `json:"last_updated"`
}

// QueueProvider defines the interface for queue metrics
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// EventHandler processes one record saved event
type EventHandler func(ctx context.Context, event *models.RecordSavedEvent) error

// Monitor tracks queue depths and handler outcomes of a worker
type Monitor struct {
	stats    Stats
	mu       sync.RWMutex
	queue    QueueProvider
	interval time.Duration
	logger   *logging.Logger
}

// NewMonitor creates a new monitor polling queue every interval
func NewMonitor(queue QueueProvider, interval time.Duration, logger *logging.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Monitor{
		stats:    Stats{LastUpdated: time.Now()},
		queue:    queue,
		interval: interval,
		logger:   logger,
	}
}

// Start begins polling until ctx is done
func (m *Monitor) Start(ctx context.Context) {
	go m.collect(ctx)
}

func (m *Monitor) collect(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Update(); err != nil {
				m.logger.WarnWithErr("Failed to update queue stats", err)
			}
			for _, alert := range m.Alerts() {
				m.logger.Warn(alert)
			}
		}
	}
}

// Update polls the queue depths once
func (m *Monitor) Update() error {
	queueDepth, err := m.queue.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("failed to get queue depth: %w", err)
	}
	dlqDepth, err := m.queue.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("failed to get DLQ depth: %w", err)
	}

	metrics.SetQueueDepth("main", queueDepth)
	metrics.SetQueueDepth("dead_letter", dlqDepth)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.QueueDepth = queueDepth
	m.stats.DLQDepth = dlqDepth
	m.stats.LastUpdated = time.Now()
	return nil
}

// Track wraps handler to count its outcomes
func (m *Monitor) Track(handler EventHandler) EventHandler {
	return func(ctx context.Context, event *models.RecordSavedEvent) error {
		err := handler(ctx, event)

		m.mu.Lock()
		m.stats.Handled++
		if err != nil {
			m.stats.Failed++
		}
		m.mu.Unlock()

		return err
	}
}

// Stats returns a copy of the current stats
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Health returns the overall pipeline health
func (m *Monitor) Health() string {
	s := m.Stats()

	if s.DLQDepth > dlqCriticalDepth {
		return HealthCritical
	}
	if s.QueueDepth > queueWarningDepth || failureRate(s) > failureWarningRate {
		return HealthWarning
	}
	return HealthHealthy
}

// Alerts returns current pipeline alerts
func (m *Monitor) Alerts() []string {
	s := m.Stats()
	var alerts []string

	if s.DLQDepth > dlqCriticalDepth {
		alerts = append(alerts, fmt.Sprintf("High DLQ depth: %d messages", s.DLQDepth))
	}
	if s.QueueDepth > queueWarningDepth {
		alerts = append(alerts, fmt.Sprintf("High queue depth: %d events pending", s.QueueDepth))
	}
	if rate := failureRate(s); rate > failureWarningRate {
		alerts = append(alerts, fmt.Sprintf("High failure rate: %.1f%%", rate*100))
	}

	return alerts
}

func failureRate(s Stats) float64 {
	if s.Handled < minHandledForRate {
		return 0
	}
	return float64(s.Failed) / float64(s.Handled)
}
