package workers

import (
	"context"
	"matte/models"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ActionWorker takes planned SOS actions off the request path and hands them
// to a publisher. It never sends anything itself.
type ActionWorker struct {
	publisher ActionPublisher
	config    ActionWorkerConfig

	queue chan ActionJob

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats      ActionWorkerStats
	statsMutex sync.RWMutex
}

type ActionWorkerConfig struct {
	WorkerCount       int           `json:"workerCount"`
	QueueSize         int           `json:"queueSize"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
	RetryAttempts     int           `json:"retryAttempts"`
	RetryDelay        time.Duration `json:"retryDelay"`
}

type ActionJob struct {
	Plan       models.ActionPlan `json:"plan"`
	RetryCount int               `json:"retryCount"`
	QueuedAt   time.Time         `json:"queuedAt"`
}

type ActionWorkerStats struct {
	JobsQueued      int64     `json:"jobsQueued"`
	JobsPublished   int64     `json:"jobsPublished"`
	JobsFailed      int64     `json:"jobsFailed"`
	JobsRetried     int64     `json:"jobsRetried"`
	JobsDropped     int64     `json:"jobsDropped"`
	LastPublishedAt time.Time `json:"lastPublishedAt"`
	QueueLength     int       `json:"queueLength"`
	StartTime       time.Time `json:"startTime"`
}

func DefaultActionWorkerConfig() ActionWorkerConfig {
	return ActionWorkerConfig{
		WorkerCount:       2,
		QueueSize:         256,
		ProcessingTimeout: 10 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        2 * time.Second,
	}
}

func NewActionWorker(publisher ActionPublisher, config ActionWorkerConfig) *ActionWorker {
	defaults := DefaultActionWorkerConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = defaults.ProcessingTimeout
	}
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ActionWorker{
		publisher: publisher,
		config:    config,
		queue:     make(chan ActionJob, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		stats: ActionWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (aw *ActionWorker) Start() {
	aw.mutex.Lock()
	defer aw.mutex.Unlock()

	if aw.isRunning {
		return
	}
	aw.isRunning = true

	logrus.Infof("Starting Action Worker with %d workers", aw.config.WorkerCount)

	for i := 0; i < aw.config.WorkerCount; i++ {
		aw.wg.Add(1)
		go aw.worker(i)
	}
}

// Stop stops accepting jobs, lets the workers drain the queue and waits for them.
func (aw *ActionWorker) Stop() {
	aw.mutex.Lock()
	if !aw.isRunning {
		aw.mutex.Unlock()
		return
	}
	aw.isRunning = false
	close(aw.queue)
	aw.mutex.Unlock()

	aw.wg.Wait()
	aw.cancel()

	logrus.Info("Action Worker stopped")
}

// Enqueue implements services.ActionSink. A full queue drops the plan rather
// than holding up the trigger.
func (aw *ActionWorker) Enqueue(plan models.ActionPlan) bool {
	aw.mutex.RLock()
	defer aw.mutex.RUnlock()

	if !aw.isRunning {
		aw.incrementStat(func(s *ActionWorkerStats) { s.JobsDropped++ })
		return false
	}

	job := ActionJob{
		Plan:     plan,
		QueuedAt: time.Now(),
	}

	select {
	case aw.queue <- job:
		aw.incrementStat(func(s *ActionWorkerStats) { s.JobsQueued++ })
		return true
	default:
		aw.incrementStat(func(s *ActionWorkerStats) { s.JobsDropped++ })
		logrus.Warnf("Action queue full, dropping plan for emergency %s", plan.EmergencyID)
		return false
	}
}

func (aw *ActionWorker) GetStats() ActionWorkerStats {
	aw.statsMutex.RLock()
	defer aw.statsMutex.RUnlock()

	stats := aw.stats
	stats.QueueLength = len(aw.queue)
	return stats
}

func (aw *ActionWorker) worker(workerID int) {
	defer aw.wg.Done()

	logrus.Debugf("Action worker %d started", workerID)

	for job := range aw.queue {
		aw.processJob(job)
	}

	logrus.Debugf("Action worker %d stopped", workerID)
}

func (aw *ActionWorker) processJob(job ActionJob) {
	for {
		ctx, cancel := context.WithTimeout(aw.ctx, aw.config.ProcessingTimeout)
		err := aw.publisher.Publish(ctx, job.Plan)
		cancel()

		if err == nil {
			aw.incrementStat(func(s *ActionWorkerStats) {
				s.JobsPublished++
				s.LastPublishedAt = time.Now()
			})
			return
		}

		if job.RetryCount >= aw.config.RetryAttempts {
			aw.incrementStat(func(s *ActionWorkerStats) { s.JobsFailed++ })
			logrus.Errorf("Failed to publish actions for emergency %s after %d attempts: %v",
				job.Plan.EmergencyID, job.RetryCount+1, err)
			return
		}

		job.RetryCount++
		aw.incrementStat(func(s *ActionWorkerStats) { s.JobsRetried++ })
		logrus.Warnf("Retrying action publish for emergency %s (%d/%d): %v",
			job.Plan.EmergencyID, job.RetryCount, aw.config.RetryAttempts, err)

		select {
		case <-time.After(aw.config.RetryDelay):
		case <-aw.ctx.Done():
			return
		}
	}
}

func (aw *ActionWorker) incrementStat(update func(*ActionWorkerStats)) {
	aw.statsMutex.Lock()
	update(&aw.stats)
	aw.statsMutex.Unlock()
}
