package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/cfg"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/discovery"
	"github.com/lysyi3m/cdn-comb/app/fetch"
	"github.com/lysyi3m/cdn-comb/app/migration"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache   *catalog.ConfigCache
	assetRepo     database.AssetRepository
	candidateRepo database.CandidateRepository
	alertRepo     database.AlertRepository
	detector      *catalog.Detector
	policy        *catalog.SchedulerPolicy
	monitor       *catalog.FailureMonitor
	manager       *migration.Manager
	scanner       *discovery.Scanner
	fetcher       fetch.Fetcher

	canaryPages       []string
	interval          time.Duration
	checkInterval     time.Duration
	discoveryInterval time.Duration
	workerCount       int

	lastDiscovery time.Time
	discoveryMu   sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(configCache *catalog.ConfigCache, assetRepo database.AssetRepository,
	candidateRepo database.CandidateRepository, alertRepo database.AlertRepository,
	detector *catalog.Detector, policy *catalog.SchedulerPolicy,
	monitor *catalog.FailureMonitor, manager *migration.Manager,
	scanner *discovery.Scanner, fetcher fetch.Fetcher) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		configCache:       configCache,
		assetRepo:         assetRepo,
		candidateRepo:     candidateRepo,
		alertRepo:         alertRepo,
		detector:          detector,
		policy:            policy,
		monitor:           monitor,
		manager:           manager,
		scanner:           scanner,
		fetcher:           fetcher,
		canaryPages:       c.CanaryPages,
		interval:          time.Duration(c.SchedulerInterval) * time.Second,
		checkInterval:     time.Duration(c.CheckInterval) * time.Second,
		discoveryInterval: time.Duration(c.DiscoveryInterval) * time.Second,
		workerCount:       c.WorkerCount,
		ctx:               ctx,
		cancel:            cancel,
		taskQueue:         make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) RequestDetection() error {
	return s.EnqueueTask(NewDetectUpdatesTask(s.detector, s.policy, s.manager,
		s.assetRepo, s.candidateRepo, s.alertRepo))
}

func (s *Scheduler) RequestDiscovery() error {
	s.discoveryMu.Lock()
	s.lastDiscovery = time.Now()
	s.discoveryMu.Unlock()

	return s.EnqueueTask(NewDiscoverAssetsTask(s.scanner, s.configCache, s.canaryPages, s))
}

func (s *Scheduler) enqueueStartupTasks() {
	groups := s.configCache.GetGroups()
	if len(groups) == 0 {
		slog.Debug("No asset groups configured")
	}

	for _, group := range groups {
		syncTask := NewSyncAssetConfigTask(group, s.assetRepo, s.manager)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncAssetConfigTask", "category", group.Category, "error", err)
		}
	}

	if err := s.RequestDiscovery(); err != nil {
		slog.Warn("Failed to enqueue DiscoverAssetsTask", "error", err)
	}

	if err := s.RequestDetection(); err != nil {
		slog.Warn("Failed to enqueue DetectUpdatesTask", "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	assets, err := s.assetRepo.GetActiveAssets()
	if err != nil {
		slog.Warn("Failed to load active assets, skipping scheduling pass", "error", err)
		return
	}

	now := time.Now()
	for _, asset := range assets {
		if asset.LastCheckedAt != nil && now.Sub(*asset.LastCheckedAt) < s.checkInterval {
			continue
		}

		checkTask := NewCheckAssetTask(asset.BaseName, s.fetcher, s.assetRepo,
			s.monitor, s.manager, s)
		if err := s.EnqueueTask(checkTask); err != nil {
			slog.Warn("Failed to enqueue CheckAssetTask", "base_name", asset.BaseName, "error", err)
		}
	}

	s.discoveryMu.Lock()
	discoveryDue := now.Sub(s.lastDiscovery) >= s.discoveryInterval
	s.discoveryMu.Unlock()

	if discoveryDue {
		if err := s.RequestDiscovery(); err != nil {
			slog.Warn("Failed to enqueue DiscoverAssetsTask", "error", err)
		}
	}

	if err := s.RequestDetection(); err != nil {
		slog.Warn("Failed to enqueue DetectUpdatesTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
