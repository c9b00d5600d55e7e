package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = 5 * time.Second
	defaultQueueTimeout = 5 * time.Second
)

// RedisQueue implements Queue on Redis: a list for immediate tasks, a
// sorted set for delayed tasks, a processing list for in-flight tasks and
// a DLQ for tasks that exhausted their retries.
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	delayedQueue    string
	processingQueue string
	dlq             string
	retryManager    *RetryManager
	dlqHandler      DLQHandler
	config          *RedisQueueConfig
	mu              sync.RWMutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// RedisQueueConfig contains configuration for RedisQueue
type RedisQueueConfig struct {
	// Redis connection
	Addr     string
	Password string
	DB       int

	// Queue names
	MainQueue       string
	DelayedQueue    string
	ProcessingQueue string
	DLQ             string

	// Behavior
	MaxRetries   int
	BaseDelay    time.Duration
	QueueTimeout time.Duration
	EnableDLQ    bool
}

// DefaultRedisQueueConfig returns default configuration
func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		Addr:            "localhost:6379",
		Password:        "",
		DB:              0,
		MainQueue:       "lapply:notifications",
		DelayedQueue:    "lapply:notifications:delayed",
		ProcessingQueue: "lapply:notifications:processing",
		DLQ:             "lapply:notifications:dlq",
		MaxRetries:      defaultMaxRetries,
		BaseDelay:       defaultBaseDelay,
		QueueTimeout:    defaultQueueTimeout,
		EnableDLQ:       true,
	}
}

// NewRedisQueue creates a new RedisQueue instance
func NewRedisQueue(cfg *RedisQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) (*RedisQueue, error) {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	applyQueueDefaults(cfg)

	if retryManager == nil {
		retryManager = NewRetryManager(cfg.MaxRetries, cfg.BaseDelay)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if dlqHandler == nil && cfg.EnableDLQ {
		dlqHandler = NewDefaultDLQHandler(client, cfg.DLQ, cfg.MainQueue)
	}

	q := &RedisQueue{
		client:          client,
		mainQueue:       cfg.MainQueue,
		delayedQueue:    cfg.DelayedQueue,
		processingQueue: cfg.ProcessingQueue,
		dlq:             cfg.DLQ,
		retryManager:    retryManager,
		dlqHandler:      dlqHandler,
		config:          cfg,
		stopChan:        make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    cfg.MainQueue,
		"delayed": cfg.DelayedQueue,
		"dlq":     cfg.DLQ,
	}).Info("RedisQueue initialized")

	return q, nil
}

func applyQueueDefaults(cfg *RedisQueueConfig) {
	defaults := DefaultRedisQueueConfig()
	if cfg.MainQueue == "" {
		cfg.MainQueue = defaults.MainQueue
	}
	if cfg.DelayedQueue == "" {
		cfg.DelayedQueue = defaults.DelayedQueue
	}
	if cfg.ProcessingQueue == "" {
		cfg.ProcessingQueue = defaults.ProcessingQueue
	}
	if cfg.DLQ == "" {
		cfg.DLQ = defaults.DLQ
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.QueueTimeout == 0 {
		cfg.QueueTimeout = defaults.QueueTimeout
	}
}

// Publish sends a task to the queue. Tasks with a future ExecuteAt go to
// the delayed sorted set; everything else to the main list.
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := r.prepareTask(task); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ExecuteAt.After(time.Now()) {
		score := float64(task.ExecuteAt.UnixNano()) / 1e9
		if err := r.client.ZAdd(ctx, r.delayedQueue, &redis.Z{
			Score:  score,
			Member: taskData,
		}).Err(); err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"task_id":    task.ID,
			"execute_at": task.ExecuteAt.Format(time.RFC3339),
		}).Debug("task scheduled")
	} else {
		if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
			return fmt.Errorf("failed to publish task: %w", err)
		}
		logrus.WithField("task_id", task.ID).Debug("task published")
	}

	return nil
}

// Subscribe starts consuming tasks from the queue
func (r *RedisQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.wg.Add(2)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)

	logrus.Info("RedisQueue subscriber started")
	return nil
}

// Close stops the background processors and closes the connection.
func (r *RedisQueue) Close() error {
	close(r.stopChan)
	r.wg.Wait()
	return r.client.Close()
}

func (r *RedisQueue) processMainQueue(ctx context.Context, handler func(*Task) error) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
			if err := r.processOne(ctx, handler); err != nil {
				logrus.WithError(err).Error("error processing task")
				time.Sleep(time.Second)
			}
		}
	}
}

// processOne moves one task from the main queue into the processing list,
// runs it with retries and removes it from the processing list.
func (r *RedisQueue) processOne(ctx context.Context, handler func(*Task) error) error {
	taskData, err := r.client.BRPopLPush(ctx, r.mainQueue, r.processingQueue, r.config.QueueTimeout).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		logrus.WithError(err).Error("failed to unmarshal task")
		r.moveToDLQ(taskData, fmt.Errorf("invalid task format: %w", err))
	} else if err := r.executeWithRetry(ctx, &task, handler); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": task.Attempts,
		}).Error("task failed")
		if r.dlqHandler != nil {
			r.dlqHandler.HandleFailedTask(&task, err)
		}
	}

	if err := r.client.LRem(ctx, r.processingQueue, 1, taskData).Err(); err != nil {
		logrus.WithError(err).Error("failed to remove task from processing queue")
	}

	return nil
}

func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.MoveReadyDelayedTasks(ctx); err != nil {
				logrus.WithError(err).Error("failed to process delayed tasks")
			}
		}
	}
}

// MoveReadyDelayedTasks promotes delayed tasks whose time has come to the
// main queue.
func (r *RedisQueue) MoveReadyDelayedTasks(ctx context.Context) error {
	now := float64(time.Now().UnixNano()) / 1e9
	max := fmt.Sprintf("%f", now)

	tasks, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: max,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed tasks: %w", err)
	}

	if len(tasks) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, taskData := range tasks {
		pipe.LPush(ctx, r.mainQueue, taskData)
	}
	pipe.ZRemRangeByScore(ctx, r.delayedQueue, "0", max)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move delayed tasks: %w", err)
	}

	logrus.WithField("count", len(tasks)).Debug("delayed tasks promoted")
	return nil
}

func (r *RedisQueue) executeWithRetry(ctx context.Context, task *Task, handler func(*Task) error) error {
	for {
		task.Attempts++

		err := handler(task)
		if err == nil {
			return nil
		}

		shouldRetry, delay := r.retryManager.ShouldRetry(task, err)
		if !shouldRetry {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"task_id": task.ID,
			"attempt": task.Attempts,
			"max":     task.MaxRetries,
			"delay":   delay,
		}).Warn("task failed, retrying")

		jitter := time.Duration(rand.Int63n(int64(delay/time.Millisecond)+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
	}
}

func (r *RedisQueue) moveToDLQ(taskData string, err error) {
	if !r.config.EnableDLQ || r.dlqHandler == nil {
		return
	}

	var task Task
	if jsonErr := json.Unmarshal([]byte(taskData), &task); jsonErr != nil {
		task = Task{
			ID:        fmt.Sprintf("corrupted_%d", time.Now().UnixNano()),
			Type:      "corrupted",
			Data:      map[string]interface{}{"raw_data": taskData},
			CreatedAt: time.Now(),
		}
		err = fmt.Errorf("corrupted task: %w", jsonErr)
	}
	r.dlqHandler.HandleFailedTask(&task, err)
}

func (r *RedisQueue) prepareTask(task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Type == "" {
		return fmt.Errorf("task type is required")
	}
	if task.Data == nil {
		task.Data = make(map[string]interface{})
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.config.MaxRetries
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = time.Now()
	}

	return nil
}
