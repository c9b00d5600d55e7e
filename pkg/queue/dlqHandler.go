package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DLQHandler handles tasks that exhausted their retries.
type DLQHandler interface {
	HandleFailedTask(task *Task, err error)
	GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error)
	RequeueFailedTask(ctx context.Context, taskID string) error
	DeleteFailedTask(ctx context.Context, taskID string) error
}

// FailedTask represents a task that failed execution
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

// DefaultDLQHandler stores failed tasks in a Redis sorted set keyed by
// failure time.
type DefaultDLQHandler struct {
	client    *redis.Client
	dlq       string
	mainQueue string
}

func NewDefaultDLQHandler(client *redis.Client, dlq, mainQueue string) *DefaultDLQHandler {
	return &DefaultDLQHandler{
		client:    client,
		dlq:       dlq,
		mainQueue: mainQueue,
	}
}

// HandleFailedTask stores a failed task in the DLQ
func (d *DefaultDLQHandler) HandleFailedTask(task *Task, err error) {
	failedTask := &FailedTask{
		Task:     task,
		Error:    err.Error(),
		FailedAt: time.Now(),
		Attempts: task.Attempts,
	}

	taskData, marshalErr := json.Marshal(failedTask)
	if marshalErr != nil {
		logrus.WithError(marshalErr).Error("failed to marshal failed task")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	score := float64(failedTask.FailedAt.UnixNano()) / 1e9
	if redisErr := d.client.ZAdd(ctx, d.dlq, &redis.Z{
		Score:  score,
		Member: taskData,
	}).Err(); redisErr != nil {
		logrus.WithError(redisErr).Error("failed to send task to DLQ")
		return
	}

	logrus.WithError(err).WithField("task_id", task.ID).Warn("task moved to DLQ")
}

// GetFailedTasks retrieves failed tasks from DLQ, newest first.
func (d *DefaultDLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := d.client.ZRevRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed tasks: %w", err)
	}

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}

	var failedTasks []*FailedTask
	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			logrus.WithError(err).Error("failed to unmarshal failed task")
			continue
		}
		failedTasks = append(failedTasks, &failedTask)
	}

	return failedTasks, nil
}

// RequeueFailedTask moves a failed task back to the main queue for retry
func (d *DefaultDLQHandler) RequeueFailedTask(ctx context.Context, taskID string) error {
	tasks, err := d.client.ZRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			continue
		}

		if failedTask.Task.ID != taskID {
			continue
		}

		failedTask.Task.Attempts = 0
		failedTask.Task.ExecuteAt = time.Now()

		requeued, err := json.Marshal(failedTask.Task)
		if err != nil {
			return fmt.Errorf("failed to marshal task for requeue: %w", err)
		}

		pipe := d.client.Pipeline()
		pipe.LPush(ctx, d.mainQueue, requeued)
		pipe.ZRem(ctx, d.dlq, taskData)

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to requeue task: %w", err)
		}

		logrus.WithField("task_id", taskID).Info("task requeued from DLQ")
		return nil
	}

	return fmt.Errorf("task %s not found in DLQ", taskID)
}

// DeleteFailedTask permanently removes a failed task from DLQ
func (d *DefaultDLQHandler) DeleteFailedTask(ctx context.Context, taskID string) error {
	tasks, err := d.client.ZRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			continue
		}

		if failedTask.Task.ID != taskID {
			continue
		}

		if err := d.client.ZRem(ctx, d.dlq, taskData).Err(); err != nil {
			return fmt.Errorf("failed to delete task from DLQ: %w", err)
		}

		logrus.WithField("task_id", taskID).Info("task deleted from DLQ")
		return nil
	}

	return fmt.Errorf("task %s not found in DLQ", taskID)
}
