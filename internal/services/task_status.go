package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 任务终态结果
const (
	OutcomeAlreadyExists = "already_exists"
	OutcomeCompleted     = "completed"
	OutcomeFailed        = "failed"
	OutcomeProcessing    = "processing"
)

// TaskStatus 摄取任务的可观测状态。源文件丢失这类被吞掉的失败
// 也会记录在这里，调用方可以轮询到终态结果。
type TaskStatus struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	DocumentID *uint  `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

// TaskStatusStore 任务状态存储
type TaskStatusStore interface {
	Set(ctx context.Context, status *TaskStatus) error
	Get(ctx context.Context, taskID string) (*TaskStatus, error)
}

// RedisTaskStatusStore 基于Redis的任务状态存储，键带TTL自动过期
type RedisTaskStatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTaskStatusStore 创建任务状态存储
func NewRedisTaskStatusStore(client *redis.Client, ttl time.Duration) *RedisTaskStatusStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisTaskStatusStore{client: client, ttl: ttl}
}

func statusKey(taskID string) string {
	return fmt.Sprintf("ingest:task:status:%s", taskID)
}

// Set 写入任务状态
func (s *RedisTaskStatusStore) Set(ctx context.Context, status *TaskStatus) error {
	if s.client == nil {
		return nil
	}
	status.UpdatedAt = time.Now().Format(time.RFC3339)

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal task status: %w", err)
	}
	return s.client.Set(ctx, statusKey(status.TaskID), data, s.ttl).Err()
}

// Get 读取任务状态，不存在时返回nil
func (s *RedisTaskStatusStore) Get(ctx context.Context, taskID string) (*TaskStatus, error) {
	if s.client == nil {
		return nil, nil
	}

	data, err := s.client.Get(ctx, statusKey(taskID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task status: %w", err)
	}

	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal task status: %w", err)
	}
	return &status, nil
}
