package kafka

import (
	"encoding/json"
	"fmt"
)

// 任务队列topic常量。所有摄取任务走同一个队列，
// 重试耗尽后进入死信topic等待人工处理。
const (
	IngestTopic     = "main-queue"
	DeadLetterTopic = "main-queue.deadletter"
)

// IngestionTask 一次文档摄取任务。只在队列可见窗口内存在，
// 不落库；终态结果由worker写入任务状态存储。
type IngestionTask struct {
	TaskID   string `json:"task_id"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	UserID   string `json:"user_id"`
	// 当前投递次数，从1开始。重投递时递增。
	Attempt int `json:"attempt"`
}

// Encode 序列化任务消息
func (t *IngestionTask) Encode() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("序列化任务消息失败: %w", err)
	}
	return data, nil
}

// ParseIngestionTask 解析任务消息
func ParseIngestionTask(data []byte) (*IngestionTask, error) {
	var task IngestionTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("解析任务消息失败: %w", err)
	}
	if task.Attempt < 1 {
		task.Attempt = 1
	}
	return &task, nil
}

// DeadLetter 死信消息，保留原任务和最后一次失败原因
type DeadLetter struct {
	Task      IngestionTask `json:"task"`
	LastError string        `json:"last_error"`
}

// RetryDecision 任务失败后的处理决策
type RetryDecision int

const (
	// DecisionRetry 重新投递任务
	DecisionRetry RetryDecision = iota
	// DecisionDeadLetter 投递次数耗尽，转入死信
	DecisionDeadLetter
	// DecisionDrop 终态失败（如源文件丢失），记录后确认
	DecisionDrop
)

// DecideRetry 根据投递次数与错误类别决定后续动作。
// retryable=false的错误直接丢弃（已记录终态），其余错误在
// maxAttempts内重投递，超过后进死信。
func DecideRetry(task *IngestionTask, retryable bool, maxAttempts int) RetryDecision {
	if !retryable {
		return DecisionDrop
	}
	if maxAttempts > 0 && task.Attempt >= maxAttempts {
		return DecisionDeadLetter
	}
	return DecisionRetry
}
