package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/aidoc/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者，承担任务分发器的enqueue职责
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

var globalProducer *Producer

// NewProducer 用已有的sarama producer构造Producer
func NewProducer(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: producer, topic: topic}
}

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// GetProducerInstance 获取底层sarama producer实例（用于扩展功能）
func (p *Producer) GetProducerInstance() sarama.SyncProducer {
	return p.producer
}

// EnqueueTask 将摄取任务投递到任务队列。
// key使用user_id，同一用户的任务落在同一分区内保持顺序。
func (p *Producer) EnqueueTask(task *IngestionTask) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := task.Encode()
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(task.UserID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("task_id"),
				Value: []byte(task.TaskID),
			},
			{
				Key:   []byte("attempt"),
				Value: []byte(fmt.Sprintf("%d", task.Attempt)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka消息失败", zap.Error(err), zap.String("task_id", task.TaskID))
		return fmt.Errorf("发送任务失败: %w", err)
	}

	logger.Debug("摄取任务已入队",
		zap.String("task_id", task.TaskID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int("attempt", task.Attempt))

	return nil
}

// SendDeadLetter 将重试耗尽的任务转入死信topic
func (p *Producer) SendDeadLetter(task *IngestionTask, lastError string) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := json.Marshal(DeadLetter{
		Task:      *task,
		LastError: lastError,
	})
	if err != nil {
		return fmt.Errorf("序列化死信消息失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: DeadLetterTopic,
		Key:   sarama.StringEncoder(task.TaskID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送死信消息失败", zap.Error(err), zap.String("task_id", task.TaskID))
		return fmt.Errorf("发送死信失败: %w", err)
	}

	logger.Warn("任务进入死信队列",
		zap.String("task_id", task.TaskID),
		zap.String("filename", task.Filename),
		zap.Int("attempt", task.Attempt),
		zap.String("last_error", lastError))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
