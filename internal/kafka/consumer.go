package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/aidoc/backend-go/internal/logger"
	"go.uber.org/zap"
)

// TaskHandler 任务处理函数。返回(retryable=false, err=nil)之外的组合
// 决定消息的重投递或死信路由。
type TaskHandler func(ctx context.Context, task *IngestionTask) (retryable bool, err error)

// Consumer 摄取worker的Kafka消费者。确认是延迟的：
// 只有任务完全成功、显式终态失败或完成重试/死信转发后才标记消息。
type Consumer struct {
	consumer    sarama.ConsumerGroup
	groupID     string
	topics      []string
	handler     TaskHandler
	producer    *Producer
	maxAttempts int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

var globalConsumer *Consumer

// InitConsumer 初始化Kafka消费者。producer用于失败任务的重投递和死信转发。
func InitConsumer(brokers []string, groupID string, handler TaskHandler, producer *Producer, maxAttempts int) error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true
	// 每个worker同一时刻只预取一个任务，慢的嵌入调用不会堆积内存
	config.ChannelBufferSize = 1
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return fmt.Errorf("创建Kafka消费者组失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	globalConsumer = &Consumer{
		consumer:    consumerGroup,
		groupID:     groupID,
		topics:      []string{IngestTopic},
		handler:     handler,
		producer:    producer,
		maxAttempts: maxAttempts,
		ctx:         ctx,
		cancel:      cancel,
	}

	logger.Info("Kafka消费者初始化成功",
		zap.Strings("brokers", brokers),
		zap.String("group_id", groupID),
		zap.Int("max_attempts", maxAttempts))

	go globalConsumer.start()

	return nil
}

// GetConsumer 获取全局消费者实例
func GetConsumer() *Consumer {
	return globalConsumer
}

// start 启动消费者
func (c *Consumer) start() {
	if c == nil || c.consumer == nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				logger.Info("Kafka消费者停止")
				return
			default:
				handler := &taskGroupHandler{
					handler:     c.handler,
					producer:    c.producer,
					maxAttempts: c.maxAttempts,
				}
				err := c.consumer.Consume(c.ctx, c.topics, handler)
				if err != nil {
					logger.Error("消费消息失败", zap.Error(err))
					time.Sleep(5 * time.Second)
				}
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			logger.Error("Kafka消费者错误", zap.Error(err))
		}
	}()
}

// Close 关闭消费者
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// taskGroupHandler 消费者组处理器
type taskGroupHandler struct {
	handler     TaskHandler
	producer    *Producer
	maxAttempts int
}

// Setup 会话开始
func (h *taskGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup 会话结束
func (h *taskGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 逐条消费摄取任务
func (h *taskGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			h.handleMessage(session, message)

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *taskGroupHandler) handleMessage(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	task, err := ParseIngestionTask(message.Value)
	if err != nil {
		// 无法解析的消息重试也没有意义，记录后确认
		logger.Error("丢弃无法解析的任务消息",
			zap.Error(err),
			zap.Int64("offset", message.Offset))
		session.MarkMessage(message, "")
		return
	}

	ctx := context.Background()
	retryable, handleErr := h.handler(ctx, task)
	if handleErr == nil {
		session.MarkMessage(message, "")
		logger.Debug("任务处理成功",
			zap.String("task_id", task.TaskID),
			zap.Int64("offset", message.Offset))
		return
	}

	logger.Error("任务处理失败",
		zap.String("task_id", task.TaskID),
		zap.String("filename", task.Filename),
		zap.Int("attempt", task.Attempt),
		zap.Error(handleErr))

	switch DecideRetry(task, retryable, h.maxAttempts) {
	case DecisionRetry:
		retry := *task
		retry.Attempt++
		if err := h.producer.EnqueueTask(&retry); err != nil {
			// 重投递失败则不确认原消息，等待再次投递
			logger.Error("任务重投递失败，等待消息重新投递", zap.Error(err), zap.String("task_id", task.TaskID))
			return
		}
	case DecisionDeadLetter:
		if err := h.producer.SendDeadLetter(task, handleErr.Error()); err != nil {
			logger.Error("死信转发失败，等待消息重新投递", zap.Error(err), zap.String("task_id", task.TaskID))
			return
		}
	case DecisionDrop:
		// 终态失败已在handler内记录状态
	}

	session.MarkMessage(message, "")
}
