// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"postcraft-go/internal/config"
	"postcraft-go/pkg/events"
	"postcraft-go/pkg/log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// EventProcessor 处理一条领域事件。消费者不关心具体的处理逻辑。
type EventProcessor interface {
	Process(ctx context.Context, event events.Event) error
}

// Publisher 发布领域事件，服务层只依赖这个接口。
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	log.Info("Kafka 生产者初始化成功")
	return &producer{writer: w}
}

// Publish 以用户 ID 作为 key 发送事件，保证同一用户的事件有序。
func (p *producer) Publish(ctx context.Context, event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

// NopPublisher 丢弃所有事件，用于未配置 Kafka 的环境与测试。
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event events.Event) error { return nil }

// 单条消息的最大处理次数与两次重试之间的间隔
const (
	maxProcessAttempts = 3
	retryBackoff       = 500 * time.Millisecond
)

// StartConsumer 启动一个 Kafka 消费者来处理领域事件，ctx 取消时退出。
// 处理失败的消息在原地重试，最多处理 3 次后提交 offset，失败计数存放在 Redis 中。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, rdb *redis.Client, processor EventProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		var event events.Event
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		if err := processWithRetry(ctx, rdb, processor, event, retryBackoff); err != nil {
			if ctx.Err() != nil {
				// 退出时不提交，重启后从这条消息继续
				break
			}
			log.Errorf("事件多次处理失败(>=%d)，提交 offset 终止重试: id=%s err=%v", maxProcessAttempts, event.ID, err)
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// processWithRetry 在同一条消息上反复调用 processor，直到成功或累计处理 maxProcessAttempts 次。
// 计数按事件 ID 存在 Redis，进程重启后继续累计；Redis 不可用时退回本地计数。
func processWithRetry(ctx context.Context, rdb *redis.Client, processor EventProcessor, event events.Event, backoff time.Duration) error {
	attemptsKey := fmt.Sprintf("kafka:attempts:%s", event.ID)
	var local int64
	for {
		err := processor.Process(ctx, event)
		if err == nil {
			_ = rdb.Del(ctx, attemptsKey).Err()
			return nil
		}
		log.Errorf("处理事件失败: id=%s type=%s, Error: %v", event.ID, event.Type, err)

		local++
		attempts, incErr := rdb.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			log.Warnf("记录重试次数失败，使用本地计数: id=%s err=%v", event.ID, incErr)
			attempts = local
		} else {
			_ = rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		}
		if attempts >= maxProcessAttempts {
			_ = rdb.Del(ctx, attemptsKey).Err()
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
