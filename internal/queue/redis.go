package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsflow/article-analyzer/internal/analyzer"
	"github.com/newsflow/article-analyzer/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// 默认队列名
const (
	DefaultTaskQueue   = "article-analyzer:analyze_tasks"
	DefaultResultQueue = "article-analyzer:analyze_results"
)

// BLPOP 单次等待时间
const popTimeout = 30 * time.Second

// AnalyzeTask 分析任务
type AnalyzeTask struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalyzeResult 分析结果消息，status 与同步接口的 HTTP 状态码一致
type AnalyzeResult struct {
	TaskID   string           `json:"taskId"`
	URL      string           `json:"url"`
	Success  bool             `json:"success"`
	Result   *analyzer.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
	Status   int              `json:"status"`
	Duration int64            `json:"duration"` // 毫秒
}

// NewResult 根据分析结果或错误构造结果消息
func NewResult(task *AnalyzeTask, result *analyzer.Result, err error, elapsed time.Duration) *AnalyzeResult {
	out := &AnalyzeResult{
		TaskID:   task.ID,
		URL:      task.URL,
		Duration: elapsed.Milliseconds(),
	}
	if err != nil {
		e := analyzer.AsError(err, "Internal Server Error")
		out.Error = e.Message
		out.Status = e.StatusCode()
		return out
	}
	out.Success = true
	out.Result = result
	out.Status = 200
	return out
}

// DecodeTask 解析任务消息；缺少 id 时生成一个
func DecodeTask(data []byte) (*AnalyzeTask, error) {
	var task AnalyzeTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if strings.TrimSpace(task.ID) == "" {
		task.ID = uuid.New().String()
	}
	return &task, nil
}

// RedisQueue Redis 队列消费者
type RedisQueue struct {
	client       *redis.Client
	taskQueue    string
	resultQueue  string
	consumerName string
}

// NewRedisQueue 创建 Redis 队列并检查连接
func NewRedisQueue(ctx context.Context, redisURL, consumerName string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisQueue{
		client:       client,
		taskQueue:    DefaultTaskQueue,
		resultQueue:  DefaultResultQueue,
		consumerName: consumerName,
	}, nil
}

// ConsumeTask 阻塞等待一个任务，超时返回 nil
func (q *RedisQueue) ConsumeTask(ctx context.Context) (*AnalyzeTask, error) {
	result, err := q.client.BLPop(ctx, popTimeout, q.taskQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	if len(result) < 2 {
		return nil, nil
	}
	return DecodeTask([]byte(result[1]))
}

// PublishResult 发布结果
func (q *RedisQueue) PublishResult(ctx context.Context, result *AnalyzeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.resultQueue, data).Err()
}

// Close 关闭连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// TaskHandler 任务处理函数
type TaskHandler func(ctx context.Context, task *AnalyzeTask) *AnalyzeResult

// AnalyzeHandler 用分析器处理任务
//
// 任务一旦开始就只受 timeout 约束，消费者关闭不会中断进行中的分析。
func AnalyzeHandler(an *analyzer.Analyzer, timeout time.Duration) TaskHandler {
	return func(ctx context.Context, task *AnalyzeTask) *AnalyzeResult {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		result, err := an.Analyze(ctx, task.URL)
		return NewResult(task, result, err, time.Since(start))
	}
}

// taskSource 消费循环依赖的队列操作
type taskSource interface {
	ConsumeTask(ctx context.Context) (*AnalyzeTask, error)
	PublishResult(ctx context.Context, result *AnalyzeResult) error
}

// StartConsumer 启动消费者，ctx 取消后不再取新任务，等待进行中的任务完成并发布结果后返回
func (q *RedisQueue) StartConsumer(ctx context.Context, handler TaskHandler, concurrency int) {
	consume(ctx, q, handler, concurrency, logger.Log.WithField("consumer", q.consumerName))
}

func consume(ctx context.Context, src taskSource, handler TaskHandler, concurrency int, log *logrus.Entry) {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	// 已出队的任务不再受 ctx 影响
	work := context.WithoutCancel(ctx)

	defer func() {
		// 占满信号量即所有任务已结束
		for i := 0; i < concurrency; i++ {
			sem <- struct{}{}
		}
		log.Info("queue consumer stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := src.ConsumeTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("consume task")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if task == nil {
			continue
		}

		// 任务已从队列取出，必须处理；等待名额的时间受单个任务超时约束
		sem <- struct{}{}

		go func(t *AnalyzeTask) {
			defer func() { <-sem }()

			result := handler(work, t)
			entry := log.WithFields(logrus.Fields{
				"task":     t.ID,
				"url":      t.URL,
				"status":   result.Status,
				"duration": result.Duration,
			})
			pubCtx, cancel := context.WithTimeout(work, 5*time.Second)
			defer cancel()
			if err := src.PublishResult(pubCtx, result); err != nil {
				entry.WithError(err).Error("publish result")
				return
			}
			entry.Debug("task finished")
		}(task)
	}
}

// GetQueueLength 获取待处理任务数
func (q *RedisQueue) GetQueueLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.taskQueue).Result()
}
