package queue

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/coveplatform/mosh/pkg/redis"
)

const (
	JobChannel = "mosh:dispatch:jobs"
)

// RedisBus implements Bus using Redis Pub/Sub, so dispatch work survives in
// a multi-instance deployment.
type RedisBus struct {
	redisSvc redis.RedisServiceInterface
}

// NewRedisBus creates a new Redis-based dispatch bus
func NewRedisBus(redisSvc redis.RedisServiceInterface) *RedisBus {
	return &RedisBus{redisSvc: redisSvc}
}

// Publish sends a job to the bus
func (b *RedisBus) Publish(ctx context.Context, job Job) error {
	logger.Base().Debug("publishing dispatch job",
		zap.String("type", string(job.Type)), zap.String("task_id", job.TaskID))
	return b.redisSvc.Publish(ctx, JobChannel, job)
}

// Subscribe listens for jobs on the bus
func (b *RedisBus) Subscribe(ctx context.Context, handler func(Job)) error {
	logger.Base().Info("subscribing to dispatch jobs")
	return b.redisSvc.Subscribe(ctx, JobChannel, func(payload string) {
		var job Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			logger.Base().Error("failed to unmarshal dispatch job", zap.Error(err))
			return
		}
		handler(job)
	})
}

// LocalBus is an in-process Bus for single-instance deployments and tests.
// Jobs published before any subscriber exists are dropped with a log line.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []func(Job)
}

// NewLocalBus creates an in-process dispatch bus
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(ctx context.Context, job Job) error {
	b.mu.RLock()
	handlers := make([]func(Job), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Base().Warn("dispatch job published with no subscriber",
			zap.String("task_id", job.TaskID))
		return nil
	}
	for _, h := range handlers {
		go h(job)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, handler func(Job)) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}
