package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/config"
	"github.com/tenantdesk/tenantdesk/pkg/metrics"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

// redisRecorder pushes entries onto a shared redis list so multiple API
// replicas can feed one drain worker. Same contract as the in-process queue:
// push failures are logged and swallowed.
type redisRecorder struct {
	rdb    *redis.Client
	key    string
	sink   store.AuditStore
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func newRedisRecorder(cfg *config.RedisConfig, key string, sink store.AuditStore, logger *zap.Logger) (Recorder, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("redis audit driver requires at least one address")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addresses[0],
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &redisRecorder{
		rdb:    rdb,
		key:    key,
		sink:   sink,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.drain(ctx)
	return r, nil
}

func (r *redisRecorder) Record(entry model.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		r.logger.Error("audit marshal failed", zap.String("action", entry.Action), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.LPush(ctx, r.key, payload).Err(); err != nil {
		metrics.AuditDroppedTotal.Inc()
		r.logger.Warn("audit push failed, dropping entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (r *redisRecorder) drain(ctx context.Context) {
	defer close(r.done)
	for {
		result, err := r.rdb.BRPop(ctx, 5*time.Second, r.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			r.logger.Error("audit pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(result) != 2 {
			continue
		}

		var entry model.AuditLog
		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			r.logger.Error("audit decode failed", zap.Error(err))
			continue
		}

		appendCtx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := r.sink.Append(appendCtx, &entry); err != nil {
			r.logger.Error("audit append failed", zap.String("action", entry.Action), zap.Error(err))
		}
		cancel()
	}
}

func (r *redisRecorder) Close() error {
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		r.logger.Warn("audit recorder close timed out")
	}
	return r.rdb.Close()
}

// New selects the recorder transport by configured driver.
func New(cfg *config.AuditConfig, redisCfg *config.RedisConfig, sink store.AuditStore, logger *zap.Logger) (Recorder, error) {
	switch cfg.Driver {
	case "redis":
		logger.Info("using redis for audit queue")
		return newRedisRecorder(redisCfg, cfg.RedisKey, sink, logger)
	default:
		logger.Info("using in-process audit queue")
		return NewRecorder(sink, cfg.QueueSize, logger), nil
	}
}
