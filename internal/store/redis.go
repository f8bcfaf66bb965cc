package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

const (
	recentKey = "triage:recent"
	totalKey  = "triage:total"
	resultKey = "triage:analysis:"
	resultTTL = 24 * time.Hour
)

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	Addr        string
	Password    string
	DB          int
	Channel     string
	MaxAnalyses int
	DialTimeout time.Duration
}

// RedisStore persists analyses in Redis and broadcasts them over pub/sub so
// multiple engine instances share one view of recent activity.
type RedisStore struct {
	client  *redis.Client
	channel string
	max     int64
	logger  *slog.Logger
}

// NewRedisStore connects and pings the target to fail fast on bad config.
func NewRedisStore(cfg RedisStoreConfig, logger *slog.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = "triage:analyses"
	}
	if cfg.MaxAnalyses <= 0 {
		cfg.MaxAnalyses = 200
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis store: %w", err)
	}

	return &RedisStore{
		client:  client,
		channel: cfg.Channel,
		max:     int64(cfg.MaxAnalyses),
		logger:  logger,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, result *models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, resultKey+result.ID, data, resultTTL)
	pipe.LPush(ctx, recentKey, result.ID)
	pipe.LTrim(ctx, recentKey, 0, s.max-1)
	pipe.Incr(ctx, totalKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn("broadcast failed", slog.String("analysis_id", result.ID), slog.Any("error", err))
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	data, err := s.client.Get(ctx, resultKey+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return &result, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 || int64(limit) > s.max {
		limit = int(s.max)
	}
	ids, err := s.client.LRange(ctx, recentKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.AnalysisResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Expired while still listed; skip.
				continue
			}
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *RedisStore) TotalCount(ctx context.Context) (int64, error) {
	total, err := s.client.Get(ctx, totalKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan *models.AnalysisResult, error) {
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	out := make(chan *models.AnalysisResult, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var result models.AnalysisResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					s.logger.Warn("dropping malformed broadcast", slog.Any("error", err))
					continue
				}
				select {
				case out <- &result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
