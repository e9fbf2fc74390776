package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL  = 7 * 24 * time.Hour
	DefaultKeep = 50
)

// Store keeps each record under its own key with a TTL and a per-user
// sorted set ordered by last update.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
	keep  int
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl, keep: DefaultKeep}
}

func (s *Store) Save(ctx context.Context, r *Record) error {
	if r.ID == "" || r.UserID == "" {
		return errors.New("history record requires id and user id")
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	index := indexKey(r.UserID)
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, r.RedisKey(), data, s.ttl)
	pipe.ZAdd(ctx, index, redis.Z{Score: float64(r.UpdatedAt.UnixMilli()), Member: r.ID})
	pipe.ZRemRangeByRank(ctx, index, 0, int64(-s.keep-1))
	pipe.Expire(ctx, index, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, userID, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, recordKey(userID, id)).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	r.UserID = userID
	return &r, nil
}

// List returns up to limit records, most recently updated first. Index
// entries whose record has expired are pruned.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]*Record, error) {
	if limit <= 0 || limit > s.keep {
		limit = s.keep
	}

	index := indexKey(userID)
	ids, err := s.redis.ZRevRange(ctx, index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(userID, id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(ids))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		r.UserID = userID
		records = append(records, &r)
	}

	if len(expired) > 0 {
		_ = s.redis.ZRem(ctx, index, expired...).Err()
	}
	return records, nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	pipe := s.redis.TxPipeline()
	del := pipe.Del(ctx, recordKey(userID, id))
	pipe.ZRem(ctx, indexKey(userID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
