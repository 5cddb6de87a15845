package convstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an idle conversation is kept. Zero keeps forever.
	TTL    time.Duration
	Prefix string
}

type redisStore struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisStore(opts RedisOptions, log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "studydesk"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStore{
		rdb:    rdb,
		ttl:    opts.TTL,
		prefix: prefix,
		log:    log.With("service", "RedisConversationStore"),
	}, nil
}

func (s *redisStore) recordKey(ownerID, id string) string {
	return fmt.Sprintf("%s:conv:%s:%s", s.prefix, ownerID, id)
}

func (s *redisStore) indexKey(ownerID string) string {
	return fmt.Sprintf("%s:convs:%s", s.prefix, ownerID)
}

func (s *redisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" || rec.OwnerID == "" {
		return fmt.Errorf("%w: conversation id and owner required", apperr.ErrInvalidArgument)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	idx := s.indexKey(rec.OwnerID)
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.recordKey(rec.OwnerID, rec.ID), raw, s.ttl)
		p.ZAdd(ctx, idx, goredis.Z{Score: float64(rec.UpdatedAt.UnixMilli()), Member: rec.ID})
		if s.ttl > 0 {
			p.Expire(ctx, idx, s.ttl)
		}
		return nil
	})
	return err
}

func (s *redisStore) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.recordKey(ownerID, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *redisStore) List(ctx context.Context, ownerID string) ([]Summary, error) {
	idx := s.indexKey(ownerID)
	ids, err := s.rdb.ZRevRange(ctx, idx, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := []Summary{}
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(ownerID, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var expired []interface{}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			s.log.Warn("skipping undecodable conversation", "conversation_id", ids[i], "error", err)
			continue
		}
		out = append(out, rec.Summary())
	}
	if len(expired) > 0 {
		if err := s.rdb.ZRem(ctx, idx, expired...).Err(); err != nil {
			s.log.Warn("failed to prune expired conversations", "error", err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *redisStore) Delete(ctx context.Context, ownerID, id string) error {
	n, err := s.rdb.Del(ctx, s.recordKey(ownerID, id)).Result()
	if err != nil {
		return err
	}
	if err := s.rdb.ZRem(ctx, s.indexKey(ownerID), id).Err(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *redisStore) Close() error { return s.rdb.Close() }
