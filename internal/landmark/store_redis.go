package landmark

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type redisStore struct{ rdb *redis.Client }

// NewRedisStore keeps landmarks in one hash per adapter.
func NewRedisStore(rdb *redis.Client) Store { return &redisStore{rdb: rdb} }

func (s *redisStore) key(adapterID string) string { return "landmark:" + adapterID }

func (s *redisStore) All(ctx context.Context, adapterID string) (map[string]Landmark, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(adapterID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Landmark, len(raw))
	for name, v := range raw {
		var lm Landmark
		if err := json.Unmarshal([]byte(v), &lm); err != nil {
			continue
		}
		out[name] = lm
	}
	return out, nil
}

func (s *redisStore) Get(ctx context.Context, adapterID, name string) (Landmark, bool, error) {
	raw, err := s.rdb.HGet(ctx, s.key(adapterID), name).Bytes()
	if err == redis.Nil {
		return Landmark{}, false, nil
	}
	if err != nil {
		return Landmark{}, false, err
	}
	var lm Landmark
	if err := json.Unmarshal(raw, &lm); err != nil {
		return Landmark{}, false, err
	}
	return lm, true, nil
}

func (s *redisStore) Put(ctx context.Context, adapterID, name string, lm Landmark) error {
	raw, err := json.Marshal(lm)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key(adapterID), name, raw).Err()
}

func (s *redisStore) Delete(ctx context.Context, adapterID, name string) (bool, error) {
	n, err := s.rdb.HDel(ctx, s.key(adapterID), name).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
