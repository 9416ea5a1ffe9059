package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"telcoreg/internal/telco/models"
	"telcoreg/pkg/platform/sentinel"
)

const (
	// Redis keys for the admin address, the address -> record hash and the
	// state version.
	redisAdminKey     = "telco:admin"
	redisDirectoryKey = "telco:directory"
	redisVersionKey   = "telco:version"
)

// RedisStore persists the registry state in Redis: the admin as a plain key,
// the directory as a hash of JSON-encoded records.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed state store.
func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Load reads the admin and the directory inside one MULTI/EXEC block so both
// come from the same point in time.
func (s *RedisStore) Load(ctx context.Context) (*models.State, error) {
	var (
		adminCmd   *redis.StringCmd
		dirCmd     *redis.MapStringStringCmd
		versionCmd *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		adminCmd = pipe.Get(ctx, redisAdminKey)
		dirCmd = pipe.HGetAll(ctx, redisDirectoryKey)
		versionCmd = pipe.Get(ctx, redisVersionKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load registry state: %w", err)
	}

	admin, err := adminCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}

	entries, err := dirCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("load telcos: %w", err)
	}

	version, err := versionCmd.Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load version: %w", err)
	}

	state := models.NewState(models.Address(admin))
	state.Version = version
	for addr, raw := range entries {
		var t models.Telco
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode telco %s: %w", addr, err)
		}
		state.Telcos[models.Address(addr)] = &t
	}
	return state, nil
}

// Version returns the stored state version, 0 before the first write.
func (s *RedisStore) Version(ctx context.Context) (uint64, error) {
	version, err := s.client.Get(ctx, redisVersionKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return version, nil
}

// Apply persists one mutation inside an optimistic WATCH/MULTI/EXEC
// transaction on the version key. A version that no longer matches m.Version,
// or a concurrent writer touching it before EXEC, returns sentinel.ErrConflict.
func (s *RedisStore) Apply(ctx context.Context, m models.Mutation) error {
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		version, err := rtx.Get(ctx, redisVersionKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read version: %w", err)
		}
		if version != m.Version {
			return sentinel.ErrConflict
		}
		if m.Kind == models.MutationCreateTelco {
			exists, err := rtx.HExists(ctx, redisDirectoryKey, m.Address.String()).Result()
			if err != nil {
				return fmt.Errorf("check telco: %w", err)
			}
			if exists {
				return sentinel.ErrConflict
			}
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := queueMutation(ctx, pipe, m); err != nil {
				return err
			}
			pipe.Set(ctx, redisVersionKey, m.Version+1, 0)
			return nil
		})
		return err
	}, redisVersionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	return err
}

func queueMutation(ctx context.Context, pipe redis.Pipeliner, m models.Mutation) error {
	switch m.Kind {
	case models.MutationCreateTelco, models.MutationPutTelco:
		raw, err := encodeTelco(m.Telco)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, redisDirectoryKey, m.Address.String(), raw)
	case models.MutationDeleteTelco:
		pipe.HDel(ctx, redisDirectoryKey, m.Address.String())
	case models.MutationSetAdmin:
		pipe.Set(ctx, redisAdminKey, m.Address.String(), 0)
	default:
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
	return nil
}

func encodeTelco(t *models.Telco) (string, error) {
	if t == nil {
		return "", fmt.Errorf("telco record is required")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode telco: %w", err)
	}
	return string(raw), nil
}
