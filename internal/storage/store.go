package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/walletlink-go/internal/core/domain"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("session store closed")

// Store is a string key-value store for persisted session keys.
//
// Get reports absence with ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Backend is one of "memory", "badger", "redis". Default: "badger".
	Backend string `koanf:"backend"`

	// Dir is the Badger data directory.
	Dir string `koanf:"dir"`

	// SyncWrites fsyncs each Badger write.
	SyncWrites bool `koanf:"sync_writes"`

	// Redis connection settings.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string `koanf:"key_prefix"`

	// SealKey is an optional hex-encoded 32-byte key. When set, values
	// are encrypted before they reach the backend.
	SealKey string `koanf:"seal_key"`
}

// DefaultKeyPrefix namespaces walletlink keys.
const DefaultKeyPrefix = "walletlink:session:"

// Open builds the configured store.
func Open(cfg Config, log logger.Logger) (Store, error) {
	log = logger.OrDefault(log)

	var (
		st  Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		st = NewMemoryStore()
	case BackendBadger, "":
		st, err = NewBadgerStore(BadgerConfig{
			Dir:        cfg.Dir,
			KeyPrefix:  cfg.KeyPrefix,
			SyncWrites: cfg.SyncWrites,
		}, log)
	case BackendRedis:
		st, err = NewRedisStore(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
	default:
		return nil, domain.ErrInvalidArgument.WithDetails("unknown store backend: " + cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SealKey != "" {
		sealed, err := NewSealedFromHex(st, cfg.SealKey)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st = sealed
	}

	log.Debug("session store opened", "backend", backendName(cfg.Backend), "sealed", cfg.SealKey != "")
	return st, nil
}

func backendName(b string) string {
	if b == "" {
		return BackendBadger
	}
	return b
}

// Load reads the persisted session keys. Missing keys yield empty fields.
func Load(ctx context.Context, s Store) (domain.PersistedSession, error) {
	var p domain.PersistedSession

	addr, _, err := s.Get(ctx, domain.KeyWalletAddress)
	if err != nil {
		return p, domain.ErrStorage.WithDetails("read " + domain.KeyWalletAddress).WithCause(err)
	}
	token, _, err := s.Get(ctx, domain.KeyAuthToken)
	if err != nil {
		return p, domain.ErrStorage.WithDetails("read " + domain.KeyAuthToken).WithCause(err)
	}

	owner, _, err := s.Get(ctx, domain.KeyAuthOwner)
	if err != nil {
		return p, domain.ErrStorage.WithDetails("read " + domain.KeyAuthOwner).WithCause(err)
	}

	p.Address = addr
	p.Token = token
	p.Owner = owner
	return p, nil
}

// Clear removes every persisted session key. All removals are attempted
// even if one fails.
func Clear(ctx context.Context, s Store) error {
	errAddr := s.Remove(ctx, domain.KeyWalletAddress)
	errToken := s.Remove(ctx, domain.KeyAuthToken)
	errOwner := s.Remove(ctx, domain.KeyAuthOwner)
	if err := errors.Join(errAddr, errToken, errOwner); err != nil {
		return domain.ErrStorage.WithDetails("clear session").WithCause(err)
	}
	return nil
}

// RemoveToken removes the persisted token and its owner, leaving the
// wallet address in place.
func RemoveToken(ctx context.Context, s Store) error {
	errToken := s.Remove(ctx, domain.KeyAuthToken)
	errOwner := s.Remove(ctx, domain.KeyAuthOwner)
	if err := errors.Join(errToken, errOwner); err != nil {
		return domain.ErrStorage.WithDetails("remove " + domain.KeyAuthToken).WithCause(err)
	}
	return nil
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return fmt.Sprintf("%s%s", prefix, key)
}
