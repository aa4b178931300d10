package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identikit/authbridge/protocol"
)

const keyPrefix = "authbridge:profile:"

// Store caches authenticated identity profiles in Redis so host
// applications can greet a returning user before the next ceremony
// completes. The bridge core never touches it.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStore connects to the given Redis address and returns a Store.
// Profiles expire after ttl; zero means no expiry.
func NewStore(addr string, ttl time.Duration) (*Store, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("profile: redis ping: %w", err)
	}
	return &Store{client: c, ttl: ttl}, nil
}

// parseRedisURL accepts a plain host:port or a redis://, rediss:// URL.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("profile: invalid redis URL scheme: %s", u.Scheme)
	}
	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	if u.Path != "" && u.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("profile: invalid db: %v", err)
		}
		opts.DB = db
	}
	return opts, nil
}

// Save stores the identity under its chain address.
func (s *Store) Save(ctx context.Context, id protocol.Identity) error {
	if id.Address == "" {
		return errors.New("profile: identity address required")
	}
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+id.Address, b, s.ttl).Err()
}

// Get returns the cached identity for an address, reporting whether it
// was present.
func (s *Store) Get(ctx context.Context, address string) (protocol.Identity, bool, error) {
	b, err := s.client.Get(ctx, keyPrefix+address).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return protocol.Identity{}, false, nil
		}
		return protocol.Identity{}, false, err
	}
	var id protocol.Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return protocol.Identity{}, false, err
	}
	return id, true, nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
