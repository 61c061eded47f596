package transport

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gregjones/httpcache"
	httpmemcache "github.com/gregjones/httpcache/memcache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisCache stores cached HTTP responses in redis. It implements
// httpcache.Cache, whose methods carry no context, so every call is bounded
// by a short timeout and failures read as cache misses.
type RedisCache struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

var _ httpcache.Cache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{Client: client, Prefix: "courier:httpcache:"}
}

func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	b, err := c.Client.Get(ctx, c.Prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(key string, responseBytes []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	c.Client.Set(ctx, c.Prefix+key, responseBytes, c.TTL)
}

func (c *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	c.Client.Del(ctx, c.Prefix+key)
}

// OpenCache builds a cache from a location string:
//
//	"" or "none"                   no caching
//	"memory"                       in-process map
//	"memcache://host:port[,host]"  memcached servers
//	"redis://..."                  redis, in go-redis URL syntax
func OpenCache(location string) (httpcache.Cache, error) {
	switch location {
	case "", "none":
		return nil, nil
	case "memory":
		return httpcache.NewMemoryCache(), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid cache location %q", location)
	}
	switch u.Scheme {
	case "memcache":
		servers := strings.Split(u.Host, ",")
		if len(servers) == 0 || servers[0] == "" {
			return nil, errors.Errorf("No memcache servers in %q", location)
		}
		return httpmemcache.NewWithClient(memcache.New(servers...)), nil
	case "redis", "rediss":
		opt, err := redis.ParseURL(location)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid redis location %q", location)
		}
		return NewRedisCache(redis.NewClient(opt)), nil
	}
	return nil, errors.Errorf("Unsupported cache scheme %q", u.Scheme)
}
