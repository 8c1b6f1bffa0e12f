package session

import (
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"github.com/kiyor/scormplayer/pkg/core"
)

const keyPrefix = "scormplayer:sess:"

// RedisStorage keeps fiber sessions in Redis through a redigo pool.
type RedisStorage struct {
	Pool *redis.Pool
}

// NewRedisStorage dials host ("host" or "host:port") lazily; the initial
// PING only logs so the server still starts while Redis comes up.
func NewRedisStorage(host string) *RedisStorage {
	redisAddr := host
	if !strings.Contains(redisAddr, ":") {
		redisAddr += ":6379"
	}
	r := &RedisStorage{
		Pool: &redis.Pool{
			MaxIdle:     6,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", redisAddr)
			},
			TestOnBorrow: func(c redis.Conn, t time.Time) error {
				_, err := c.Do("PING")
				return err
			},
		},
	}
	conn := r.Pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		core.Log.Warn("redis ping failed", zap.String("addr", redisAddr), zap.Error(err))
	} else {
		core.Log.Info("connected to redis", zap.String("addr", redisAddr))
	}
	return r
}

// Get returns nil without error for a missing key.
func (r *RedisStorage) Get(key string) ([]byte, error) {
	conn := r.Pool.Get()
	defer conn.Close()
	b, err := redis.Bytes(conn.Do("GET", keyPrefix+key))
	if err == redis.ErrNil {
		return nil, nil
	}
	return b, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if len(key) == 0 || len(val) == 0 {
		return nil
	}
	conn := r.Pool.Get()
	defer conn.Close()
	if exp <= 0 {
		_, err := conn.Do("SET", keyPrefix+key, val)
		return err
	}
	_, err := conn.Do("SET", keyPrefix+key, val, "PX", exp.Milliseconds())
	return err
}

func (r *RedisStorage) Delete(key string) error {
	conn := r.Pool.Get()
	defer conn.Close()
	_, err := conn.Do("DEL", keyPrefix+key)
	return err
}

// Reset removes every session key.
func (r *RedisStorage) Reset() error {
	conn := r.Pool.Get()
	defer conn.Close()
	keys, err := redis.Strings(conn.Do("KEYS", keyPrefix+"*"))
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := conn.Do("DEL", k); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.Pool.Close()
}
