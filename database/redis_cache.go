package database

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

const (
	presenceKeyPattern = "PRESENCE_%s"
	presenceSetKey     = "PRESENCE_ONLINE"
	presenceTTL        = time.Hour * 24
)

// RedisPresenceCache 对外可见的在线登记表，供多进程部署时
// 其它服务查询在线状态用。hub 本身仍然是单进程的
type RedisPresenceCache struct {
	client *redis.Client
}

// NewRedisPresenceCache NewRedisPresenceCache
func NewRedisPresenceCache(client *redis.Client) *RedisPresenceCache {
	return &RedisPresenceCache{client: client}
}

// AddPresence AddPresence
func (c *RedisPresenceCache) AddPresence(handle, peerID string) error {
	key := fmt.Sprintf(presenceKeyPattern, handle)
	if _, err := c.client.Set(key, peerID, presenceTTL).Result(); err != nil {
		return err
	}
	return c.client.SAdd(presenceSetKey, handle).Err()
}

// DelPresence DelPresence
func (c *RedisPresenceCache) DelPresence(handle string) error {
	key := fmt.Sprintf(presenceKeyPattern, handle)
	if err := c.client.Del(key).Err(); err != nil {
		return err
	}
	return c.client.SRem(presenceSetKey, handle).Err()
}

// GetPresence GetPresence
func (c *RedisPresenceCache) GetPresence(handle string) (string, error) {
	key := fmt.Sprintf(presenceKeyPattern, handle)
	peerID, err := c.client.Get(key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return peerID, nil
}

// AllPresence AllPresence
func (c *RedisPresenceCache) AllPresence() ([]string, error) {
	return c.client.SMembers(presenceSetKey).Result()
}
