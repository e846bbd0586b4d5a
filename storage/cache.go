package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"todosync/domain"
)

// Cache wraps a Store with a Redis-backed read cache for task listings. Every
// task write for a user evicts that user's cached listing. Redis failures fall
// back to the base store without surfacing.
type Cache struct {
	base  *Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper. A nil client yields a pass-through cache.
func NewCache(base *Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func tasksCacheKey(owner string) string {
	return "tasks:" + owner
}

// ListByOwner serves the task list from Redis when present, falling back to
// the base store and populating the cache on a miss.
func (c *Cache) ListByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx, owner); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.store(ctx, owner, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.CreateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.Owner)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id, owner string) error {
	if err := c.base.DeleteTask(ctx, id, owner); err != nil {
		return err
	}
	c.evict(ctx, owner)
	return nil
}

func (c *Cache) UpdateContent(ctx context.Context, id, owner, content string) error {
	if err := c.base.UpdateContent(ctx, id, owner, content); err != nil {
		return err
	}
	c.evict(ctx, owner)
	return nil
}

func (c *Cache) UpdateDone(ctx context.Context, id, owner string, done bool) error {
	if err := c.base.UpdateDone(ctx, id, owner, done); err != nil {
		return err
	}
	c.evict(ctx, owner)
	return nil
}

func (c *Cache) AddUser(ctx context.Context, email, passwordHash string) error {
	return c.base.AddUser(ctx, email, passwordHash)
}

func (c *Cache) PasswordHash(ctx context.Context, email string) (string, error) {
	return c.base.PasswordHash(ctx, email)
}

func (c *Cache) DeleteUser(ctx context.Context, email string) error {
	if err := c.base.DeleteUser(ctx, email); err != nil {
		return err
	}
	c.evict(ctx, email)
	return nil
}

func (c *Cache) load(ctx context.Context, owner string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(owner)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, tasksCacheKey(owner)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(owner)).Err()
		return nil, false
	}
	for i := range tasks {
		tasks[i].Owner = owner
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, owner string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(owner), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, owner string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, tasksCacheKey(owner)).Err()
}
