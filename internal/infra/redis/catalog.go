package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"projectforge-service/internal/domain"
	"projectforge-service/internal/infra/memory"
)

// Catalog caches project JSON in Redis (one string per project plus one for
// the full list) and falls back to a loader on cache miss.
type Catalog struct {
	client *redis.Client
	loader memory.ProjectLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, loader memory.ProjectLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	key := projectKey(projectID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var project domain.Project
		if err := json.Unmarshal(raw, &project); err == nil {
			return project, nil
		}
	}

	result, err, _ := c.sf.Do(projectID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var project domain.Project
			if err := json.Unmarshal(raw, &project); err == nil {
				return project, nil
			}
		}

		project, err := c.loader.LoadProject(ctx, projectID)
		if err != nil {
			return domain.Project{}, err
		}
		c.fill(ctx, key, project)
		return project, nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result.(domain.Project), nil
}

func (c *Catalog) ListProjects(ctx context.Context) ([]domain.Project, error) {
	key := "projects:all"

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var projects []domain.Project
		if err := json.Unmarshal(raw, &projects); err == nil {
			return projects, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		projects, err := c.loader.LoadProjects(ctx)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, key, projects)
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Project), nil
}

// fill writes a cache entry best-effort; a failed cache write never fails
// the read path.
func (c *Catalog) fill(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func projectKey(projectID string) string {
	return fmt.Sprintf("project:%s", projectID)
}
