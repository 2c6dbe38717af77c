package memory

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"projectforge-service/internal/domain"
)

// ProjectLoader fetches catalog content from a backing store (static file,
// Postgres, etc).
type ProjectLoader interface {
	LoadProject(ctx context.Context, projectID string) (domain.Project, error)
	LoadProjects(ctx context.Context) ([]domain.Project, error)
}

// Catalog caches project records with TTL to avoid repeated backing-store
// hits. The catalog is read-only, so cached copies never go stale in a way
// that matters beyond the TTL window.
type Catalog struct {
	loader ProjectLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu       sync.RWMutex
	projects map[string]cachedProject
	list     cachedList
}

type cachedProject struct {
	project   domain.Project
	expiresAt time.Time
}

type cachedList struct {
	projects  []domain.Project
	expiresAt time.Time
}

func NewCatalog(loader ProjectLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader:   loader,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		projects: make(map[string]cachedProject),
	}
}

func (c *Catalog) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.projects[projectID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.project, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(projectID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.projects[projectID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.project, nil
		}
		c.mu.RUnlock()

		project, err := c.loader.LoadProject(ctx, projectID)
		if err != nil {
			return domain.Project{}, err
		}

		c.mu.Lock()
		c.projects[projectID] = cachedProject{
			project:   project,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return project, nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return result.(domain.Project), nil
}

func (c *Catalog) ListProjects(ctx context.Context) ([]domain.Project, error) {
	now := c.clock()

	c.mu.RLock()
	if c.list.projects != nil && c.list.expiresAt.After(now) {
		projects := c.list.projects
		c.mu.RUnlock()
		return projects, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("__list__", func() (interface{}, error) {
		projects, err := c.loader.LoadProjects(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.list = cachedList{projects: projects, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Project), nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticProjectLoader serves projects from an in-memory slice (useful for
// tests/demos and for the static-JSON deployment mode).
type StaticProjectLoader struct {
	projects []domain.Project
}

func NewStaticProjectLoader(projects []domain.Project) *StaticProjectLoader {
	return &StaticProjectLoader{projects: projects}
}

// LoadProjectsFile reads the static project list from a JSON file.
func LoadProjectsFile(path string) (*StaticProjectLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var projects []domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	return NewStaticProjectLoader(projects), nil
}

func (l *StaticProjectLoader) LoadProject(_ context.Context, projectID string) (domain.Project, error) {
	for _, p := range l.projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

func (l *StaticProjectLoader) LoadProjects(_ context.Context) ([]domain.Project, error) {
	return append([]domain.Project(nil), l.projects...), nil
}
