package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"projectforge-service/internal/domain"
)

// CatalogLoader loads project JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadProject(ctx context.Context, projectID string) (domain.Project, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM projects WHERE id=$1`, projectID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("load project: %w", err)
	}
	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return domain.Project{}, fmt.Errorf("unmarshal project: %w", err)
	}
	return project, nil
}

func (l *CatalogLoader) LoadProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		var project domain.Project
		if err := json.Unmarshal(raw, &project); err != nil {
			return nil, fmt.Errorf("unmarshal project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
