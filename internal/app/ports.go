package app

import (
	"context"

	"projectforge-service/internal/domain"
)

// CatalogRepository loads immutable project records (from cache/backing store).
type CatalogRepository interface {
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// ProgressStore abstracts the per-enrollment progress document (in-memory,
// Redis, etc). Get distinguishes an absent record from a present one so
// callers branch explicitly instead of overwriting blindly.
type ProgressStore interface {
	Get(ctx context.Context, userID, projectID string) (domain.ProgressRecord, bool, error)
	Put(ctx context.Context, record domain.ProgressRecord) error
}

// CompletionStore is the derived portfolio index. Append is idempotent per
// (user, project, source); the index only needs eventual agreement with the
// progress documents it mirrors.
type CompletionStore interface {
	Append(ctx context.Context, record domain.CompletionRecord) error
	ListByUser(ctx context.Context, userID string) ([]domain.CompletionRecord, error)
}

// BlobStore holds screenshot bytes. Upload returns a public URL for the key.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Grader is the hosted model grading a free-text approach summary against
// the catalog solution.
type Grader interface {
	Grade(ctx context.Context, studentSummary, originalSolution string) (domain.Verdict, error)
}

// MessageStore is the append-only chat log for all channels. List returns
// the full message set for one channel ordered by CreatedAt ascending, ties
// kept in arrival order.
type MessageStore interface {
	Append(ctx context.Context, message domain.ChatMessage) error
	List(ctx context.Context, channel string) ([]domain.ChatMessage, error)
}
