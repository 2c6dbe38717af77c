package app

import (
	"context"
	"fmt"
	"sort"

	"projectforge-service/internal/domain"
)

// PortfolioService reads the derived completion index for the public
// portfolio page.
type PortfolioService struct {
	completions CompletionStore
}

func NewPortfolioService(completions CompletionStore) *PortfolioService {
	return &PortfolioService{completions: completions}
}

// ListCompletions returns a user's completions ordered by completion time,
// one entry per project. With both assessment paths recorded, the earliest
// completion per project wins.
func (s *PortfolioService) ListCompletions(ctx context.Context, userID string) ([]domain.CompletionRecord, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	records, err := s.completions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.Before(records[j].CompletedAt)
	})

	seen := make(map[string]struct{}, len(records))
	out := make([]domain.CompletionRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ProjectID]; ok {
			continue
		}
		seen[r.ProjectID] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
