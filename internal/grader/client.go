// Package grader calls the hosted model that judges a student's free-text
// approach summary against the catalog solution.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"projectforge-service/internal/domain"
)

// Client posts {studentSummary, originalSolution} and reads back a verdict
// token. Single attempt, no retry: upstream failures surface to the caller.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type gradeRequest struct {
	StudentSummary   string `json:"studentSummary"`
	OriginalSolution string `json:"originalSolution"`
}

type gradeResponse struct {
	Verdict string `json:"verdict"`
}

// Grade submits both texts and returns the normalized verdict. Missing
// either field is rejected before any network call.
func (c *Client) Grade(ctx context.Context, studentSummary, originalSolution string) (domain.Verdict, error) {
	if studentSummary == "" || originalSolution == "" {
		return "", fmt.Errorf("grader: both summary and solution are required")
	}

	body, err := json.Marshal(gradeRequest{
		StudentSummary:   studentSummary,
		OriginalSolution: originalSolution,
	})
	if err != nil {
		return "", fmt.Errorf("grader: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("grader: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("grader: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("grader: endpoint returned status %d", resp.StatusCode)
	}

	var parsed gradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("grader: decode response: %w", err)
	}
	return Normalize(parsed.Verdict), nil
}

// Normalize maps raw model output onto the verdict enum. This is a strict
// allow-list: only the exact case-insensitive token "correct" passes,
// everything else is Incorrect.
func Normalize(raw string) domain.Verdict {
	if strings.EqualFold(strings.TrimSpace(raw), "correct") {
		return domain.VerdictCorrect
	}
	return domain.VerdictIncorrect
}
