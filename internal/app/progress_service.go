package app

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"projectforge-service/internal/domain"
	"projectforge-service/internal/quiz"
)

// minSummaryLen is the shortest approach summary worth sending to the grader.
const minSummaryLen = 50

// ProgressService contains the enrollment lifecycle use cases. State only
// moves through value copies: a failed persistence call leaves the stored
// record exactly as it was, and the caller retries the whole action.
type ProgressService struct {
	catalog     CatalogRepository
	progress    ProgressStore
	completions CompletionStore
	blobs       BlobStore
	grader      Grader
	now         func() time.Time
}

func NewProgressService(catalog CatalogRepository, progress ProgressStore, completions CompletionStore, blobs BlobStore, grader Grader) *ProgressService {
	return NewProgressServiceWithClock(catalog, progress, completions, blobs, grader, time.Now)
}

// NewProgressServiceWithClock is test-only for deterministic timestamps.
func NewProgressServiceWithClock(catalog CatalogRepository, progress ProgressStore, completions CompletionStore, blobs BlobStore, grader Grader, now func() time.Time) *ProgressService {
	return &ProgressService{
		catalog:     catalog,
		progress:    progress,
		completions: completions,
		blobs:       blobs,
		grader:      grader,
		now:         now,
	}
}

// StatusView pairs a progress record with its derived lifecycle state.
type StatusView struct {
	Record domain.ProgressRecord `json:"record"`
	State  domain.ProgressState  `json:"state"`
}

// Start creates the progress record for a first enrollment. Idempotent: an
// existing record is returned unchanged, never overwritten.
func (s *ProgressService) Start(ctx context.Context, userID, projectID string) (StatusView, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if len(project.Milestones) == 0 {
		return StatusView{}, domain.ErrNoMilestones
	}

	record, ok, err := s.progress.Get(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, fmt.Errorf("read progress: %w", err)
	}
	if ok {
		return StatusView{Record: record, State: deriveState(project, record)}, nil
	}

	record = domain.ProgressRecord{
		UserID:          userID,
		ProjectID:       projectID,
		ActiveMilestone: 0,
		Completed:       false,
		Screenshots:     map[int]string{},
		StartedAt:       s.now(),
	}
	if err := s.progress.Put(ctx, record); err != nil {
		return StatusView{}, fmt.Errorf("create progress: %w", err)
	}
	return StatusView{Record: record, State: domain.StateInProgress}, nil
}

// Status returns the current record and derived state for an enrollment.
func (s *ProgressService) Status(ctx context.Context, userID, projectID string) (StatusView, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	record, ok, err := s.progress.Get(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, fmt.Errorf("read progress: %w", err)
	}
	if !ok {
		return StatusView{State: domain.StateNotStarted}, nil
	}
	return StatusView{Record: record, State: deriveState(project, record)}, nil
}

// UploadScreenshot stores the milestone evidence and records its URL.
// Re-uploading the same index overwrites the prior URL. The blob upload runs
// before the document write, so a failed write can orphan a blob; that leak
// is accepted and the record stays consistent.
func (s *ProgressService) UploadScreenshot(ctx context.Context, userID, projectID string, index int, data []byte, contentType string) (StatusView, error) {
	project, record, err := s.mutableRecord(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if index < 0 || index > project.LastMilestone() {
		return StatusView{}, domain.ErrMilestoneOutOfRange
	}

	key := fmt.Sprintf("screenshots/%s/%s/%d", userID, projectID, index)
	blobURL, err := s.blobs.Upload(ctx, key, data, contentType)
	if err != nil {
		return StatusView{}, fmt.Errorf("upload screenshot: %w", err)
	}

	next := record.Clone()
	if next.Screenshots == nil {
		next.Screenshots = map[int]string{}
	}
	next.Screenshots[index] = blobURL
	if err := s.progress.Put(ctx, next); err != nil {
		return StatusView{}, fmt.Errorf("save screenshot url: %w", err)
	}
	return StatusView{Record: next, State: deriveState(project, next)}, nil
}

// Advance moves to the next milestone, gated on the active milestone's
// screenshot. At the final milestone it does not mutate anything: the
// quiz-pending state is derived, so a page reload before quiz submission
// keeps all milestone and screenshot progress.
func (s *ProgressService) Advance(ctx context.Context, userID, projectID string) (StatusView, error) {
	project, record, err := s.mutableRecord(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if !record.HasScreenshot(record.ActiveMilestone) {
		return StatusView{}, domain.ErrScreenshotRequired
	}
	if record.ActiveMilestone >= project.LastMilestone() {
		return StatusView{Record: record, State: domain.StateQuizPending}, nil
	}

	next := record.Clone()
	next.ActiveMilestone++
	if err := s.progress.Put(ctx, next); err != nil {
		return StatusView{}, fmt.Errorf("advance milestone: %w", err)
	}
	return StatusView{Record: next, State: deriveState(project, next)}, nil
}

// SelectMilestone handles milestone-selector navigation. Jumping to an
// earlier or already-reached index is always allowed and mutates nothing;
// jumping ahead goes through the same screenshot gate as Advance.
func (s *ProgressService) SelectMilestone(ctx context.Context, userID, projectID string, target int) (StatusView, error) {
	project, record, err := s.mutableRecord(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if target < 0 || target > project.LastMilestone() {
		return StatusView{}, domain.ErrMilestoneOutOfRange
	}
	if target <= record.ActiveMilestone {
		return StatusView{Record: record, State: deriveState(project, record)}, nil
	}
	if target != record.ActiveMilestone+1 || !record.HasScreenshot(record.ActiveMilestone) {
		return StatusView{}, domain.ErrScreenshotRequired
	}
	return s.Advance(ctx, userID, projectID)
}

// Questions returns the derived quiz for a project, for first administration
// and for read-only answer review alike.
func (s *ProgressService) Questions(ctx context.Context, userID, projectID string) ([]quiz.Question, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return quiz.Generate(project), nil
}

// SubmitQuiz scores and persists a full answer vector. It does not complete
// the record; the user still has to reach the finalize step.
func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, projectID string, answers []int) (StatusView, error) {
	project, record, err := s.mutableRecord(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if record.Quiz != nil {
		return StatusView{}, domain.ErrQuizAlreadySubmitted
	}
	if !quiz.Complete(answers) {
		return StatusView{}, domain.ErrQuizIncomplete
	}
	if deriveState(project, record) != domain.StateQuizPending {
		return StatusView{}, domain.ErrQuizNotReached
	}

	questions := quiz.Generate(project)
	next := record.Clone()
	next.Quiz = &domain.QuizResult{
		Answers: append([]int(nil), answers...),
		Score:   quiz.Score(questions, answers),
	}
	if err := s.progress.Put(ctx, next); err != nil {
		return StatusView{}, fmt.Errorf("save quiz: %w", err)
	}
	return StatusView{Record: next, State: domain.StateQuizPending}, nil
}

// Finalize closes out the enrollment, optionally recording a live-deployment
// URL. The progress write is authoritative; the portfolio index append is
// best-effort and only logged on failure.
func (s *ProgressService) Finalize(ctx context.Context, userID, projectID, optionalURL string) (StatusView, error) {
	project, record, err := s.mutableRecord(ctx, userID, projectID)
	if err != nil {
		return StatusView{}, err
	}
	if record.Quiz == nil {
		return StatusView{}, domain.ErrQuizRequired
	}
	submission := strings.TrimSpace(optionalURL)
	if submission != "" && !validSubmissionURL(submission) {
		return StatusView{}, domain.ErrInvalidSubmissionURL
	}

	completedAt := s.now()
	next := record.Clone()
	next.Completed = true
	next.SubmissionURL = submission
	next.CompletedAt = &completedAt
	if err := s.progress.Put(ctx, next); err != nil {
		return StatusView{}, fmt.Errorf("finalize progress: %w", err)
	}

	completion := domain.CompletionRecord{
		UserID:      userID,
		ProjectID:   projectID,
		Title:       project.Title,
		Source:      domain.CompletionSourceMilestones,
		Score:       next.Quiz.Score,
		CompletedAt: completedAt,
	}
	if err := s.completions.Append(ctx, completion); err != nil {
		log.Printf("portfolio index append failed for %s/%s: %v", userID, projectID, err)
	}
	return StatusView{Record: next, State: domain.StateCompleted}, nil
}

// GradeApproach runs the optional free-text assessment path. A Correct
// verdict records a portfolio completion; Incorrect writes nothing.
func (s *ProgressService) GradeApproach(ctx context.Context, userID, projectID, summary string) (domain.Verdict, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(summary)) < minSummaryLen {
		return "", domain.ErrSummaryTooShort
	}

	verdict, err := s.grader.Grade(ctx, summary, project.Approach)
	if err != nil {
		return "", fmt.Errorf("grade approach: %w", err)
	}
	if verdict != domain.VerdictCorrect {
		return verdict, nil
	}

	completion := domain.CompletionRecord{
		UserID:      userID,
		ProjectID:   projectID,
		Title:       project.Title,
		Source:      domain.CompletionSourceApproach,
		CompletedAt: s.now(),
	}
	if err := s.completions.Append(ctx, completion); err != nil {
		return verdict, fmt.Errorf("record completion: %w", err)
	}
	return verdict, nil
}

// mutableRecord loads the project and record for a mutation, enforcing the
// shared guards: identity present, record present, record not completed.
func (s *ProgressService) mutableRecord(ctx context.Context, userID, projectID string) (domain.Project, domain.ProgressRecord, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return domain.Project{}, domain.ProgressRecord{}, err
	}
	record, ok, err := s.progress.Get(ctx, userID, projectID)
	if err != nil {
		return domain.Project{}, domain.ProgressRecord{}, fmt.Errorf("read progress: %w", err)
	}
	if !ok {
		return domain.Project{}, domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	if record.Completed {
		return domain.Project{}, domain.ProgressRecord{}, domain.ErrAlreadyCompleted
	}
	return project, record, nil
}

func (s *ProgressService) requireProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	if userID == "" {
		return domain.Project{}, domain.ErrUnauthenticated
	}
	project, err := s.catalog.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// deriveState maps a record onto the lifecycle. Quiz-pending means the final
// milestone is active with its screenshot in place.
func deriveState(project domain.Project, record domain.ProgressRecord) domain.ProgressState {
	if record.Completed {
		return domain.StateCompleted
	}
	if record.ActiveMilestone >= project.LastMilestone() && record.HasScreenshot(record.ActiveMilestone) {
		return domain.StateQuizPending
	}
	return domain.StateInProgress
}

// validSubmissionURL accepts only well-formed absolute http(s) URLs.
func validSubmissionURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
