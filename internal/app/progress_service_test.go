package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"projectforge-service/internal/app"
	"projectforge-service/internal/domain"
	"projectforge-service/internal/infra/memory"
	"projectforge-service/internal/quiz"
)

type stubGrader struct {
	verdict domain.Verdict
	err     error
}

func (g stubGrader) Grade(_ context.Context, _, _ string) (domain.Verdict, error) {
	return g.verdict, g.err
}

type fixture struct {
	service     *app.ProgressService
	completions *memory.CompletionStore
}

func newFixture(t *testing.T, grader app.Grader, milestones int) fixture {
	t.Helper()
	ms := make([]domain.Milestone, milestones)
	for i := range ms {
		ms[i] = domain.Milestone{ID: string(rune('a' + i)), Title: "Step " + string(rune('A'+i))}
	}
	project := domain.Project{
		ID:               "p1",
		Title:            "Weather Dashboard",
		Domain:           "Frontend",
		ProblemStatement: "Forecasts are spread across many tabs.",
		Approach:         "Aggregate one API into a single dashboard view.",
		TechStack:        []domain.TechItem{{Name: "React"}, {Name: "Vite"}},
		Milestones:       ms,
		SkillsGained:     []string{"API integration"},
	}
	catalog := memory.NewCatalog(memory.NewStaticProjectLoader([]domain.Project{project}), time.Minute)
	completions := memory.NewCompletionStore()
	service := app.NewProgressServiceWithClock(
		catalog,
		memory.NewProgressStore(),
		completions,
		memory.NewBlobStore("http://localhost:8080"),
		grader,
		func() time.Time { return time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC) },
	)
	return fixture{service: service, completions: completions}
}

func correctAnswers(p []quiz.Question) []int {
	answers := make([]int, len(p))
	for i, q := range p {
		answers[i] = q.CorrectOption
	}
	return answers
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 3)

	first, err := f.service.Start(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Record.ActiveMilestone != 0 || first.Record.Completed {
		t.Fatalf("unexpected fresh record: %+v", first.Record)
	}

	// Make progress, then re-enter: existing progress must survive.
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := f.service.Advance(ctx, "u1", "p1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	again, err := f.service.Start(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("re-start: %v", err)
	}
	if again.Record.ActiveMilestone != 1 {
		t.Fatalf("re-start overwrote progress: %+v", again.Record)
	}
}

func TestStartRequiresIdentity(t *testing.T) {
	f := newFixture(t, stubGrader{}, 2)
	if _, err := f.service.Start(context.Background(), "", "p1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestAdvanceScreenshotGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 3)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// No screenshot yet: advance must fail without mutating.
	if _, err := f.service.Advance(ctx, "u1", "p1"); !errors.Is(err, domain.ErrScreenshotRequired) {
		t.Fatalf("expected screenshot guard, got %v", err)
	}

	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	view, err := f.service.Advance(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if view.Record.ActiveMilestone != 1 {
		t.Fatalf("expected index 1, got %d", view.Record.ActiveMilestone)
	}

	// Second advance without milestone 1's screenshot fails, index stays 1.
	if _, err := f.service.Advance(ctx, "u1", "p1"); !errors.Is(err, domain.ErrScreenshotRequired) {
		t.Fatalf("expected screenshot guard, got %v", err)
	}
	status, err := f.service.Status(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Record.ActiveMilestone != 1 {
		t.Fatalf("failed advance mutated the record: %+v", status.Record)
	}
}

func TestQuizPendingSurvivesReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 1)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	view, err := f.service.Advance(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if view.State != domain.StateQuizPending {
		t.Fatalf("expected quiz pending, got %s", view.State)
	}

	// A fresh read re-derives quiz pending: milestone progress is untouched.
	status, err := f.service.Status(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != domain.StateQuizPending || status.Record.ActiveMilestone != 0 {
		t.Fatalf("quiz pending not re-derived: %+v", status)
	}
}

func TestSelectMilestone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 4)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := f.service.Advance(ctx, "u1", "p1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Back to an earlier milestone: always allowed, no mutation.
	view, err := f.service.SelectMilestone(ctx, "u1", "p1", 0)
	if err != nil {
		t.Fatalf("select earlier: %v", err)
	}
	if view.Record.ActiveMilestone != 1 {
		t.Fatalf("navigation mutated the record: %+v", view.Record)
	}

	// Two ahead: gated.
	if _, err := f.service.SelectMilestone(ctx, "u1", "p1", 3); !errors.Is(err, domain.ErrScreenshotRequired) {
		t.Fatalf("expected screenshot guard, got %v", err)
	}

	// One ahead with screenshot: behaves like advance.
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 1, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	view, err = f.service.SelectMilestone(ctx, "u1", "p1", 2)
	if err != nil {
		t.Fatalf("select next: %v", err)
	}
	if view.Record.ActiveMilestone != 2 {
		t.Fatalf("expected index 2, got %d", view.Record.ActiveMilestone)
	}
}

func TestUploadScreenshotOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 2)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	first, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("v1"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	second, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("v2"), "image/png")
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if len(second.Record.Screenshots) != 1 {
		t.Fatalf("expected single screenshot entry, got %v", second.Record.Screenshots)
	}
	if first.Record.Screenshots[0] != second.Record.Screenshots[0] {
		// Same key, URL may be identical; either way only index 0 exists.
		t.Logf("url changed from %s to %s", first.Record.Screenshots[0], second.Record.Screenshots[0])
	}

	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 5, []byte("v3"), "image/png"); !errors.Is(err, domain.ErrMilestoneOutOfRange) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestSubmitQuizGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 1)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	questions, err := f.service.Questions(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	answers := correctAnswers(questions)

	// Final milestone not reached (no screenshot): quiz rejected.
	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", answers); !errors.Is(err, domain.ErrQuizNotReached) {
		t.Fatalf("expected quiz-not-reached, got %v", err)
	}

	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Partial submissions never persist.
	partial := append([]int(nil), answers...)
	partial[2] = quiz.Unanswered
	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", partial); !errors.Is(err, domain.ErrQuizIncomplete) {
		t.Fatalf("expected incomplete error, got %v", err)
	}

	view, err := f.service.SubmitQuiz(ctx, "u1", "p1", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Record.Quiz == nil || view.Record.Quiz.Score != 100 {
		t.Fatalf("expected score 100, got %+v", view.Record.Quiz)
	}
	if view.Record.Completed {
		t.Fatalf("quiz submission must not complete the record")
	}

	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", answers); !errors.Is(err, domain.ErrQuizAlreadySubmitted) {
		t.Fatalf("expected already-submitted, got %v", err)
	}
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 1)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Quiz not yet submitted.
	if _, err := f.service.Finalize(ctx, "u1", "p1", ""); !errors.Is(err, domain.ErrQuizRequired) {
		t.Fatalf("expected quiz-required, got %v", err)
	}

	questions, _ := f.service.Questions(ctx, "u1", "p1")
	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", correctAnswers(questions)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.service.Finalize(ctx, "u1", "p1", "not-a-url"); !errors.Is(err, domain.ErrInvalidSubmissionURL) {
		t.Fatalf("expected url validation error, got %v", err)
	}

	view, err := f.service.Finalize(ctx, "u1", "p1", "https://example.com")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !view.Record.Completed || view.Record.SubmissionURL != "https://example.com" || view.Record.CompletedAt == nil {
		t.Fatalf("unexpected completed record: %+v", view.Record)
	}

	completions, err := f.completions.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(completions) != 1 || completions[0].Source != domain.CompletionSourceMilestones || completions[0].Score != 100 {
		t.Fatalf("unexpected completions: %+v", completions)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 1)
	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("png"), "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	questions, _ := f.service.Questions(ctx, "u1", "p1")
	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", correctAnswers(questions)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := f.service.Finalize(ctx, "u1", "p1", "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	mutations := map[string]func() error{
		"advance": func() error { _, err := f.service.Advance(ctx, "u1", "p1"); return err },
		"upload": func() error {
			_, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("x"), "image/png")
			return err
		},
		"quiz":     func() error { _, err := f.service.SubmitQuiz(ctx, "u1", "p1", []int{0, 0, 0, 0, 0}); return err },
		"finalize": func() error { _, err := f.service.Finalize(ctx, "u1", "p1", ""); return err },
		"select":   func() error { _, err := f.service.SelectMilestone(ctx, "u1", "p1", 0); return err },
	}
	for name, mutate := range mutations {
		if err := mutate(); !errors.Is(err, domain.ErrAlreadyCompleted) {
			t.Fatalf("%s: expected terminal rejection, got %v", name, err)
		}
	}

	status, err := f.service.Status(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Record.ActiveMilestone != done.Record.ActiveMilestone ||
		status.Record.SubmissionURL != done.Record.SubmissionURL ||
		status.Record.Quiz.Score != done.Record.Quiz.Score {
		t.Fatalf("terminal record changed: %+v vs %+v", status.Record, done.Record)
	}
}

func TestEndToEndTwoMilestones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubGrader{}, 2)

	if _, err := f.service.Start(ctx, "u1", "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 0, []byte("one"), "image/png"); err != nil {
		t.Fatalf("upload 0: %v", err)
	}
	view, err := f.service.Advance(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if view.Record.ActiveMilestone != 1 {
		t.Fatalf("expected index 1, got %d", view.Record.ActiveMilestone)
	}
	if _, err := f.service.UploadScreenshot(ctx, "u1", "p1", 1, []byte("two"), "image/png"); err != nil {
		t.Fatalf("upload 1: %v", err)
	}
	view, err = f.service.Advance(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("advance to quiz: %v", err)
	}
	if view.State != domain.StateQuizPending {
		t.Fatalf("expected quiz pending, got %s", view.State)
	}

	questions, _ := f.service.Questions(ctx, "u1", "p1")
	if _, err := f.service.SubmitQuiz(ctx, "u1", "p1", correctAnswers(questions)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	final, err := f.service.Finalize(ctx, "u1", "p1", "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !final.Record.Completed || final.Record.SubmissionURL != "" || final.Record.Quiz.Score != 100 {
		t.Fatalf("unexpected final record: %+v", final.Record)
	}
}

func TestGradeApproach(t *testing.T) {
	ctx := context.Background()
	summary := strings.Repeat("I aggregate the forecast API into one view. ", 3)

	t.Run("correct verdict records completion", func(t *testing.T) {
		f := newFixture(t, stubGrader{verdict: domain.VerdictCorrect}, 2)
		verdict, err := f.service.GradeApproach(ctx, "u1", "p1", summary)
		if err != nil {
			t.Fatalf("grade: %v", err)
		}
		if verdict != domain.VerdictCorrect {
			t.Fatalf("expected Correct, got %s", verdict)
		}
		completions, _ := f.completions.ListByUser(ctx, "u1")
		if len(completions) != 1 || completions[0].Source != domain.CompletionSourceApproach {
			t.Fatalf("unexpected completions: %+v", completions)
		}
	})

	t.Run("incorrect verdict writes nothing", func(t *testing.T) {
		f := newFixture(t, stubGrader{verdict: domain.VerdictIncorrect}, 2)
		verdict, err := f.service.GradeApproach(ctx, "u1", "p1", summary)
		if err != nil {
			t.Fatalf("grade: %v", err)
		}
		if verdict != domain.VerdictIncorrect {
			t.Fatalf("expected Incorrect, got %s", verdict)
		}
		completions, _ := f.completions.ListByUser(ctx, "u1")
		if len(completions) != 0 {
			t.Fatalf("expected no completions, got %+v", completions)
		}
	})

	t.Run("short summary rejected before grading", func(t *testing.T) {
		f := newFixture(t, stubGrader{verdict: domain.VerdictCorrect}, 2)
		if _, err := f.service.GradeApproach(ctx, "u1", "p1", "too short"); !errors.Is(err, domain.ErrSummaryTooShort) {
			t.Fatalf("expected summary-too-short, got %v", err)
		}
	})

	t.Run("upstream failure surfaces", func(t *testing.T) {
		f := newFixture(t, stubGrader{err: errors.New("boom")}, 2)
		if _, err := f.service.GradeApproach(ctx, "u1", "p1", summary); err == nil {
			t.Fatalf("expected wrapped upstream error")
		}
		completions, _ := f.completions.ListByUser(ctx, "u1")
		if len(completions) != 0 {
			t.Fatalf("expected no completions after failure, got %+v", completions)
		}
	})
}
