package domain

import (
	"time"
	"unicode/utf8"
)

// Difficulty classifies a project for the catalog browser.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// ContentKind tags a milestone content block.
type ContentKind string

const (
	ContentParagraph ContentKind = "paragraph"
	ContentSubheader ContentKind = "subheader"
	ContentCode      ContentKind = "code"
	ContentImage     ContentKind = "image"
	ContentCallout   ContentKind = "callout"
)

// ContentBlock is one typed block of milestone body content.
type ContentBlock struct {
	Kind ContentKind `json:"kind"`
	Text string      `json:"text"`
}

// TechItem names one entry of a project's tech stack, in catalog order.
type TechItem struct {
	Name string `json:"name"`
}

// Milestone is one ordered step of a project's curriculum.
type Milestone struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Goal           string         `json:"goal"`
	Content        []ContentBlock `json:"content,omitempty"`
	EstimatedHours int            `json:"estimatedHours,omitempty"`
}

// Project is an immutable catalog record. Nothing in this service mutates it.
type Project struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Domain           string      `json:"domain"`
	Difficulty       Difficulty  `json:"difficulty"`
	ProblemStatement string      `json:"problemStatement"`
	Approach         string      `json:"approach"`
	TechStack        []TechItem  `json:"techStack,omitempty"`
	Milestones       []Milestone `json:"milestones"`
	SkillsGained     []string    `json:"skillsGained,omitempty"`
	ResumeText       string      `json:"resumeText,omitempty"`
}

// LastMilestone returns the highest valid milestone index.
func (p Project) LastMilestone() int {
	return len(p.Milestones) - 1
}

// QuizResult holds a submitted answer vector and its score. Set at most once
// per progress record.
type QuizResult struct {
	Answers []int `json:"answers"`
	Score   int   `json:"score"`
}

// ProgressState is the derived lifecycle state of an enrollment. QuizPending
// is never persisted; it is re-derived from milestone position and
// screenshots so a reload before quiz submission loses nothing.
type ProgressState string

const (
	StateNotStarted  ProgressState = "not_started"
	StateInProgress  ProgressState = "in_progress"
	StateQuizPending ProgressState = "quiz_pending"
	StateCompleted   ProgressState = "completed"
)

// ProgressRecord is the single mutable document tracking one user's journey
// through one project. Identity is the (UserID, ProjectID) pair.
type ProgressRecord struct {
	UserID          string         `json:"userId"`
	ProjectID       string         `json:"projectId"`
	ActiveMilestone int            `json:"activeMilestoneIndex"`
	Completed       bool           `json:"isCompleted"`
	Screenshots     map[int]string `json:"screenshots,omitempty"`
	Quiz            *QuizResult    `json:"mcq,omitempty"`
	SubmissionURL   string         `json:"submissionUrl,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
}

// Key returns the composite document key for the record.
func (r ProgressRecord) Key() string {
	return r.UserID + "_" + r.ProjectID
}

// HasScreenshot reports whether a screenshot URL is recorded for the index.
func (r ProgressRecord) HasScreenshot(index int) bool {
	_, ok := r.Screenshots[index]
	return ok
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (r ProgressRecord) Clone() ProgressRecord {
	out := r
	if r.Screenshots != nil {
		out.Screenshots = make(map[int]string, len(r.Screenshots))
		for k, v := range r.Screenshots {
			out.Screenshots[k] = v
		}
	}
	if r.Quiz != nil {
		quiz := QuizResult{Score: r.Quiz.Score}
		quiz.Answers = append([]int(nil), r.Quiz.Answers...)
		out.Quiz = &quiz
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// CompletionSource records which assessment path produced a completion.
type CompletionSource string

const (
	// CompletionSourceMilestones marks the milestone + quiz + finalize path.
	CompletionSourceMilestones CompletionSource = "milestones"
	// CompletionSourceApproach marks the free-text approach grading path.
	CompletionSourceApproach CompletionSource = "approach"
)

// CompletionRecord is the derived portfolio index entry. It only needs
// eventual agreement with the progress record it mirrors.
type CompletionRecord struct {
	UserID      string           `json:"userId"`
	ProjectID   string           `json:"projectId"`
	Title       string           `json:"title"`
	Source      CompletionSource `json:"source"`
	Score       int              `json:"score"`
	CompletedAt time.Time        `json:"completedAt"`
}

// Verdict is the binary outcome of grading a free-text approach summary.
type Verdict string

const (
	VerdictCorrect   Verdict = "Correct"
	VerdictIncorrect Verdict = "Incorrect"
)

// ReplySnapshot is a point-in-time copy of the message being replied to.
// It is deliberately not a live reference: later edits or deletes of the
// original never propagate.
type ReplySnapshot struct {
	MessageID string `json:"id"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
}

// replyExcerptLimit caps the quoted text carried in a reply snapshot.
const replyExcerptLimit = 50

// NewReplySnapshot captures the reply target, truncating the quoted text to
// 50 runes with a trailing ellipsis.
func NewReplySnapshot(m ChatMessage) ReplySnapshot {
	text := m.Text
	if utf8.RuneCountInString(text) > replyExcerptLimit {
		runes := []rune(text)
		text = string(runes[:replyExcerptLimit]) + "..."
	}
	return ReplySnapshot{MessageID: m.ID, UserName: m.UserName, Text: text}
}

// ChatMessage is immutable once created. CreatedAt is always server-assigned;
// clients must not supply their own clock.
type ChatMessage struct {
	ID           string         `json:"id"`
	Channel      string         `json:"channel"`
	UserID       string         `json:"userId"`
	UserName     string         `json:"userName"`
	UserPhotoURL string         `json:"userPhotoURL,omitempty"`
	Text         string         `json:"text"`
	CreatedAt    time.Time      `json:"createdAt"`
	ReplyTo      *ReplySnapshot `json:"replyTo,omitempty"`
}
