package domain

import "errors"

var (
	// ErrProjectNotFound indicates the catalog has no project with the given ID.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProgressNotFound is returned before a user has started a project.
	ErrProgressNotFound = errors.New("progress record not found")
	// ErrNoMilestones rejects enrollment into a project with an empty curriculum.
	ErrNoMilestones = errors.New("project has no milestones")
	// ErrMilestoneOutOfRange indicates a milestone index outside the project.
	ErrMilestoneOutOfRange = errors.New("milestone index out of range")
	// ErrScreenshotRequired blocks advancing past a milestone without its screenshot.
	ErrScreenshotRequired = errors.New("screenshot required before advancing")
	// ErrQuizIncomplete rejects a quiz submission with unset answer slots.
	ErrQuizIncomplete = errors.New("all quiz answers must be set")
	// ErrQuizNotReached rejects a quiz submission before the final milestone is done.
	ErrQuizNotReached = errors.New("final milestone not yet reached")
	// ErrQuizAlreadySubmitted rejects a second quiz submission.
	ErrQuizAlreadySubmitted = errors.New("quiz already submitted")
	// ErrQuizRequired blocks finalizing before the quiz has been submitted.
	ErrQuizRequired = errors.New("complete the quiz before finalizing")
	// ErrAlreadyCompleted rejects any mutation of a completed record.
	ErrAlreadyCompleted = errors.New("project already completed")
	// ErrInvalidSubmissionURL rejects a live-deployment URL that is not absolute.
	ErrInvalidSubmissionURL = errors.New("submission url must be an absolute http(s) url")
	// ErrSummaryTooShort rejects an approach summary below the minimum length.
	ErrSummaryTooShort = errors.New("approach summary too short")
	// ErrUnauthenticated is returned when an operation requires an identity.
	ErrUnauthenticated = errors.New("authenticated user required")
	// ErrEmptyMessage rejects chat messages that are blank after trimming.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrMessageNotFound indicates a reply target that does not exist in the channel.
	ErrMessageNotFound = errors.New("message not found")
	// ErrBlobNotFound indicates a screenshot key with no stored bytes.
	ErrBlobNotFound = errors.New("blob not found")
)
