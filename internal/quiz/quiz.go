// Package quiz derives the end-of-project multiple-choice quiz from a
// catalog record. Generation is deterministic and referentially transparent:
// the same project always yields the same questions, which is what makes a
// read-only answer review possible long after submission.
package quiz

import (
	"fmt"
	"math"

	"projectforge-service/internal/domain"
)

const (
	// QuestionCount is the fixed quiz length.
	QuestionCount = 5
	// OptionCount is the fixed number of options per question.
	OptionCount = 4
	// Unanswered marks an answer slot the user has not filled in.
	Unanswered = -1
)

// Question is one derived multiple-choice question.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOptionIndex"`
}

// fillers pad option lists whose source field has fewer than four entries.
// Appended after the real entries, so the correct option keeps its position.
var fillers = []string{"None of the above", "Not used in this project", "Not applicable"}

// Generate derives exactly QuestionCount questions from the project, applying
// the derivation rules in a fixed priority order. Each rule contributes at
// most one question; placeholders pad the tail.
//
// The correct option sits at index 1 for the first question and index 0 for
// every other, a deliberate authoring shortcut preserved for compatibility
// with previously recorded answer vectors and scores.
func Generate(p domain.Project) []Question {
	questions := make([]Question, 0, QuestionCount)

	questions = append(questions, Question{
		Text:          fmt.Sprintf("What is the main purpose of %q?", p.Title),
		Options:       padOptions([]string{p.ProblemStatement, p.Approach, p.Title, p.Domain}),
		CorrectOption: 1,
	})

	if len(p.TechStack) > 0 {
		names := make([]string, 0, len(p.TechStack))
		for _, t := range p.TechStack {
			names = append(names, t.Name)
		}
		questions = append(questions, Question{
			Text:          "Which technology is part of this project's tech stack?",
			Options:       padOptions(names),
			CorrectOption: 0,
		})
	}

	if len(p.Milestones) > 0 {
		titles := make([]string, 0, len(p.Milestones))
		for _, m := range p.Milestones {
			titles = append(titles, m.Title)
		}
		questions = append(questions, Question{
			Text:          "Which milestone comes first in this project?",
			Options:       padOptions(titles),
			CorrectOption: 0,
		})
	}

	if len(p.SkillsGained) > 0 {
		questions = append(questions, Question{
			Text:          "Which skill does this project help you gain?",
			Options:       padOptions(p.SkillsGained),
			CorrectOption: 0,
		})
	}

	if p.Domain != "" && len(questions) < QuestionCount {
		questions = append(questions, Question{
			Text:          "Which domain does this project belong to?",
			Options:       padOptions([]string{p.Domain, "Frontend", "Backend", "Mobile"}),
			CorrectOption: 0,
		})
	}

	for len(questions) < QuestionCount {
		questions = append(questions, placeholder())
	}
	return questions[:QuestionCount]
}

// Score computes round(100 * correct / QuestionCount) for an answer vector.
// Pure: the same inputs always produce the same integer in [0, 100].
func Score(questions []Question, answers []int) int {
	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOption {
			correct++
		}
	}
	score := int(math.Round(100 * float64(correct) / float64(QuestionCount)))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Complete reports whether every answer slot is set. Partial submissions are
// rejected before anything is persisted.
func Complete(answers []int) bool {
	if len(answers) != QuestionCount {
		return false
	}
	for _, a := range answers {
		if a < 0 || a >= OptionCount {
			return false
		}
	}
	return true
}

func placeholder() Question {
	return Question{
		Text:          "Select the correct answer.",
		Options:       []string{"Option A", "Option B", "Option C", "Option D"},
		CorrectOption: 0,
	}
}

// padOptions trims or pads the source list to exactly OptionCount entries,
// preserving source order so rule-defined correct indices stay valid.
func padOptions(src []string) []string {
	options := make([]string, 0, OptionCount)
	for _, s := range src {
		if len(options) == OptionCount {
			break
		}
		options = append(options, s)
	}
	for i := 0; len(options) < OptionCount; i++ {
		options = append(options, fillers[i%len(fillers)])
	}
	return options
}
