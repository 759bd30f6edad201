package app

import (
	"fmt"
	"sync"
	"time"

	"quizforge/internal/domain"
)

// Session tracks one player's progress through a generated question set.
// All methods hold the session mutex, so concurrent requests for the same
// session id cannot lose updates or race an index advance.
type Session struct {
	id        string
	name      string
	createdAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	questions  []domain.Question
	index      int
	score      int
	lastActive time.Time
}

// NewSession builds a session positioned before the first question. The
// question slice is owned exclusively by the session from here on.
func NewSession(id, name string, questions []domain.Question) *Session {
	return NewSessionWithClock(id, name, questions, time.Now)
}

// NewSessionWithClock is for deterministic timestamps in tests.
func NewSessionWithClock(id, name string, questions []domain.Question, now func() time.Time) *Session {
	for i := range questions {
		questions[i].UserAnswer = domain.AnswerUnset
	}
	return &Session{
		id:         id,
		name:       name,
		createdAt:  now(),
		now:        now,
		questions:  questions,
		lastActive: now(),
	}
}

func (s *Session) ID() string { return s.id }

// NextQuestion returns the view of the current question, or done=true when
// every question has been answered. Does not mutate progress.
func (s *Session) NextQuestion() (domain.QuestionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	if s.index >= len(s.questions) {
		return domain.QuestionView{}, true
	}

	q := s.questions[s.index]
	return domain.QuestionView{
		Index:   s.index,
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
		Image:   q.Image,
	}, false
}

// SubmitAnswer records the answer for the current question and advances the
// session. questionIndex must address the current position; anything else is
// rejected so a replayed submission cannot advance or score twice.
func (s *Session) SubmitAnswer(questionIndex, answerIndex int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return false, s.score, fmt.Errorf("%w: question %d", domain.ErrInvalidIndex, questionIndex)
	}
	if questionIndex != s.index {
		return false, s.score, fmt.Errorf("%w: expected question %d, got %d", domain.ErrInvalidIndex, s.index, questionIndex)
	}
	q := &s.questions[s.index]
	if answerIndex < 0 || answerIndex >= len(q.Options) {
		return false, s.score, fmt.Errorf("%w: answer %d", domain.ErrInvalidIndex, answerIndex)
	}

	q.UserAnswer = answerIndex
	correct := answerIndex == q.CorrectIndex
	if correct {
		s.score++
	}
	s.index++
	return correct, s.score, nil
}

// QuestionText returns the text of the addressed question for hint requests.
func (s *Session) QuestionText(questionIndex int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return "", fmt.Errorf("%w: question %d", domain.ErrInvalidIndex, questionIndex)
	}
	return s.questions[questionIndex].Text, nil
}

// Finalize builds the end-of-quiz snapshot including the answer key, which
// is only ever exposed on this post-hoc path.
func (s *Session) Finalize() domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews := make([]domain.QuestionReview, 0, len(s.questions))
	for _, q := range s.questions {
		reviews = append(reviews, domain.QuestionReview{
			Text:         q.Text,
			Options:      append([]string(nil), q.Options...),
			CorrectIndex: q.CorrectIndex,
			UserAnswer:   q.UserAnswer,
		})
	}
	return domain.Result{
		Name:      s.name,
		Score:     s.score,
		Questions: reviews,
	}
}

// LastActive reports when the session last served a request; the idle-expiry
// sweeper uses it to reclaim abandoned sessions.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
