package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quizforge/internal/domain"
)

// SessionStore abstracts how active sessions are registered (in-memory today,
// swappable for tests).
type SessionStore interface {
	Put(id string, session *Session)
	Get(id string) (*Session, bool)
	// Remove deletes the session and reports whether it was present. The
	// check-and-delete is atomic so a quiz can only be ended once.
	Remove(id string) (*Session, bool)
}

// GenerateParams describes one question-set request toward the generator.
type GenerateParams struct {
	Difficulty string
	Topic      string
	Count      int
	Visual     bool
}

// QuestionGenerator produces a fresh question set. Implementations may call
// a generative backend, a pre-authored bank, or a cache in front of either.
type QuestionGenerator interface {
	Generate(ctx context.Context, params GenerateParams) ([]domain.Question, error)
}

// HintGenerator produces a one-sentence hint from the question text alone.
// The answer key and options are never passed to it.
type HintGenerator interface {
	Hint(ctx context.Context, questionText string) (string, error)
}

// ExplanationGenerator explains why the chosen option is wrong given the
// question and the two option texts.
type ExplanationGenerator interface {
	Explain(ctx context.Context, questionText, correctText, chosenText string) (string, error)
}

// QuizService contains the quiz lifecycle use cases: start, next-question,
// submit-answer, hint, end, explain-mistake.
type QuizService struct {
	sessions  SessionStore
	generator QuestionGenerator
	hints     HintGenerator
	explainer ExplanationGenerator
	board     *Leaderboard
}

func NewQuizService(store SessionStore, generator QuestionGenerator, hints HintGenerator, explainer ExplanationGenerator, board *Leaderboard) *QuizService {
	return &QuizService{
		sessions:  store,
		generator: generator,
		hints:     hints,
		explainer: explainer,
		board:     board,
	}
}

// Start generates a question set and registers a new session for it.
// No session exists until the generated set has passed validation.
func (s *QuizService) Start(ctx context.Context, name, difficulty, topic string, visual bool) (string, int, error) {
	if name == "" || difficulty == "" || topic == "" {
		return "", 0, fmt.Errorf("%w: name, difficulty and topic are required", domain.ErrValidation)
	}

	questions, err := s.generator.Generate(ctx, GenerateParams{
		Difficulty: difficulty,
		Topic:      topic,
		Count:      domain.QuestionsPerQuiz,
		Visual:     visual,
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if err := validateQuestionSet(questions, visual); err != nil {
		return "", 0, err
	}

	id := uuid.NewString()
	s.sessions.Put(id, NewSession(id, name, questions))
	return id, len(questions), nil
}

// NextQuestionResult is either the current question view or the exhausted
// signal; exhaustion is a normal terminal state, not an error.
type NextQuestionResult struct {
	Done     bool
	Question domain.QuestionView
}

// NextQuestion returns the question at the session's current position with
// the answer key stripped. Read-only.
func (s *QuizService) NextQuestion(_ context.Context, sessionID string) (NextQuestionResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return NextQuestionResult{}, domain.ErrSessionNotFound
	}

	view, done := session.NextQuestion()
	if done {
		return NextQuestionResult{Done: true}, nil
	}
	return NextQuestionResult{Question: view}, nil
}

// SubmitAnswer records the answer for the session's current question, scores
// it, and advances the session by exactly one position. questionIndex must
// equal the session's current index; replaying an earlier index cannot
// double-advance state.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID string, questionIndex, answerIndex int) (bool, int, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, 0, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(questionIndex, answerIndex)
}

// Hint asks the hint generator for a nudge on the addressed question. The
// session lock is released before the external call; only the question text
// crosses the boundary.
func (s *QuizService) Hint(ctx context.Context, sessionID string, questionIndex int) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}

	text, err := session.QuestionText(questionIndex)
	if err != nil {
		return "", err
	}

	hint, err := s.hints.Hint(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	return hint, nil
}

// End removes the session, records its score on the leaderboard, and returns
// the final snapshot with the full answer key for review. A second call for
// the same id reports not-found; the leaderboard is never double-counted.
func (s *QuizService) End(_ context.Context, sessionID string) (domain.Result, error) {
	session, ok := s.sessions.Remove(sessionID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}

	result := session.Finalize()
	s.board.Insert(domain.LeaderboardEntry{Name: result.Name, Score: result.Score})
	return result, nil
}

// ExplainMistake is a pure function of its inputs; the caller supplies the
// question data it already holds from the end-of-quiz review.
func (s *QuizService) ExplainMistake(ctx context.Context, question string, options []string, correctIndex, userIndex int) (string, error) {
	if question == "" || len(options) == 0 {
		return "", fmt.Errorf("%w: question and options are required", domain.ErrValidation)
	}
	if correctIndex < 0 || correctIndex >= len(options) || userIndex < 0 || userIndex >= len(options) {
		return "", fmt.Errorf("%w: answer index out of range", domain.ErrValidation)
	}

	explanation, err := s.explainer.Explain(ctx, question, options[correctIndex], options[userIndex])
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	return explanation, nil
}

// LeaderboardSnapshot returns the current top scores, best first.
func (s *QuizService) LeaderboardSnapshot() []domain.LeaderboardEntry {
	return s.board.Snapshot()
}

// validateQuestionSet rejects generator output that would produce a
// playable-but-corrupt session. The generator is never trusted to enforce
// its own schema.
func validateQuestionSet(questions []domain.Question, visual bool) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: generator returned no questions", domain.ErrGeneration)
	}
	if len(questions) != domain.QuestionsPerQuiz {
		return fmt.Errorf("%w: expected %d questions, got %d", domain.ErrGeneration, domain.QuestionsPerQuiz, len(questions))
	}

	withImage := 0
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: question %d is malformed", domain.ErrGeneration, i)
		}
		if len(q.Image) > 0 {
			withImage++
		}
	}

	wantImages := 0
	if visual {
		wantImages = domain.VisualQuestionsPerQuiz
	}
	if withImage != wantImages {
		return fmt.Errorf("%w: expected %d image questions, got %d", domain.ErrGeneration, wantImages, withImage)
	}
	return nil
}
