package domain

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// QuestionsPerQuiz is the fixed length of every generated question set.
const QuestionsPerQuiz = 5

// VisualQuestionsPerQuiz is how many questions carry an image when a quiz
// is started in visual mode; the remainder are text-only.
const VisualQuestionsPerQuiz = 2

// AnswerUnset marks a question the player has not answered yet.
const AnswerUnset = -1

// Question is a single multiple-choice question. Text, Options, CorrectIndex
// and Image are fixed once generated; UserAnswer is recorded exactly once
// when the player submits.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Image        []byte   `json:"image,omitempty"`
	UserAnswer   int      `json:"userAnswer"`
}

// Validate checks the invariants every generated question must satisfy:
// non-empty text, exactly OptionCount non-empty options, correct index in
// range.
func (q Question) Validate() error {
	if q.Text == "" {
		return ErrGeneration
	}
	if len(q.Options) != OptionCount {
		return ErrGeneration
	}
	for _, opt := range q.Options {
		if opt == "" {
			return ErrGeneration
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ErrGeneration
	}
	return nil
}

// QuestionView is what the question-serving path exposes to clients. It
// deliberately has no field for the correct index or the recorded answer.
type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Image   []byte   `json:"image,omitempty"`
}

// QuestionReview is the post-hoc view returned when a quiz ends, answer key
// included so clients can render a review screen.
type QuestionReview struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	UserAnswer   int      `json:"userAnswer"`
}

// Result is the final snapshot of a completed quiz.
type Result struct {
	Name      string           `json:"name"`
	Score     int              `json:"score"`
	Questions []QuestionReview `json:"questions"`
}

// LeaderboardEntry is a detached (name, score) pair; it keeps no reference
// to the session that produced it.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}
