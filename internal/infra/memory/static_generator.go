package memory

import (
	"context"
	"fmt"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// placeholderPNG is a 1x1 transparent PNG used as the image payload when the
// static generator runs in visual mode.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// StaticGenerator produces canned question sets; useful for local runs and
// tests when neither the generative backend nor a question bank is
// configured.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) Generate(_ context.Context, params app.GenerateParams) ([]domain.Question, error) {
	count := params.Count
	if count <= 0 {
		count = domain.QuestionsPerQuiz
	}

	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, domain.Question{
			Text: fmt.Sprintf("Sample %s question %d about %s", params.Difficulty, i+1, params.Topic),
			Options: []string{
				fmt.Sprintf("Answer A%d", i+1),
				fmt.Sprintf("Answer B%d", i+1),
				fmt.Sprintf("Answer C%d", i+1),
				fmt.Sprintf("Answer D%d", i+1),
			},
			CorrectIndex: i % domain.OptionCount,
			UserAnswer:   domain.AnswerUnset,
		})
	}

	if params.Visual {
		for i := 0; i < domain.VisualQuestionsPerQuiz && i < len(questions); i++ {
			questions[i].Image = placeholderPNG
		}
	}
	return questions, nil
}

// StaticAdvisor supplies canned hints and explanations when the generative
// backend is not configured.
type StaticAdvisor struct{}

func NewStaticAdvisor() *StaticAdvisor {
	return &StaticAdvisor{}
}

func (*StaticAdvisor) Hint(_ context.Context, questionText string) (string, error) {
	return fmt.Sprintf("Read the question again carefully: %q", questionText), nil
}

func (*StaticAdvisor) Explain(_ context.Context, questionText, correctText, chosenText string) (string, error) {
	return fmt.Sprintf("For %q the correct answer is %q, not %q.", questionText, correctText, chosenText), nil
}
