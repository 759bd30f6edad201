package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// BankGenerator serves question sets from a pre-authored Postgres bank
// instead of the generative backend. Rows hold one question each as JSONB;
// a set is a random sample matching the requested topic and difficulty.
type BankGenerator struct {
	pool *pgxpool.Pool
}

func NewBankGenerator(pool *pgxpool.Pool) *BankGenerator {
	return &BankGenerator{pool: pool}
}

func (g *BankGenerator) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	if params.Visual {
		return nil, fmt.Errorf("question bank has no images; visual quizzes need the generative backend")
	}

	rows, err := g.pool.Query(ctx,
		`SELECT data FROM question_bank WHERE topic=$1 AND difficulty=$2 ORDER BY random() LIMIT $3`,
		params.Topic, params.Difficulty, params.Count)
	if err != nil {
		return nil, fmt.Errorf("query question bank: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, params.Count)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		q.UserAnswer = domain.AnswerUnset
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	if len(questions) < params.Count {
		return nil, fmt.Errorf("question bank has %d questions for topic=%q difficulty=%q, need %d",
			len(questions), params.Topic, params.Difficulty, params.Count)
	}
	return questions, nil
}
