package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// QuestionBank loads pre-generated question sets stored as JSONB.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) LoadBank(ctx context.Context, regionCode string) (domain.QuestionSet, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE region_code=$1`, regionCode).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionBankNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question bank: %w", err)
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal question bank: %w", err)
	}
	set.RegionCode = regionCode
	return set, nil
}
