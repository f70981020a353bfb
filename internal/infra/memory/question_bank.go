package memory

import (
	"context"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// StaticBank is a map-backed bank loader (useful for tests and dev mode).
type StaticBank struct {
	banks map[string]domain.QuestionSet
}

func NewStaticBank(banks map[string]domain.QuestionSet) *StaticBank {
	return &StaticBank{banks: banks}
}

func (b *StaticBank) LoadBank(_ context.Context, regionCode string) (domain.QuestionSet, error) {
	if set, ok := b.banks[regionCode]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionBankNotFound
}
