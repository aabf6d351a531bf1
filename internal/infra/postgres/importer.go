package postgres

import (
	"context"
	"fmt"

	"clip-trivia-service/internal/infra/file"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Level         int    `bun:"level,pk"`
	Number        int    `bun:"number,pk"`
	Clip          string `bun:"clip,notnull"`
	CorrectAnswer int    `bun:"correct_answer,notnull"`
}

// ImportCatalog upserts catalog rows into the questions table in one transaction.
func ImportCatalog(ctx context.Context, db *bun.DB, rows []file.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]questionRow, 0, len(rows))
	for _, row := range rows {
		models = append(models, questionRow{
			Level:         row.Level,
			Number:        row.Number,
			Clip:          row.Clip,
			CorrectAnswer: row.CorrectAnswer,
		})
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&models).
			On("CONFLICT (level, number) DO UPDATE").
			Set("clip = EXCLUDED.clip").
			Set("correct_answer = EXCLUDED.correct_answer").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	return len(models), nil
}
