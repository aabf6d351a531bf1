package postgres

import (
	"context"
	"fmt"

	"clip-trivia-service/internal/domain"
	"clip-trivia-service/internal/infra/file"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads levels from the questions table.
type CatalogLoader struct {
	pool   *pgxpool.Pool
	layout file.MediaLayout
}

func NewCatalogLoader(pool *pgxpool.Pool, layout file.MediaLayout) *CatalogLoader {
	return &CatalogLoader{pool: pool, layout: layout}
}

func (l *CatalogLoader) LoadLevel(ctx context.Context, level int) (domain.Level, error) {
	rows, err := l.pool.Query(ctx, `SELECT number, clip, correct_answer FROM questions WHERE level=$1 ORDER BY number`, level)
	if err != nil {
		return domain.Level{}, fmt.Errorf("load level: %w", err)
	}
	defer rows.Close()

	var catalogRows []file.Row
	for rows.Next() {
		row := file.Row{Level: level}
		if err := rows.Scan(&row.Number, &row.Clip, &row.CorrectAnswer); err != nil {
			return domain.Level{}, fmt.Errorf("scan question: %w", err)
		}
		catalogRows = append(catalogRows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.Level{}, fmt.Errorf("load level: %w", err)
	}
	if len(catalogRows) == 0 {
		return domain.Level{}, fmt.Errorf("level %d: %w", level, domain.ErrLevelNotFound)
	}

	levels, err := file.BuildLevels(catalogRows, l.layout)
	if err != nil {
		return domain.Level{}, err
	}
	return levels[level], nil
}
