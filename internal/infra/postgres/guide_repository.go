package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type GuideRepository struct {
	pool *pgxpool.Pool
}

func NewGuideRepository(pool *pgxpool.Pool) *GuideRepository {
	return &GuideRepository{pool: pool}
}

func (r *GuideRepository) Save(ctx context.Context, guide *entity.Guide) error {
	steps, err := json.Marshal(guide.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `INSERT INTO guides (guide_id, steps, source, created_at) VALUES ($1,$2,$3,$4)`
	if _, err := r.pool.Exec(ctx, query, guide.GuideID, steps, string(guide.Source), guide.Timestamp); err != nil {
		return fmt.Errorf("insert guide: %w", err)
	}
	return nil
}

// FindLatest returns the most recently stored guide for guideID, marked as cached.
func (r *GuideRepository) FindLatest(ctx context.Context, guideID int) (*entity.Guide, error) {
	query := `
		SELECT guide_id, steps, source, created_at
		FROM guides WHERE guide_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	guide := &entity.Guide{Cached: true}
	var steps []byte
	var source string
	err := r.pool.QueryRow(ctx, query, guideID).Scan(&guide.GuideID, &steps, &source, &guide.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrGuideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find guide: %w", err)
	}

	if err := json.Unmarshal(steps, &guide.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	guide.Source = entity.GuideSource(source)
	guide.Timestamp = guide.Timestamp.UTC()
	return guide, nil
}
