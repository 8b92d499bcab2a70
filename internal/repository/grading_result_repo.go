package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
)

// GradingResultRepository persists per-criterion outcomes.
type GradingResultRepository interface {
	CreateBatch(ctx context.Context, results []models.GradingResult) error
}

type gradingResultRepository struct {
	db *gorm.DB
}

// NewGradingResultRepository instantiates the repository.
func NewGradingResultRepository(db *gorm.DB) GradingResultRepository {
	return &gradingResultRepository{db: db}
}

func (r *gradingResultRepository) CreateBatch(ctx context.Context, results []models.GradingResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}
