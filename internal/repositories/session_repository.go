package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type SessionFilters struct {
	CandidateName string `json:"candidate_name"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	SortOrder     string `json:"sort_order"` // "asc", "desc" on start time
}

// SessionRepository archives ended sessions together with their event timeline
type SessionRepository interface {
	Save(ctx context.Context, record *models.SessionRecord) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	List(ctx context.Context, filters SessionFilters) ([]*models.SessionRecord, int64, error)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
