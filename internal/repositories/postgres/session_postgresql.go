package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

const defaultListLimit = 50

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

// Save stores the session and its events in one transaction
func (s *SessionPostgreSQL) Save(ctx context.Context, record *models.SessionRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
}

func (s *SessionPostgreSQL) GetBySessionID(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	var record models.SessionRecord
	if err := s.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("session_id = ?", sessionID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.SessionRecord, int64, error) {
	var records []*models.SessionRecord
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SessionRecord{})
	if name := strings.TrimSpace(filters.CandidateName); name != "" {
		query = query.Where("candidate_name ILIKE ?", "%"+name+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "start_time DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "start_time ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	if err := query.Order(order).Limit(limit).Offset(filters.Offset).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
