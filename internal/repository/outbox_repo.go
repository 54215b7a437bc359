package repository

import (
	"context"

	"gorm.io/gorm"

	"deposit-collector/internal/model"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// FetchPending returns the oldest unsent messages.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var rows []model.OutboxMessage
	err := r.db.WithContext(ctx).Where("status = ?", model.OutboxPending).Order("id").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&model.OutboxMessage{}).Where("id = ?", id).Update("status", model.OutboxSent).Error
}
