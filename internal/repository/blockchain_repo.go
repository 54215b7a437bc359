package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"deposit-collector/internal/model"
)

// BlockchainRepository reads the mutable gas price guard columns, which the catalog does not cache.
type BlockchainRepository struct {
	db *gorm.DB
}

func NewBlockchainRepository(db *gorm.DB) *BlockchainRepository {
	return &BlockchainRepository{db: db}
}

func (r *BlockchainRepository) ListActive(ctx context.Context) ([]model.Blockchain, error) {
	var rows []model.Blockchain
	err := r.db.WithContext(ctx).Where("status = ?", model.BlockchainActive).Order("id").Find(&rows).Error
	return rows, err
}

// SetHighGasPriceAt sets or, with nil, clears the guard flag.
func (r *BlockchainRepository) SetHighGasPriceAt(ctx context.Context, id uint64, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Blockchain{}).Where("id = ?", id).Update("high_gas_price_at", at).Error
}
