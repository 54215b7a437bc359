package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"deposit-collector/internal/model"
)

// LoadCatalog reads the reference data once. Components receive the result explicitly.
func LoadCatalog(ctx context.Context, db *gorm.DB) (*model.Catalog, error) {
	var (
		chains     []model.Blockchain
		currencies []model.BlockchainCurrency
		wallets    []model.Wallet
	)
	q := db.WithContext(ctx)
	if err := q.Where("status = ?", model.BlockchainActive).Order("id").Find(&chains).Error; err != nil {
		return nil, fmt.Errorf("load blockchains: %w", err)
	}
	if err := q.Order("id").Find(&currencies).Error; err != nil {
		return nil, fmt.Errorf("load blockchain currencies: %w", err)
	}
	if err := q.Order("id").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	return model.NewCatalog(chains, currencies, wallets), nil
}
