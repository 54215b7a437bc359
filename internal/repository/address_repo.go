package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deposit-collector/internal/model"
	"deposit-collector/internal/service/collection"
)

// AddressRepository stores deposit addresses. It implements collection.AddressStore.
type AddressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) Get(ctx context.Context, id uint64) (*model.DepositAddress, error) {
	var addr model.DepositAddress
	if err := r.db.WithContext(ctx).First(&addr, id).Error; err != nil {
		return nil, notFound(err, "deposit address %d", id)
	}
	return &addr, nil
}

// WithLockedAddress holds SELECT ... FOR UPDATE on the row for the whole of fn.
func (r *AddressRepository) WithLockedAddress(ctx context.Context, id uint64, fn func(tx collection.AddressTx, addr *model.DepositAddress) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var addr model.DepositAddress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&addr, id).Error; err != nil {
			return notFound(err, "deposit address %d", id)
		}
		return fn(&addressTx{tx: tx}, &addr)
	})
}

// UpdateBalances stores the snapshot without zero entries, so a swept address stops being a
// scheduling candidate until it receives funds again.
func (r *AddressRepository) UpdateBalances(ctx context.Context, id uint64, balances model.BalanceMap, at time.Time) error {
	positive := make(model.BalanceMap, len(balances))
	for code, v := range balances {
		if v.IsPositive() {
			positive[code] = v
		}
	}
	return r.db.WithContext(ctx).Model(&model.DepositAddress{}).Where("id = ?", id).Updates(map[string]interface{}{
		"balances":            positive,
		"balances_updated_at": at,
	}).Error
}

// ListSchedulable returns generated addresses of one blockchain that may start a collection:
// pending ones, plus none/done ones holding a positive snapshot. Addresses whose snapshot is
// newer than before are skipped. Rows whose snapshot holds only zeros are paged past, they
// never fill the batch.
func (r *AddressRepository) ListSchedulable(ctx context.Context, blockchainID uint64, before time.Time, limit int) ([]model.DepositAddress, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []model.DepositAddress
	for offset := 0; len(out) < limit; offset += limit {
		var rows []model.DepositAddress
		err := r.db.WithContext(ctx).
			Where("blockchain_id = ? AND address IS NOT NULL", blockchainID).
			Where("collection_state = ? OR (collection_state IN ? AND balances IS NOT NULL AND balances NOT IN ?)",
				model.CollectionPending,
				schedulableIdleStates(),
				[]string{"", "{}"},
			).
			Where("balances_updated_at IS NULL OR balances_updated_at < ?", before).
			Order("balances_updated_at IS NOT NULL, balances_updated_at, id").
			Offset(offset).
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}

		for _, a := range rows {
			if len(out) == limit {
				break
			}
			if a.CollectionState == model.CollectionPending || a.HasBalances() {
				out = append(out, a)
			}
		}
		if len(rows) < limit {
			break
		}
	}
	return out, nil
}

// schedulableIdleStates are the schedulable states that need a positive snapshot to be picked.
func schedulableIdleStates() []model.CollectionState {
	var states []model.CollectionState
	for _, st := range model.SchedulableCollectionStates() {
		if st != model.CollectionPending {
			states = append(states, st)
		}
	}
	return states
}

// FindOrCreatePlaceholder returns the member's address row on a blockchain, inserting an
// ungenerated one when missing.
func (r *AddressRepository) FindOrCreatePlaceholder(ctx context.Context, memberID, blockchainID uint64) (*model.DepositAddress, error) {
	db := r.db.WithContext(ctx)
	placeholder := model.DepositAddress{
		MemberID:        memberID,
		BlockchainID:    blockchainID,
		CollectionState: model.CollectionNone,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&placeholder).Error; err != nil {
		return nil, err
	}
	var addr model.DepositAddress
	if err := db.Where("member_id = ? AND blockchain_id = ?", memberID, blockchainID).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// SetGenerated stores the node account of a placeholder row.
func (r *AddressRepository) SetGenerated(ctx context.Context, addr *model.DepositAddress) error {
	res := r.db.WithContext(ctx).Model(addr).
		Where("address IS NULL").
		Select("Address", "Secret", "Details").
		Updates(addr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("deposit address already generated")
	}
	return nil
}

type addressTx struct {
	tx *gorm.DB
}

func (t *addressTx) SaveCollectionState(addr *model.DepositAddress) error {
	return t.tx.Model(addr).
		Select("CollectionState", "CollectedAt", "GasRefueledAt").
		Updates(addr).Error
}

func (t *addressTx) RecordCollection(c *model.Collection) error {
	return t.tx.Create(c).Error
}

func (t *addressTx) AppendOutbox(topic, key string, payload interface{}) error {
	return model.CreateOutboxMessage(t.tx, topic, key, payload)
}
