package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deposit-collector/internal/model"
	"deposit-collector/internal/service/deposit"
)

// DepositRepository implements deposit.Store.
type DepositRepository struct {
	db      *gorm.DB
	members *MemberRepository
}

func NewDepositRepository(db *gorm.DB) *DepositRepository {
	return &DepositRepository{db: db, members: NewMemberRepository(db)}
}

func (r *DepositRepository) FindMemberByUID(ctx context.Context, uid string) (*model.Member, error) {
	return r.members.FindByUID(ctx, uid)
}

func (r *DepositRepository) Transaction(ctx context.Context, fn func(tx deposit.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&depositTx{tx: tx})
	})
}

type depositTx struct {
	tx *gorm.DB
}

func (t *depositTx) FindOrCreateLocked(d *model.Deposit) (*model.Deposit, bool, error) {
	res := t.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	var stored model.Deposit
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("blockchain_id = ? AND currency_code = ? AND tx_id = ? AND tx_out = ?",
			d.BlockchainID, d.CurrencyCode, d.TxID, d.TxOut).
		First(&stored).Error
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (t *depositTx) SkippedForUpdate(memberID, blockchainID uint64, currency string, excludeID uint64) ([]model.Deposit, error) {
	var rows []model.Deposit
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND blockchain_id = ? AND currency_code = ? AND status = ? AND id <> ?",
			memberID, blockchainID, currency, model.DepositSkipped, excludeID).
		Order("id").
		Find(&rows).Error
	return rows, err
}

func (t *depositTx) Save(d *model.Deposit) error {
	return t.tx.Save(d).Error
}

func (t *depositTx) MarkAddressPending(memberID, blockchainID uint64) error {
	var addr model.DepositAddress
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND blockchain_id = ?", memberID, blockchainID).
		Limit(1).Find(&addr).Error
	if err != nil {
		return err
	}
	if addr.ID == 0 || !addr.CollectionState.Can(model.EventPend) {
		return nil
	}
	if err := addr.Fire(model.EventPend); err != nil {
		return err
	}
	return t.tx.Model(&addr).Update("collection_state", addr.CollectionState).Error
}

func (t *depositTx) AppendOutbox(topic, key string, payload interface{}) error {
	return model.CreateOutboxMessage(t.tx, topic, key, payload)
}
