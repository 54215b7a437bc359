package collection

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"deposit-collector/internal/event"
	"deposit-collector/internal/model"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

// ErrAddressNotGenerated means the address row exists but the node account is not assigned yet.
var ErrAddressNotGenerated = errors.New("deposit address not generated yet")

// StateMachine drives collection state transitions with the address row locked.
// A failed action rolls the whole transaction back, so no partial transition survives.
//
// Balances are read at the latest block, so a transaction submitted moments ago is not
// visible yet. A collect (or refuel) is skipped while the previous one is younger than
// settle; otherwise the next lock holder would send the same value again.
type StateMachine struct {
	store     AddressStore
	catalog   *model.Catalog
	collector *Collector
	refueler  *Refueler
	settle    time.Duration
	now       func() time.Time
}

func NewStateMachine(store AddressStore, catalog *model.Catalog, collector *Collector, refueler *Refueler, settle time.Duration) *StateMachine {
	return &StateMachine{
		store:     store,
		catalog:   catalog,
		collector: collector,
		refueler:  refueler,
		settle:    settle,
		now:       time.Now,
	}
}

// Collect sweeps the address into the hot wallet.
func (m *StateMachine) Collect(ctx context.Context, addressID uint64) (*Result, error) {
	return m.transition(ctx, addressID, model.EventCollect, func(ctx context.Context, t Target, addr *model.DepositAddress) (*Result, error) {
		hot, err := m.catalog.Wallet(t.Blockchain.HotWalletID)
		if err != nil {
			return nil, err
		}
		return m.collector.Sweep(ctx, t, addr.Secret, hot)
	})
}

// RefuelGas funds the address from the fee wallet.
func (m *StateMachine) RefuelGas(ctx context.Context, addressID uint64) (*Result, error) {
	return m.transition(ctx, addressID, model.EventRefuelGas, func(ctx context.Context, t Target, _ *model.DepositAddress) (*Result, error) {
		fee, err := m.catalog.Wallet(t.Blockchain.FeeWalletID)
		if err != nil {
			return nil, err
		}
		return m.refueler.Refuel(ctx, t, fee)
	})
}

type action func(ctx context.Context, t Target, addr *model.DepositAddress) (*Result, error)

func (m *StateMachine) transition(ctx context.Context, addressID uint64, ev model.CollectionEvent, act action) (*Result, error) {
	var (
		res      *Result
		chain    string
		settling bool
	)
	err := m.store.WithLockedAddress(ctx, addressID, func(tx AddressTx, addr *model.DepositAddress) error {
		if addr.Address == nil {
			return ErrAddressNotGenerated
		}
		if addr.CollectionState.Can(ev) && m.settling(ev, addr) {
			settling = true
			return nil
		}

		// 1. enter collecting / gas_refueling
		if err := addr.Fire(ev); err != nil {
			return err
		}
		if err := tx.SaveCollectionState(addr); err != nil {
			return err
		}

		// 2. run the action while the row stays locked
		t, err := TargetFor(m.catalog, addr)
		if err != nil {
			return err
		}
		chain = t.Blockchain.Key
		r, err := act(ctx, t, addr)
		if err != nil {
			return err
		}

		// 3. done, with the audit row and event in the same transaction
		if err := addr.Fire(model.EventFinish); err != nil {
			return err
		}
		now := m.now()
		if ev == model.EventCollect {
			addr.CollectedAt = &now
		} else {
			addr.GasRefueledAt = &now
		}
		if err := tx.SaveCollectionState(addr); err != nil {
			return err
		}
		if r != nil {
			if err := m.record(tx, t, r); err != nil {
				return err
			}
		}
		res = r
		return nil
	})

	kind := string(ev)
	if settling {
		logger.Info("previous transaction still settling, skip",
			zap.Uint64("address_id", addressID),
			zap.String("event", kind),
			zap.Duration("settle", m.settle),
		)
		return nil, nil
	}
	if err != nil {
		monitor.Business.CollectionsTotal.WithLabelValues(chain, kind, "failed").Inc()
		logger.Error("collection transition failed",
			zap.Uint64("address_id", addressID),
			zap.String("event", kind),
			zap.Error(err),
		)
		return nil, err
	}
	result := "submitted"
	if res == nil {
		result = "noop"
	}
	monitor.Business.CollectionsTotal.WithLabelValues(chain, kind, result).Inc()
	return res, nil
}

// settling reports whether the last submission of the same kind is inside the settle window.
func (m *StateMachine) settling(ev model.CollectionEvent, addr *model.DepositAddress) bool {
	last := addr.CollectedAt
	if ev == model.EventRefuelGas {
		last = addr.GasRefueledAt
	}
	return last != nil && m.settle > 0 && m.now().Sub(*last) < m.settle
}

func (m *StateMachine) record(tx AddressTx, t Target, r *Result) error {
	if err := tx.RecordCollection(&model.Collection{
		DepositAddressID: t.AddressID,
		BlockchainID:     t.Blockchain.ID,
		Kind:             r.Kind,
		CurrencyCode:     r.Currency,
		TxID:             r.TxID,
		FromAddress:      r.From,
		ToAddress:        r.To,
		Amount:           r.Amount,
		GasPrice:         r.GasPrice,
		GasLimit:         r.GasLimit,
		Status:           "submitted",
	}); err != nil {
		return err
	}
	return tx.AppendOutbox(event.TopicCollectionEvents, strconv.FormatUint(t.AddressID, 10), event.CollectionEvent{
		Kind:          r.Kind,
		AddressID:     t.AddressID,
		BlockchainKey: t.Blockchain.Key,
		TxID:          r.TxID,
		Currency:      r.Currency,
		Amount:        r.Amount.String(),
		From:          r.From,
		To:            r.To,
	})
}
