package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"deposit-collector/internal/event"
	"deposit-collector/internal/model"
	"deposit-collector/internal/service/mq"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

const memberOwnerPrefix = "user:"

var (
	// ErrUnknownReference means the member, blockchain or currency of a notification is not
	// configured. The message stays unacknowledged.
	ErrUnknownReference = errors.New("unknown deposit reference")
	// ErrAmountMismatch means two observations of the same chain event disagree on the amount.
	ErrAmountMismatch = errors.New("deposit amount mismatch")
	// ErrMalformedNotification is a message that can never be processed.
	ErrMalformedNotification = errors.New("malformed deposit notification")
)

// Processor ingests deposit notifications.
type Processor struct {
	store   Store
	catalog *model.Catalog
	now     func() time.Time
}

func NewProcessor(store Store, catalog *model.Catalog) *Processor {
	return &Processor{store: store, catalog: catalog, now: time.Now}
}

// Handle is the MQ entry point. Malformed payloads are dropped, every other failure
// is returned so the message is not acknowledged.
func (p *Processor) Handle(msg *mq.Message) error {
	var n event.DepositNotification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		logger.Error("drop undecodable deposit notification", zap.String("msg_id", msg.ID), zap.Error(err))
		return nil
	}

	err := p.Process(context.Background(), n)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedNotification):
		logger.Error("drop malformed deposit notification", zap.String("txid", n.TxID), zap.Error(err))
		return nil
	case errors.Is(err, ErrAmountMismatch):
		logger.Error("DEPOSIT AMOUNT MISMATCH",
			zap.String("blockchain", n.BlockchainKey),
			zap.String("txid", n.TxID),
			zap.Int("txout", n.TxOut),
			zap.Error(err),
		)
		return err
	default:
		logger.Warn("deposit notification not processed", zap.String("txid", n.TxID), zap.Error(err))
		return err
	}
}

// Process runs one notification through find-or-create, accept/skip and dispatch.
func (p *Processor) Process(ctx context.Context, n event.DepositNotification) error {
	// 1. only members own deposits
	if !strings.HasPrefix(n.OwnerID, memberOwnerPrefix) {
		logger.Debug("ignore deposit of non-member owner", zap.String("owner_id", n.OwnerID))
		return nil
	}
	uid, err := memberUID(n.OwnerID)
	if err != nil {
		return err
	}

	// 2. references
	chain, err := p.catalog.BlockchainByKey(n.BlockchainKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownReference, err)
	}
	currency, err := p.catalog.Currency(chain.ID, n.Currency)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownReference, err)
	}
	member, err := p.store.FindMemberByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("%w: member %q: %w", ErrUnknownReference, uid, err)
	}

	amount, err := parseAmount(n.Amount, currency.Decimals)
	if err != nil {
		return err
	}

	var status model.DepositStatus
	err = p.store.Transaction(ctx, func(tx Tx) error {
		// 3. idempotency boundary
		d, created, err := tx.FindOrCreateLocked(&model.Deposit{
			BlockchainID:  chain.ID,
			CurrencyCode:  currency.CurrencyCode,
			TxID:          n.TxID,
			TxOut:         n.TxOut,
			MemberID:      member.ID,
			Address:       model.NormalizeAddress(n.ToAddress),
			Amount:        amount,
			FromAddresses: model.StringList{model.NormalizeAddress(n.FromAddress)},
			Confirmations: n.Confirmations,
			Status:        model.DepositSubmitted,
		})
		if err != nil {
			return err
		}

		// 4. consistency
		if !created && !d.Amount.Equal(amount) {
			return fmt.Errorf("%w: deposit %d stored %s, notified %s", ErrAmountMismatch, d.ID, d.Amount, amount)
		}
		if n.Confirmations > d.Confirmations {
			d.Confirmations = n.Confirmations
		}

		dispatched := false
		dispatch := func(dep *model.Deposit) error {
			if dep.Status != model.DepositAccepted || dep.Confirmations < chain.MinConfirmations {
				return nil
			}
			if err := p.dispatch(tx, chain, uid, dep); err != nil {
				return err
			}
			dispatched = true
			return nil
		}

		// 5. accept/skip against the skipped backlog
		if d.Status == model.DepositSubmitted {
			skipped, err := tx.SkippedForUpdate(member.ID, chain.ID, currency.CurrencyCode, d.ID)
			if err != nil {
				return err
			}
			total := sumAmounts(skipped).Add(d.Amount)
			if total.LessThan(currency.MinDepositAmount) {
				if err := d.Transition(model.DepositSkipped); err != nil {
					return err
				}
				d.AppendError(fmt.Sprintf("%s skipped: aggregated amount %s is below minimum deposit %s",
					p.now().UTC().Format(time.RFC3339), total, currency.MinDepositAmount))
			} else {
				if err := d.Transition(model.DepositAccepted); err != nil {
					return err
				}
				for i := range skipped {
					prev := &skipped[i]
					if err := prev.Transition(model.DepositAccepted); err != nil {
						return err
					}
					if err := dispatch(prev); err != nil {
						return err
					}
					if err := tx.Save(prev); err != nil {
						return err
					}
				}
			}
		}

		// 6. dispatch once confirmed
		if err := dispatch(d); err != nil {
			return err
		}
		if err := tx.Save(d); err != nil {
			return err
		}
		if dispatched {
			if err := tx.MarkAddressPending(member.ID, chain.ID); err != nil {
				return err
			}
		}
		status = d.Status
		return nil
	})
	if err != nil {
		return err
	}

	monitor.Business.DepositsProcessedTotal.WithLabelValues(chain.Key, string(status)).Inc()
	logger.Info("deposit processed",
		zap.String("blockchain", chain.Key),
		zap.String("currency", currency.CurrencyCode),
		zap.String("txid", n.TxID),
		zap.Int("txout", n.TxOut),
		zap.String("status", string(status)),
	)
	return nil
}

func (p *Processor) dispatch(tx Tx, chain model.Blockchain, uid string, d *model.Deposit) error {
	if err := d.Transition(model.DepositDispatched); err != nil {
		return err
	}
	now := p.now()
	d.DispatchedAt = &now
	return tx.AppendOutbox(event.TopicDepositDispatched, uid, event.DepositDispatchedEvent{
		DepositID:     d.ID,
		MemberUID:     uid,
		BlockchainKey: chain.Key,
		Currency:      d.CurrencyCode,
		TxID:          d.TxID,
		TxOut:         d.TxOut,
		Amount:        d.Amount.String(),
	})
}

func parseAmount(s string, decimals int32) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q: %w", ErrMalformedNotification, s, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not positive", ErrMalformedNotification, s)
	}
	base, err := model.ToBaseUnits(v, decimals)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	return base, nil
}

// memberUID takes the second field of a "user:<uid>[:...]" owner id.
func memberUID(ownerID string) (string, error) {
	uid := strings.Split(ownerID, ":")[1]
	if uid == "" {
		return "", fmt.Errorf("%w: owner id %q has no member uid", ErrMalformedNotification, ownerID)
	}
	return uid, nil
}
