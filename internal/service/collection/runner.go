package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"deposit-collector/internal/model"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

// Action selects what a collection job does.
type Action string

const (
	ActionAuto    Action = "auto"    // collect when the address can pay its fee, refuel otherwise
	ActionCollect Action = "collect" // operator override
	ActionRefuel  Action = "refuel"  // operator override
)

// Runner is the scheduler-side entry point of a collection job.
type Runner struct {
	store   AddressStore
	catalog *model.Catalog
	policy  *Policy
	machine *StateMachine
	now     func() time.Time
}

func NewRunner(store AddressStore, catalog *model.Catalog, policy *Policy, machine *StateMachine) *Runner {
	return &Runner{store: store, catalog: catalog, policy: policy, machine: machine, now: time.Now}
}

// Run executes one collection job for addressID.
func (r *Runner) Run(ctx context.Context, addressID uint64, action Action) error {
	switch action {
	case ActionCollect:
		_, err := r.machine.Collect(ctx, addressID)
		return err
	case ActionRefuel:
		_, err := r.machine.RefuelGas(ctx, addressID)
		return err
	case ActionAuto, "":
	default:
		return fmt.Errorf("unknown collection action %q", action)
	}

	addr, err := r.store.Get(ctx, addressID)
	if err != nil {
		return err
	}
	if addr.Address == nil {
		return ErrAddressNotGenerated
	}
	t, err := TargetFor(r.catalog, addr)
	if err != nil {
		return err
	}

	timer := prometheus.NewTimer(monitor.Business.CollectionJobDuration.WithLabelValues(t.Blockchain.Key))
	defer timer.ObserveDuration()

	// 1. read balances without the lock, keep the snapshot for scheduling
	e, err := r.policy.Evaluate(ctx, t)
	if err != nil {
		return err
	}
	if err := r.store.UpdateBalances(ctx, addressID, e.Balances, r.now()); err != nil {
		return err
	}
	if len(e.Collectable) == 0 {
		logger.Debug("address has nothing collectable", zap.Uint64("address_id", addressID))
		return nil
	}

	// 2. the state machine re-reads balances under the row lock
	if e.HasEnoughGas() {
		_, err = r.machine.Collect(ctx, addressID)
	} else {
		_, err = r.machine.RefuelGas(ctx, addressID)
	}
	return err
}
