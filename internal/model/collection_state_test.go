package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionStateFire(t *testing.T) {
	tests := []struct {
		name    string
		from    CollectionState
		event   CollectionEvent
		want    CollectionState
		wantErr bool
	}{
		{"collect from none", CollectionNone, EventCollect, CollectionCollecting, false},
		{"collect from pending", CollectionPending, EventCollect, CollectionCollecting, false},
		{"collect from done", CollectionDone, EventCollect, CollectionCollecting, false},
		{"collect while collecting", CollectionCollecting, EventCollect, CollectionCollecting, true},
		{"collect while refueling", CollectionGasRefueling, EventCollect, CollectionGasRefueling, true},
		{"refuel from none", CollectionNone, EventRefuelGas, CollectionGasRefueling, false},
		{"refuel from pending", CollectionPending, EventRefuelGas, CollectionGasRefueling, false},
		{"refuel from done", CollectionDone, EventRefuelGas, CollectionGasRefueling, false},
		{"refuel while collecting", CollectionCollecting, EventRefuelGas, CollectionCollecting, true},
		{"finish collecting", CollectionCollecting, EventFinish, CollectionDone, false},
		{"finish refueling", CollectionGasRefueling, EventFinish, CollectionDone, false},
		{"finish idle", CollectionPending, EventFinish, CollectionPending, true},
		{"pend from none", CollectionNone, EventPend, CollectionPending, false},
		{"pend from done", CollectionDone, EventPend, CollectionPending, false},
		{"pend while collecting", CollectionCollecting, EventPend, CollectionCollecting, true},
		{"unknown event", CollectionNone, CollectionEvent("teleport"), CollectionNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Fire(tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDepositAddressFire(t *testing.T) {
	a := DepositAddress{CollectionState: CollectionDone}

	require.NoError(t, a.Fire(EventCollect))
	assert.Equal(t, CollectionCollecting, a.CollectionState)

	assert.ErrorIs(t, a.Fire(EventCollect), ErrInvalidTransition)
	assert.Equal(t, CollectionCollecting, a.CollectionState, "failed event leaves state untouched")

	require.NoError(t, a.Fire(EventFinish))
	assert.Equal(t, CollectionDone, a.CollectionState)
}

func TestDepositStatusTo(t *testing.T) {
	tests := []struct {
		from, to DepositStatus
		ok       bool
	}{
		{DepositSubmitted, DepositAccepted, true},
		{DepositSubmitted, DepositSkipped, true},
		{DepositSkipped, DepositAccepted, true},
		{DepositAccepted, DepositDispatched, true},
		{DepositSubmitted, DepositDispatched, false},
		{DepositSkipped, DepositDispatched, false},
		{DepositAccepted, DepositSkipped, false},
		{DepositDispatched, DepositAccepted, false},
		{DepositDispatched, DepositSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			d := Deposit{Status: tt.from}
			err := d.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, d.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, d.Status)
			}
		})
	}
}
