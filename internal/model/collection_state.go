package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event is not allowed from the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// CollectionState is the sweep lifecycle of a deposit address.
type CollectionState string

const (
	CollectionNone         CollectionState = "none"
	CollectionPending      CollectionState = "pending"
	CollectionCollecting   CollectionState = "collecting"
	CollectionGasRefueling CollectionState = "gas_refueling"
	CollectionDone         CollectionState = "done"
)

// CollectionEvent drives CollectionState.
type CollectionEvent string

const (
	EventPend      CollectionEvent = "pend"       // a deposit to the address was dispatched
	EventCollect   CollectionEvent = "collect"    // sweep to the hot wallet starts
	EventRefuelGas CollectionEvent = "refuel_gas" // fee wallet funding starts
	EventFinish    CollectionEvent = "finish"     // the action above succeeded
)

type collectionTransition struct {
	from []CollectionState
	to   CollectionState
}

// collecting and gas_refueling never lead into each other.
var collectionTransitions = map[CollectionEvent]collectionTransition{
	EventPend:      {from: []CollectionState{CollectionNone, CollectionDone}, to: CollectionPending},
	EventCollect:   {from: []CollectionState{CollectionNone, CollectionPending, CollectionDone}, to: CollectionCollecting},
	EventRefuelGas: {from: []CollectionState{CollectionNone, CollectionPending, CollectionDone}, to: CollectionGasRefueling},
	EventFinish:    {from: []CollectionState{CollectionCollecting, CollectionGasRefueling}, to: CollectionDone},
}

// Fire returns the state reached by ev, or ErrInvalidTransition.
func (s CollectionState) Fire(ev CollectionEvent) (CollectionState, error) {
	tr, ok := collectionTransitions[ev]
	if !ok {
		return s, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	for _, from := range tr.from {
		if s == from {
			return tr.to, nil
		}
	}
	return s, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, s)
}

// Can reports whether ev is allowed from s.
func (s CollectionState) Can(ev CollectionEvent) bool {
	_, err := s.Fire(ev)
	return err == nil
}

// Schedulable states are the ones a collection job may start from.
func SchedulableCollectionStates() []CollectionState {
	return []CollectionState{CollectionNone, CollectionPending, CollectionDone}
}
