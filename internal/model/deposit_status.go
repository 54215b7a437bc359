package model

import "fmt"

// DepositStatus only moves forward; nothing leaves dispatched.
type DepositStatus string

const (
	DepositSubmitted  DepositStatus = "submitted"
	DepositAccepted   DepositStatus = "accepted"
	DepositSkipped    DepositStatus = "skipped"
	DepositDispatched DepositStatus = "dispatched"
)

var depositTransitions = map[DepositStatus][]DepositStatus{
	DepositSubmitted: {DepositAccepted, DepositSkipped},
	DepositSkipped:   {DepositAccepted},
	DepositAccepted:  {DepositDispatched},
}

// To returns next when the move is allowed.
func (s DepositStatus) To(next DepositStatus) (DepositStatus, error) {
	for _, allowed := range depositTransitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, fmt.Errorf("%w: deposit %s -> %s", ErrInvalidTransition, s, next)
}
