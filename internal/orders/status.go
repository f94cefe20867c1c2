package orders

import "github.com/ariefcatur/restaurant-orders/internal/apperr"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusFinalized Status = "FINALIZED"
	StatusCanceled  Status = "CANCELED"
)

// FINALIZED and CANCELED have no way out.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusFinalized: true, StatusCanceled: true},
	StatusFinalized: {},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func checkTransition(orderID string, from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from == to {
		return apperr.InvalidTransition("order %s is already %s", orderID, from)
	}
	return apperr.InvalidTransition("order %s cannot move from %s to %s", orderID, from, to)
}
