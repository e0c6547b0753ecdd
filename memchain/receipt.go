package memchain

import (
	"github.com/google/uuid"

	"github.com/wippyai/bcfs/chain"
)

// Receipt is the result of a transaction.
type Receipt struct {
	ID       uuid.UUID
	Caller   chain.Address
	Callee   chain.Address
	Value    chain.Balance
	GasUsed  uint64
	Output   []byte
	Events   []chain.Event
	Outcome  chain.Outcome
	Contract chain.Address
}

// Reverted reports whether the transaction's state changes were dropped.
func (r *Receipt) Reverted() bool {
	return r.Outcome.Reverted()
}

func newReceipt(caller, callee chain.Address, value chain.Balance) *Receipt {
	return &Receipt{
		ID:      uuid.New(),
		Caller:  caller,
		Callee:  callee,
		Value:   value,
		Outcome: chain.OutcomeSuccess,
	}
}
