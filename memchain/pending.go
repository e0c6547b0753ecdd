package memchain

import (
	"bytes"

	"github.com/wippyai/bcfs/chain"
)

// pendingTransaction is the chain.PendingTransaction handed to entry points.
type pendingTransaction struct {
	caller  chain.Address
	callee  chain.Address
	payer   chain.Address
	value   chain.Balance
	input   []byte
	state   State
	output  []byte
	outcome chain.Outcome
	events  []chain.Event
}

var _ chain.PendingTransaction = (*pendingTransaction)(nil)

func (p *pendingTransaction) Address() chain.Address { return p.callee }
func (p *pendingTransaction) Sender() chain.Address  { return p.caller }
func (p *pendingTransaction) Payer() chain.Address   { return p.payer }
func (p *pendingTransaction) Value() chain.Balance   { return p.value }
func (p *pendingTransaction) Input() []byte          { return p.input }

func (p *pendingTransaction) Ret(data []byte) {
	p.output = bytes.Clone(data)
}

func (p *pendingTransaction) Err(data []byte) {
	p.output = bytes.Clone(data)
	p.outcome = chain.OutcomeAborted
}

func (p *pendingTransaction) Emit(topics [][]byte, data []byte) {
	ev := chain.Event{
		Emitter: p.callee,
		Topics:  make([]chain.Topic, len(topics)),
		Data:    bytes.Clone(data),
	}
	for i, t := range topics {
		ev.Topics[i] = chain.NewTopic(t)
	}
	p.events = append(p.events, ev)
}

func (p *pendingTransaction) State() chain.KVStoreMut {
	return p.state[p.callee]
}

func (p *pendingTransaction) CodeAt(addr chain.Address) ([]byte, bool) {
	acct, ok := p.state[addr]
	if !ok {
		return nil, false
	}
	return acct.Code, true
}

func (p *pendingTransaction) AccountMetaAt(addr chain.Address) (chain.AccountMeta, bool) {
	acct, ok := p.state[addr]
	if !ok {
		return chain.AccountMeta{}, false
	}
	return chain.AccountMeta{Balance: acct.Balance}, true
}
