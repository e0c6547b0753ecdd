package memchain

import (
	"context"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/chain"
)

// Memchain is an in-memory chain of blocks.
type Memchain struct {
	name     string
	baseGas  uint64
	executor Executor
	blocks   []*Block
	mu       sync.Mutex
}

// Option configures a Memchain.
type Option func(*Memchain)

// WithExecutor sets the executor used for accounts that carry code but no
// Main function.
func WithExecutor(e Executor) Option {
	return func(m *Memchain) {
		m.executor = e
	}
}

// New creates a chain whose genesis block holds a copy of genesis, followed
// by an empty block ready for transactions.
func New(name string, genesis State, baseGas uint64, opts ...Option) *Memchain {
	m := &Memchain{
		name:    name,
		baseGas: baseGas,
	}
	for _, opt := range opts {
		opt(m)
	}
	if genesis == nil {
		genesis = State{}
	}
	m.blocks = append(m.blocks, &Block{chain: m, number: 0, state: genesis.Clone()})
	m.CreateBlock()
	return m
}

// Name returns the chain name.
func (m *Memchain) Name() string { return m.name }

// BaseGas returns the gas charged per transaction.
func (m *Memchain) BaseGas() uint64 { return m.baseGas }

// SetExecutor replaces the bytecode executor.
func (m *Memchain) SetExecutor(e Executor) {
	m.mu.Lock()
	m.executor = e
	m.mu.Unlock()
}

// LastBlock returns the block new transactions are applied to.
func (m *Memchain) LastBlock() *Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks[len(m.blocks)-1]
}

// Blocks returns every block, genesis first.
func (m *Memchain) Blocks() []*Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.blocks)
}

// CreateBlock seals the last block and starts a new one from its state.
func (m *Memchain) CreateBlock() *Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := m.blocks[len(m.blocks)-1]
	b := &Block{chain: m, number: last.number + 1, state: last.state.Clone()}
	m.blocks = append(m.blocks, b)
	return b
}

// Block is a set of transactions applied to a common state.
type Block struct {
	chain    *Memchain
	number   uint64
	state    State
	receipts []*Receipt
	events   []chain.Event
}

// Number returns the block height.
func (b *Block) Number() uint64 { return b.number }

// State returns a deep copy of the block state.
func (b *Block) State() State {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	return b.state.Clone()
}

// Account returns a copy of the account at addr.
func (b *Block) Account(addr chain.Address) (*Account, bool) {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	acct, ok := b.state[addr]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// Receipts returns the receipts of transactions applied to the block.
func (b *Block) Receipts() []*Receipt {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	return slices.Clone(b.receipts)
}

// Events returns the events of successful transactions in the block.
func (b *Block) Events() []chain.Event {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()
	return slices.Clone(b.events)
}

// Transact sends value and input from caller to callee. The payer is
// charged the base gas at gasPrice.
func (b *Block) Transact(ctx context.Context, caller, callee, payer chain.Address, value chain.Balance, input []byte, gas, gasPrice uint64) *Receipt {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()

	receipt := newReceipt(caller, callee, value)
	log := Logger().With(
		zap.Stringer("tx", receipt.ID),
		zap.Stringer("caller", caller),
		zap.Stringer("callee", callee))

	state, ok := b.prepare(receipt, caller, payer, value, gas, gasPrice)
	if !ok {
		return b.finish(receipt, log)
	}
	if _, ok := state[callee]; !ok {
		receipt.Outcome = chain.OutcomeInvalidCallee
		return b.finish(receipt, log)
	}
	var overflow bool
	if state[callee].Balance, overflow = state[callee].Balance.Add(value); overflow {
		receipt.Outcome = chain.OutcomeFatal
		return b.finish(receipt, log)
	}

	ptx := &pendingTransaction{
		caller:  caller,
		callee:  callee,
		payer:   payer,
		value:   value,
		input:   slices.Clone(input),
		state:   state,
		outcome: chain.OutcomeSuccess,
	}
	b.run(ctx, ptx, log)

	receipt.Outcome = ptx.outcome
	receipt.Output = ptx.output
	if !receipt.Reverted() {
		b.state = ptx.state
		receipt.Events = ptx.events
		b.events = append(b.events, ptx.events...)
	}
	return b.finish(receipt, log)
}

// Create deploys code as a new account funded with value. The address is
// the first 20 bytes of BLAKE3(caller || nonce || code).
func (b *Block) Create(ctx context.Context, caller chain.Address, value chain.Balance, code []byte, gas, gasPrice uint64) *Receipt {
	b.chain.mu.Lock()
	defer b.chain.mu.Unlock()

	receipt := newReceipt(caller, chain.Address{}, value)
	log := Logger().With(zap.Stringer("tx", receipt.ID), zap.Stringer("caller", caller))

	state, ok := b.prepare(receipt, caller, caller, value, gas, gasPrice)
	if !ok {
		return b.finish(receipt, log)
	}

	from := state[caller]
	addr := ContractAddress(caller, from.Nonce, code)
	from.Nonce++
	if _, exists := state[addr]; exists {
		receipt.Outcome = chain.OutcomeFatal
		return b.finish(receipt, log)
	}
	state[addr] = &Account{
		Balance: value,
		Code:    slices.Clone(code),
		Storage: map[string][]byte{},
	}

	receipt.Callee = addr
	receipt.Contract = addr
	b.state = state
	return b.finish(receipt, log)
}

// prepare checks gas and funds and returns a copy of the state with the fee
// and value debited. It reports false when the receipt outcome was set.
func (b *Block) prepare(receipt *Receipt, caller, payer chain.Address, value chain.Balance, gas, gasPrice uint64) (State, bool) {
	if gas < b.chain.baseGas {
		receipt.Outcome = chain.OutcomeInsufficientGas
		return nil, false
	}
	receipt.GasUsed = b.chain.baseGas

	state := b.state.Clone()
	from, ok := state[caller]
	if !ok {
		receipt.Outcome = chain.OutcomeInvalidInput
		return nil, false
	}
	payerAcct, ok := state[payer]
	if !ok {
		receipt.Outcome = chain.OutcomeInsufficientFunds
		return nil, false
	}

	fee, overflow := chain.NewBalance(b.chain.baseGas).Mul64(gasPrice)
	if overflow {
		receipt.Outcome = chain.OutcomeInsufficientFunds
		return nil, false
	}
	if payerAcct.Balance, overflow = payerAcct.Balance.Sub(fee); overflow {
		receipt.Outcome = chain.OutcomeInsufficientFunds
		return nil, false
	}
	if from.Balance, overflow = from.Balance.Sub(value); overflow {
		receipt.Outcome = chain.OutcomeInsufficientFunds
		return nil, false
	}
	return state, true
}

func (b *Block) run(ctx context.Context, ptx *pendingTransaction, log *zap.Logger) {
	acct := ptx.state[ptx.callee]
	switch {
	case acct.Main != nil:
		if code := acct.Main(ctx, ptx); code != 0 {
			log.Debug("main exited", zap.Uint16("code", code))
			ptx.outcome = chain.OutcomeAborted
		}
	case len(acct.Code) > 0 && b.chain.executor != nil:
		code, err := b.chain.executor.Execute(ctx, acct.Code, ptx)
		switch {
		case err != nil:
			log.Warn("execute failed", zap.Error(err))
			ptx.outcome = chain.OutcomeFatal
			if len(ptx.output) == 0 {
				ptx.output = []byte(err.Error())
			}
		case code != 0:
			log.Debug("contract exited", zap.Uint32("code", code))
			ptx.outcome = chain.OutcomeAborted
		}
	}
}

func (b *Block) finish(receipt *Receipt, log *zap.Logger) *Receipt {
	b.receipts = append(b.receipts, receipt)
	log.Debug("transaction",
		zap.Stringer("outcome", receipt.Outcome),
		zap.Int("output", len(receipt.Output)),
		zap.Int("events", len(receipt.Events)))
	return receipt
}

// ContractAddress derives the address of a contract created by caller.
func ContractAddress(caller chain.Address, nonce uint64, code []byte) chain.Address {
	h := blake3.New()
	h.Write(caller[:])
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	h.Write(code)

	var addr chain.Address
	copy(addr[:], h.Sum(nil))
	return addr
}
