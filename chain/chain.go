package chain

// TopicSize is the width of an event topic. Longer topics are truncated and
// shorter ones zero-padded by the ledger.
const TopicSize = 32

// Topic is an indexed event topic.
type Topic [TopicSize]byte

// NewTopic truncates or zero-pads t to TopicSize.
func NewTopic(t []byte) Topic {
	var topic Topic
	copy(topic[:], t)
	return topic
}

// Event is a log entry emitted by a transaction.
type Event struct {
	Emitter Address `cbor:"emitter"`
	Topics  []Topic `cbor:"topics"`
	Data    []byte  `cbor:"data"`
}

// AccountMeta is the account metadata visible to contracts.
type AccountMeta struct {
	Balance Balance
}

// KVStore is read access to an account's persistent storage.
type KVStore interface {
	Contains(key []byte) bool
	Get(key []byte) ([]byte, bool)
}

// KVStoreMut adds mutation to KVStore.
type KVStoreMut interface {
	KVStore
	Set(key, value []byte)
	Remove(key []byte)
}

// PendingTransaction is the in-flight transaction a contract runs in.
type PendingTransaction interface {
	// Address returns the callee, whose storage State exposes.
	Address() Address
	Sender() Address
	// Payer returns the account charged for gas.
	Payer() Address
	Value() Balance
	Input() []byte

	// Ret sets the transaction output.
	Ret(data []byte)
	// Err sets the transaction output and marks the transaction aborted.
	Err(data []byte)
	// Emit appends an event emitted by the callee.
	Emit(topics [][]byte, data []byte)

	State() KVStoreMut
	CodeAt(addr Address) ([]byte, bool)
	AccountMetaAt(addr Address) (AccountMeta, bool)
}

// Outcome is the result of a transaction.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeInsufficientFunds
	OutcomeInsufficientGas
	OutcomeInvalidInput
	OutcomeInvalidCallee
	OutcomeAborted
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	case OutcomeInsufficientGas:
		return "insufficient_gas"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeInvalidCallee:
		return "invalid_callee"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Reverted reports whether state changes of a transaction with this outcome
// are discarded.
func (o Outcome) Reverted() bool {
	return o != OutcomeSuccess
}
