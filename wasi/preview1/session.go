package preview1

import (
	"context"

	"github.com/wippyai/bcfs/bcfs"
	"github.com/wippyai/bcfs/chain"
)

// Environment variables visible to the contract.
const (
	EnvAddress = "ADDRESS"
	EnvSender  = "SENDER"
	EnvValue   = "VALUE"
	EnvPayer   = "PAYER"
	// EnvAAD is the base64 additional authenticated data. Transactions
	// carry none, so it is always empty.
	EnvAAD = "AAD"
)

// Session is the per-transaction state behind the host functions.
type Session struct {
	FS   *bcfs.BCFS
	Env  []string
	Args []string

	synced  bool
	syncErr error
	exited  bool
	code    uint32
}

// NewSession binds fs to the environment of ptx. Addresses are lowercase
// hex without prefix and the value is decimal. Args are empty.
func NewSession(fs *bcfs.BCFS, ptx chain.PendingTransaction) *Session {
	return &Session{
		FS: fs,
		Env: []string{
			EnvAddress + "=" + ptx.Address().Hex(),
			EnvSender + "=" + ptx.Sender().Hex(),
			EnvValue + "=" + ptx.Value().String(),
			EnvPayer + "=" + ptx.Payer().Hex(),
			EnvAAD + "=",
		},
	}
}

// Sync flushes every open descriptor. Only the first call does any work;
// later calls return its result.
func (s *Session) Sync() error {
	if s.synced {
		return s.syncErr
	}
	s.synced = true
	s.syncErr = s.FS.Sync()
	return s.syncErr
}

// Exited reports whether the contract called proc_exit and with which code.
func (s *Session) Exited() (code uint32, ok bool) {
	return s.code, s.exited
}

type ctxKeySession struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

// GetSession returns the session carried by ctx, or nil.
func GetSession(ctx context.Context) *Session {
	if v := ctx.Value(ctxKeySession{}); v != nil {
		return v.(*Session)
	}
	return nil
}
