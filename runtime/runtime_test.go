package runtime

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/memchain"
	"github.com/wippyai/bcfs/wasi"
)

const (
	chainName = "testchain"
	baseGas   = 2100
)

var caller = chain.Address{0x01, 0x01, 0x01}

// Memory layout of the test contracts.
const (
	iovAddr     = 0  // one iovec {msgAddr, len(msg)}
	nwrittenPtr = 8  // fd_write result
	fdPtr       = 12 // path_open result
	msgAddr     = 32
	pathAddr    = 128
)

// Encoding helpers for hand-assembled modules.

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	return append(uleb(uint64(len(items))), bytes.Join(items, nil)...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func section(id byte, body []byte) []byte {
	return append(append([]byte{id}, uleb(uint64(len(body)))...), body...)
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

const (
	i32 = 0x7f
	i64 = 0x7e
)

func functype(params, results []byte) []byte {
	return cat([]byte{0x60}, uleb(uint64(len(params))), params, uleb(uint64(len(results))), results)
}

func i32c(v int32) []byte { return cat([]byte{0x41}, sleb(int64(v))) }
func i64c(v int64) []byte { return cat([]byte{0x42}, sleb(v)) }
func call(idx uint32) []byte { return cat([]byte{0x10}, uleb(uint64(idx))) }

var (
	drop    = []byte{0x1a}
	i32load = []byte{0x28, 0x02, 0x00}
	end     = []byte{0x0b}
)

type wasmImport struct {
	module, name string
	typ          uint32
}

// Function indices of the contract imports, in the order of contractImports.
const (
	fnFdWrite = iota
	fnPathOpen
	fnProcExit
)

var contractTypes = [][]byte{
	functype([]byte{i32, i32, i32, i32}, []byte{i32}),
	functype([]byte{i32, i32, i32, i32, i32, i64, i64, i32, i32}, []byte{i32}),
	functype([]byte{i32}, nil),
	functype(nil, nil),
}

var contractImports = []wasmImport{
	{"wasi_snapshot_preview1", "fd_write", 0},
	{"wasi_snapshot_preview1", "path_open", 1},
	{"wasi_snapshot_preview1", "proc_exit", 2},
}

// contract assembles a module with one page of memory holding msg and
// path at fixed addresses, and a _start function running body.
func contract(imports []wasmImport, msg, path string, body ...[]byte) []byte {
	importEntries := make([][]byte, len(imports))
	for i, imp := range imports {
		importEntries[i] = cat(name(imp.module), name(imp.name), []byte{0x00}, uleb(uint64(imp.typ)))
	}

	code := cat(append(body, end)...)
	fn := cat([]byte{0x00}, code)

	iov := make([]byte, 8)
	iov[0] = msgAddr
	iov[4] = byte(len(msg))
	data := func(addr int32, p []byte) []byte {
		return cat([]byte{0x00}, i32c(addr), end, uleb(uint64(len(p))), p)
	}

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, vec(contractTypes...)),
		section(2, vec(importEntries...)),
		section(3, vec(uleb(3))),
		section(5, vec([]byte{0x00, 0x01})),
		section(7, vec(
			cat(name("memory"), []byte{0x02, 0x00}),
			cat(name("_start"), []byte{0x00}, uleb(uint64(len(imports)))),
		)),
		section(10, vec(cat(uleb(uint64(len(fn))), fn))),
		section(11, vec(
			data(iovAddr, iov),
			data(msgAddr, []byte(msg)),
			data(pathAddr, []byte(path)),
		)),
	)
}

// writeMsg writes the message to fd.
func writeMsg(fd []byte) []byte {
	return cat(fd, i32c(iovAddr), i32c(1), i32c(nwrittenPtr), call(fnFdWrite), drop)
}

// openPath opens the path relative to the home directory with oflags and
// stores the new descriptor at fdPtr.
func openPath(path string, oflags wasi.OpenFlags) []byte {
	return cat(
		i32c(4), i32c(0), i32c(pathAddr), i32c(int32(len(path))), i32c(int32(oflags)),
		i64c(0), i64c(0), i32c(0), i32c(fdPtr),
		call(fnPathOpen), drop,
	)
}

func exit(code int32) []byte {
	return cat(i32c(code), call(fnProcExit))
}

// storeContract saves the message under "greeting" and returns it as output.
func storeContract(msg string) []byte {
	const path = "greeting"
	return contract(contractImports, msg, path,
		openPath(path, wasi.OFlagCreate|wasi.OFlagTruncate),
		writeMsg(cat(i32c(fdPtr), i32load)),
		writeMsg(i32c(1)),
	)
}

// abortContract writes the message to stderr and exits with code.
func abortContract(msg string, code int32) []byte {
	return contract(contractImports, msg, "",
		writeMsg(i32c(2)),
		exit(code),
	)
}

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, WithChainName(chainName), WithInterpreter())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func newChain(rt *Runtime) *memchain.Memchain {
	genesis := memchain.State{
		caller: {Balance: chain.NewBalance(1_000_000)},
	}
	return memchain.New(chainName, genesis, baseGas, memchain.WithExecutor(rt))
}

func deploy(t *testing.T, bc *memchain.Memchain, code []byte) chain.Address {
	t.Helper()
	r := bc.LastBlock().Create(context.Background(), caller, chain.NewBalance(0), code, baseGas, 0)
	if r.Outcome != chain.OutcomeSuccess {
		t.Fatalf("deploy outcome = %s", r.Outcome)
	}
	return r.Contract
}

func TestExecute_StoresAndReturns(t *testing.T) {
	rt := newRuntime(t)
	bc := newChain(rt)
	addr := deploy(t, bc, storeContract("hello"))

	r := bc.LastBlock().Transact(context.Background(), caller, addr, caller, chain.NewBalance(5), nil, baseGas, 0)
	if r.Outcome != chain.OutcomeSuccess {
		t.Fatalf("outcome = %s, output %q", r.Outcome, r.Output)
	}
	if string(r.Output) != "hello" {
		t.Fatalf("output = %q, want hello", r.Output)
	}

	acct, ok := bc.LastBlock().Account(addr)
	if !ok {
		t.Fatal("contract account missing")
	}
	if got := string(acct.Storage["greeting"]); got != "hello" {
		t.Fatalf("storage greeting = %q", got)
	}
	if acct.Balance != chain.NewBalance(5) {
		t.Fatalf("balance = %s, want 5", acct.Balance)
	}
}

func TestExecute_Abort(t *testing.T) {
	rt := newRuntime(t)
	bc := newChain(rt)
	addr := deploy(t, bc, abortContract("oops", 3))

	r := bc.LastBlock().Transact(context.Background(), caller, addr, caller, chain.NewBalance(5), nil, baseGas, 0)
	if r.Outcome != chain.OutcomeAborted {
		t.Fatalf("outcome = %s, want aborted", r.Outcome)
	}
	if string(r.Output) != "oops" {
		t.Fatalf("output = %q, want oops", r.Output)
	}
	acct, _ := bc.LastBlock().Account(addr)
	if acct.Balance != (chain.Balance{}) {
		t.Fatalf("value kept after abort: %s", acct.Balance)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	rt := newRuntime(t)
	ptx := &stubTx{addr: chain.Address{0xaa}}

	code, err := rt.Execute(context.Background(), abortContract("x", 7), ptx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if code != 7 {
		t.Fatalf("exit code = %d, want 7", code)
	}
	if string(ptx.err) != "x" {
		t.Fatalf("stderr = %q", ptx.err)
	}
}

func TestCompile_Cache(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()
	code := storeContract("cached")

	m1, err := rt.Compile(ctx, code)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m2, err := rt.Compile(ctx, bytes.Clone(code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if m1 != m2 {
		t.Fatal("second compile did not hit the cache")
	}
	if m1.Hash() == [32]byte{} {
		t.Fatal("zero hash")
	}
}

func TestCompile_MissingImports(t *testing.T) {
	rt := newRuntime(t)
	imports := []wasmImport{
		{"wasi_snapshot_preview1", "fd_write", 0},
		{"env", "__wasi_blockchain_transact", 0},
		{"wasi_snapshot_preview1", "proc_exit", 0}, // wrong signature
	}
	code := contract(imports, "m", "", i32c(0), drop)

	_, err := rt.Compile(context.Background(), code)
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingImportsError", err)
	}
	if len(missing.Imports) != 2 {
		t.Fatalf("missing = %+v, want 2 entries", missing.Imports)
	}
	if missing.Imports[0].Module != "env" || missing.Imports[0].Function != "__wasi_blockchain_transact" {
		t.Errorf("first missing = %+v", missing.Imports[0])
	}
	if missing.Imports[1].Function != "proc_exit" {
		t.Errorf("second missing = %+v", missing.Imports[1])
	}
}

func TestCompile_Invalid(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.Compile(context.Background(), []byte("\x00asm not wasm"))
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Fatalf("err = %v, want invalid_data", err)
	}
}

func TestCompile_NoStart(t *testing.T) {
	rt := newRuntime(t)
	// Only a memory section.
	code := cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(5, vec([]byte{0x00, 0x01})),
	)
	_, err := rt.Compile(context.Background(), code)
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Fatalf("err = %v, want invalid_data", err)
	}
}

func TestExecute_Trap(t *testing.T) {
	rt := newRuntime(t)
	code := contract(contractImports, "m", "", []byte{0x00}) // unreachable
	_, err := rt.Execute(context.Background(), code, &stubTx{})
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Fatalf("err = %v, want invalid_data", err)
	}
}

// stubTx is a minimal pending transaction with empty storage.
type stubTx struct {
	addr chain.Address
	ret  []byte
	err  []byte
	kv   map[string][]byte
}

func (s *stubTx) Address() chain.Address            { return s.addr }
func (s *stubTx) Sender() chain.Address             { return caller }
func (s *stubTx) Payer() chain.Address              { return caller }
func (s *stubTx) Value() chain.Balance              { return chain.Balance{} }
func (s *stubTx) Input() []byte                     { return nil }
func (s *stubTx) Ret(data []byte)                   { s.ret = bytes.Clone(data) }
func (s *stubTx) Err(data []byte)                   { s.err = bytes.Clone(data) }
func (s *stubTx) Emit(topics [][]byte, data []byte) {}
func (s *stubTx) State() chain.KVStoreMut           { return s }
func (s *stubTx) CodeAt(chain.Address) ([]byte, bool) {
	return nil, false
}
func (s *stubTx) AccountMetaAt(addr chain.Address) (chain.AccountMeta, bool) {
	return chain.AccountMeta{}, addr == s.addr
}

func (s *stubTx) Contains(key []byte) bool {
	_, ok := s.kv[string(key)]
	return ok
}

func (s *stubTx) Get(key []byte) ([]byte, bool) {
	v, ok := s.kv[string(key)]
	return v, ok
}

func (s *stubTx) Set(key, value []byte) {
	if s.kv == nil {
		s.kv = make(map[string][]byte)
	}
	s.kv[string(key)] = value
}

func (s *stubTx) Remove(key []byte) {
	delete(s.kv, string(key))
}
