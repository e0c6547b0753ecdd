package preview1

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wippyai/bcfs/wasi"
)

func environSizesGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	return writeSizes(mem, uint32(stack[0]), uint32(stack[1]), s.Env)
}

func environGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	return writeStrings(mem, uint32(stack[0]), uint32(stack[1]), s.Env)
}

func argsSizesGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	return writeSizes(mem, uint32(stack[0]), uint32(stack[1]), s.Args)
}

func argsGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	return writeStrings(mem, uint32(stack[0]), uint32(stack[1]), s.Args)
}

func writeSizes(mem api.Memory, resultCount, resultSize uint32, list []string) error {
	if err := writeU32(mem, resultCount, uint32(len(list))); err != nil {
		return err
	}
	return writeU32(mem, resultSize, stringsSize(list))
}

// procExit flushes the filesystem and terminates the module. Nothing after
// the call runs, so a flush error is kept on the session for the runtime.
func (h *host) procExit(ctx context.Context, mod api.Module, stack []uint64) {
	code := uint32(stack[0])

	if s := GetSession(ctx); s != nil {
		_ = s.Sync()
		s.exited = true
		s.code = code
	}
	h.metrics.observe(procExitName, wasi.ErrnoSuccess)

	_ = mod.CloseWithExitCode(ctx, code)
	panic(sys.NewExitError(code))
}
