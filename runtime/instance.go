package runtime

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/bcfs"
	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi/preview1"
)

const startFunction = "_start"

// Execute runs code as the entry point of ptx and returns its exit code.
// A trap or a failed final flush is returned as an error.
func (r *Runtime) Execute(ctx context.Context, code []byte, ptx chain.PendingTransaction) (uint32, error) {
	m, err := r.Compile(ctx, code)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx, m, ptx)
}

// Run executes a compiled contract against ptx.
func (r *Runtime) Run(ctx context.Context, m *Module, ptx chain.PendingTransaction) (uint32, error) {
	s := preview1.NewSession(bcfs.New(ptx, r.chain), ptx)
	ctx = preview1.WithSession(ctx, s)
	log := Logger().With(zap.Stringer("contract", ptx.Address()))

	// Anonymous so concurrent transactions can instantiate the same module.
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	inst, err := r.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		if code, ok := exitCode(err); ok {
			return code, s.Sync()
		}
		return 0, errors.Instantiation(err)
	}
	defer inst.Close(ctx)

	var exit uint32
	if _, err := inst.ExportedFunction(startFunction).Call(ctx); err != nil {
		code, ok := exitCode(err)
		if !ok {
			log.Debug("contract trapped", zap.Error(err))
			return 0, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "contract trapped")
		}
		exit = code
	}

	if err := s.Sync(); err != nil {
		log.Warn("flush at exit failed", zap.Error(err))
		return exit, err
	}
	log.Debug("contract exited", zap.Uint32("code", exit))
	return exit, nil
}

func exitCode(err error) (uint32, bool) {
	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
