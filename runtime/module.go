package runtime

import (
	"context"
	"encoding/hex"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi/preview1"
)

// Module is a compiled contract.
type Module struct {
	compiled wazero.CompiledModule
	hash     [32]byte
}

// Hash returns the BLAKE3 hash of the contract code.
func (m *Module) Hash() [32]byte {
	return m.hash
}

// Compile compiles code, checking that every import is served by the host
// module. Compiled modules are cached by code hash.
func (r *Runtime) Compile(ctx context.Context, code []byte) (*Module, error) {
	hash := blake3.Sum256(code)

	r.mu.Lock()
	m, ok := r.modules[hash]
	r.mu.Unlock()
	if ok {
		return m, nil
	}

	compiled, err := r.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, errors.Load("compile contract", err)
	}
	if err := r.checkImports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	if _, ok := compiled.ExportedFunctions()[startFunction]; !ok {
		_ = compiled.Close(ctx)
		return nil, errors.Load("contract does not export "+startFunction, nil)
	}

	m = &Module{compiled: compiled, hash: hash}

	r.mu.Lock()
	if cached, ok := r.modules[hash]; ok {
		r.mu.Unlock()
		_ = compiled.Close(ctx)
		return cached, nil
	}
	r.modules[hash] = m
	r.mu.Unlock()

	Logger().Debug("compiled contract",
		zap.String("hash", hex.EncodeToString(hash[:8])),
		zap.Int("size", len(code)))
	return m, nil
}

// checkImports reports every function import the host module does not
// export, or exports with a different signature.
func (r *Runtime) checkImports(compiled wazero.CompiledModule) error {
	exports := r.host.ExportedFunctionDefinitions()

	var missing []string
	for _, fn := range compiled.ImportedFunctions() {
		modName, name, _ := fn.Import()
		if modName == preview1.ModuleName {
			if def, ok := exports[name]; ok && slices.Equal(def.ParamTypes(), fn.ParamTypes()) &&
				slices.Equal(def.ResultTypes(), fn.ResultTypes()) {
				continue
			}
		}
		missing = append(missing, modName+"#"+name)
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}
