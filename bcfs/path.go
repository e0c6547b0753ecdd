package bcfs

import (
	"strings"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
)

const (
	// LogName is the chain-root entry that receives event records.
	LogName = "log"
	// BalanceName is the per-account balance file.
	BalanceName = "balance"
	// BytecodeName is the per-account bytecode file.
	BytecodeName = "bytecode"
)

// Path is a canonical location relative to the chain root. It never contains
// "." or ".." segments.
type Path struct {
	chain string
	segs  []string
}

// Segments returns the path segments below the chain root.
func (p Path) Segments() []string { return p.segs }

// Depth is the number of segments below the chain root.
func (p Path) Depth() int { return len(p.segs) }

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("/opt/")
	b.WriteString(p.chain)
	for _, s := range p.segs {
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

func (p Path) child(segs ...string) Path {
	out := make([]string, 0, len(p.segs)+len(segs))
	out = append(out, p.segs...)
	out = append(out, segs...)
	return Path{chain: p.chain, segs: out}
}

// entry classifies a resolved path.
type entry uint8

const (
	entryChainRoot entry = iota
	entryAccountDir
	entryLog
	entryBalance
	entryBytecode
	entryRegular
)

func (e entry) isDir() bool {
	return e == entryChainRoot || e == entryAccountDir
}

func (e entry) isSpecial() bool {
	return e == entryLog || e == entryBalance || e == entryBytecode
}

// target is a resolved and classified path.
type target struct {
	path  Path
	floor int
	entry entry
	owner chain.Address
}

// storageKey is the home-relative key backing a regular file.
func (t target) storageKey() string {
	return strings.Join(t.path.segs[1:], "/")
}

// resolve canonicalizes path against the directory open at base.
func (fs *BCFS) resolve(phase errors.Phase, base uint32, path string) (target, error) {
	h, ok := fs.table.get(base)
	if !ok || h.kind != KindDirectory {
		return target{}, errors.BadDescriptor(phase, base)
	}
	if path == "" {
		return target{}, errors.InvalidArgument(phase, "empty path")
	}

	var segs []string
	floor := h.floor
	if strings.HasPrefix(path, "/") {
		floor = 0
	} else {
		segs = append(segs, h.path.segs...)
	}

	for _, s := range strings.Split(path, "/") {
		switch s {
		case "", ".":
		case "..":
			if len(segs) <= floor {
				return target{}, errors.NotFound(phase, path)
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, s)
		}
	}

	t := target{path: Path{chain: fs.chain, segs: segs}, floor: floor}
	if err := fs.classify(&t); err != nil {
		return target{}, errors.New(phase, errors.KindNotFound).
			Path(t.path.String()).
			Cause(err).
			Build()
	}
	return t, nil
}

func (fs *BCFS) classify(t *target) error {
	segs := t.path.segs
	if len(segs) == 0 {
		t.entry = entryChainRoot
		return nil
	}

	if segs[0] == LogName {
		if len(segs) > 1 {
			return errors.NotFound(errors.PhaseResolve, t.path.String())
		}
		t.entry = entryLog
		return nil
	}

	addr, err := chain.ParseAddress(segs[0])
	if err != nil || addr.Hex() != segs[0] {
		return errors.NotFound(errors.PhaseResolve, segs[0])
	}
	if _, ok := fs.ptx.AccountMetaAt(addr); !ok {
		return errors.NotFound(errors.PhaseResolve, segs[0])
	}
	t.owner = addr

	switch {
	case len(segs) == 1:
		t.entry = entryAccountDir
	case len(segs) == 2 && segs[1] == BalanceName:
		t.entry = entryBalance
	case len(segs) == 2 && segs[1] == BytecodeName:
		t.entry = entryBytecode
	case addr != fs.home:
		return errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(t.path.String()).
			Detail("foreign accounts expose only %s and %s", BalanceName, BytecodeName).
			Build()
	default:
		t.entry = entryRegular
	}
	return nil
}
