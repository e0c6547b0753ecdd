package bcfs

import (
	"bytes"

	"github.com/wippyai/bcfs/chain"
)

// MaxFileSize is the largest size a regular or temporary file can grow to.
const MaxFileSize = 64 << 20

// node is the shared content of a file. Every handle on the same storage
// key points at the same node while at least one of them is open.
type node struct {
	key      string
	data     []byte
	dirty    bool
	persist  bool
	refs     int
	unlinked bool
}

func (n *node) truncate() {
	n.data = n.data[:0]
	n.dirty = true
}

// writeAt writes p at off, zero-filling any gap past the current end.
// Callers keep off+len(p) within MaxFileSize.
func (n *node) writeAt(p []byte, off uint64) {
	end := off + uint64(len(p))
	if end > uint64(len(n.data)) {
		if end > uint64(cap(n.data)) {
			grown := make([]byte, end, end+end/4)
			copy(grown, n.data)
			n.data = grown
		} else {
			prev := uint64(len(n.data))
			n.data = n.data[:end]
			if off > prev {
				clear(n.data[prev:off])
			}
		}
	}
	copy(n.data[off:], p)
	n.dirty = true
}

// readAt copies from off into the iovecs and returns the byte count.
func (n *node) readAt(iovs [][]byte, off uint64) int {
	total := 0
	for _, iov := range iovs {
		if off >= uint64(len(n.data)) {
			break
		}
		c := copy(iov, n.data[off:])
		total += c
		off += uint64(c)
	}
	return total
}

func (n *node) size() uint64 { return uint64(len(n.data)) }

// store caches the nodes of open regular files on top of the account's
// key/value storage.
type store struct {
	state chain.KVStoreMut
	nodes map[string]*node
}

func newStore(state chain.KVStoreMut) *store {
	return &store{
		state: state,
		nodes: make(map[string]*node),
	}
}

// lookup returns the cached node for key or loads it from storage. An absent
// key is a nonexistent file. Loaded nodes are cached only once retained.
func (s *store) lookup(key string) (*node, bool) {
	if n, ok := s.nodes[key]; ok {
		return n, true
	}
	v, ok := s.state.Get([]byte(key))
	if !ok {
		return nil, false
	}
	return &node{key: key, data: bytes.Clone(v), persist: true}, true
}

// create makes an empty file. It is written to storage on the first flush.
func (s *store) create(key string) *node {
	return &node{key: key, data: []byte{}, dirty: true, persist: true}
}

// retain records an open handle on n.
func (s *store) retain(n *node) {
	if n.persist && !n.unlinked {
		s.nodes[n.key] = n
	}
	n.refs++
}

// release drops a handle's reference and evicts the node when unused.
func (s *store) release(n *node) {
	if n.refs > 0 {
		n.refs--
	}
	if n.refs == 0 && n.persist && !n.unlinked {
		if cached, ok := s.nodes[n.key]; ok && cached == n {
			delete(s.nodes, n.key)
		}
	}
}

// remove deletes key from storage. Handles still open on the file keep an
// orphaned node that never persists again.
func (s *store) remove(key string) (existed bool, priorLen uint64) {
	n, ok := s.lookup(key)
	if !ok {
		return false, 0
	}
	priorLen = n.size()
	n.unlinked = true
	n.dirty = false
	delete(s.nodes, key)
	s.state.Remove([]byte(key))
	return true, priorLen
}

// persistNode writes a dirty node back to storage.
func (s *store) persistNode(n *node) {
	if !n.persist || n.unlinked || !n.dirty {
		return
	}
	s.state.Set([]byte(n.key), bytes.Clone(n.data))
	n.dirty = false
}

// append adds the iovecs at the end of the node and returns the byte count.
func (n *node) append(iovs [][]byte) int {
	total := 0
	for _, iov := range iovs {
		n.data = append(n.data, iov...)
		total += len(iov)
	}
	if total > 0 {
		n.dirty = true
	}
	return total
}
