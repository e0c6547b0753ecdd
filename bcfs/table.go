package bcfs

// Reserved descriptor numbers present in every fresh instance.
const (
	StdinFd    uint32 = 0
	StdoutFd   uint32 = 1
	StderrFd   uint32 = 2
	ChainDirFd uint32 = 3
	HomeDirFd  uint32 = 4

	// firstFreeFd is the lowest number handed out by allocate.
	firstFreeFd uint32 = 5
)

// table maps descriptor numbers to open handles. Entries are indexed by fd;
// a nil entry is a free slot.
type table struct {
	entries []*handle
	open    int
}

func newTable() *table {
	return &table{
		entries: make([]*handle, firstFreeFd, 16),
	}
}

// allocate stores h under the lowest free descriptor at or above
// firstFreeFd.
func (t *table) allocate(h *handle) uint32 {
	for fd := firstFreeFd; fd < uint32(len(t.entries)); fd++ {
		if t.entries[fd] == nil {
			t.entries[fd] = h
			t.open++
			return fd
		}
	}
	t.entries = append(t.entries, h)
	t.open++
	return uint32(len(t.entries) - 1)
}

// install places h at a reserved descriptor.
func (t *table) install(fd uint32, h *handle) {
	for uint32(len(t.entries)) <= fd {
		t.entries = append(t.entries, nil)
	}
	if t.entries[fd] == nil {
		t.open++
	}
	t.entries[fd] = h
}

// get retrieves the handle open at fd.
func (t *table) get(fd uint32) (*handle, bool) {
	if fd >= uint32(len(t.entries)) {
		return nil, false
	}
	h := t.entries[fd]
	return h, h != nil
}

// remove frees fd and returns the handle that was open there.
func (t *table) remove(fd uint32) (*handle, bool) {
	h, ok := t.get(fd)
	if !ok {
		return nil, false
	}
	t.entries[fd] = nil
	t.open--
	return h, true
}

// replace stores h at an open descriptor, returning the previous handle.
func (t *table) replace(fd uint32, h *handle) (*handle, bool) {
	prev, ok := t.get(fd)
	if !ok {
		return nil, false
	}
	t.entries[fd] = h
	return prev, true
}

// len returns the number of open descriptors.
func (t *table) len() int {
	return t.open
}

// each visits open descriptors in ascending order until fn returns false.
func (t *table) each(fn func(uint32, *handle) bool) {
	for fd, h := range t.entries {
		if h == nil {
			continue
		}
		if !fn(uint32(fd), h) {
			return
		}
	}
}
