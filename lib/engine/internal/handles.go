package internal

import (
	"sync/atomic"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/puzpuzpuz/xsync/v3"
)

// HandleTable assigns engine handles and maps them to their sessions.
//
// Thread-safety: All methods are thread-safe and can be called concurrently.
type HandleTable struct {
	next     atomic.Uint32
	sessions *xsync.MapOf[engine.Handle, *Session]
}

// NewHandleTable creates an empty handle table. The first handle issued is 1.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		sessions: xsync.NewMapOf[engine.Handle, *Session](),
	}
}

// open registers a new session and returns it.
func (t *HandleTable) open(partition, namespace string, readOnly bool) *Session {
	id := engine.Handle(t.next.Add(1))
	session := newSession(id, partition, namespace, readOnly)
	t.sessions.Store(id, session)
	return session
}

// get returns the session of a handle.
func (t *HandleTable) get(handle engine.Handle) (*Session, bool) {
	return t.sessions.Load(handle)
}

// close removes a handle. Unknown handles are ignored.
func (t *HandleTable) close(handle engine.Handle) {
	t.sessions.Delete(handle)
}

// closePartition removes all handles of a partition and returns how many were removed.
func (t *HandleTable) closePartition(partition string) int {
	closed := 0
	t.sessions.Range(func(id engine.Handle, session *Session) bool {
		if session.Partition == partition {
			t.sessions.Delete(id)
			closed++
		}
		return true
	})
	return closed
}

// Len returns the number of open handles.
func (t *HandleTable) Len() int {
	return t.sessions.Size()
}
