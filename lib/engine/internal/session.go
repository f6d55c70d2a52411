package internal

import (
	"sync"

	"github.com/intermode/nvs-hal/lib/engine"
)

// --------------------------------------------------------------------------
// Pending writes
// --------------------------------------------------------------------------

// pendingItem is a buffered write. A deleted pendingItem is a buffered EraseKey.
type pendingItem struct {
	item    Item
	deleted bool
	adds    bool // true if the key did not exist when the write was staged
}

// Batch is the set of buffered writes of a session, applied atomically on commit.
// Clear is applied first, then Deletes, then Puts.
type Batch struct {
	Clear   bool
	Deletes []string
	Puts    map[string]Item
	Added   map[string]bool // keys of Puts that create a new entry
}

// Empty reports whether the batch changes nothing.
func (b Batch) Empty() bool {
	return !b.Clear && len(b.Deletes) == 0 && len(b.Puts) == 0
}

// --------------------------------------------------------------------------
// Session (one open handle)
// --------------------------------------------------------------------------

// Session is the engine-side state of one open handle.
type Session struct {
	ID        engine.Handle
	Partition string
	Namespace string
	ReadOnly  bool

	mu       sync.Mutex
	clearAll bool
	pending  map[string]pendingItem
}

func newSession(id engine.Handle, partition, namespace string, readOnly bool) *Session {
	return &Session{
		ID:        id,
		Partition: partition,
		Namespace: namespace,
		ReadOnly:  readOnly,
		pending:   make(map[string]pendingItem),
	}
}

// lookup returns the buffered state of a key.
// found is true if the key has a buffered write or delete; cleared is true if an
// EraseAll is buffered, meaning committed items must be treated as absent.
func (s *Session) lookup(key string) (p pendingItem, found bool, cleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found = s.pending[key]
	return p, found, s.clearAll
}

// stage buffers a write. adds marks writes that create a new entry.
func (s *Session) stage(key string, item Item, adds bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[key]; ok && !prev.deleted {
		adds = prev.adds
	}
	s.pending[key] = pendingItem{item: item, adds: adds}
}

// stageDelete buffers an EraseKey.
func (s *Session) stageDelete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = pendingItem{deleted: true}
}

// stageClear buffers an EraseAll, dropping all writes buffered so far.
func (s *Session) stageClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAll = true
	s.pending = make(map[string]pendingItem)
}

// pendingAdds returns the number of new entries the buffered writes would create.
func (s *Session) pendingAdds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pending {
		if p.adds && !p.deleted {
			n++
		}
	}
	return n
}

// drain returns the buffered writes as a batch and resets the buffer.
func (s *Session) drain() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := Batch{
		Clear: s.clearAll,
		Puts:  make(map[string]Item, len(s.pending)),
		Added: make(map[string]bool),
	}
	for key, p := range s.pending {
		if p.deleted {
			batch.Deletes = append(batch.Deletes, key)
			continue
		}
		batch.Puts[key] = p.item
		if p.adds {
			batch.Added[key] = true
		}
	}

	s.clearAll = false
	s.pending = make(map[string]pendingItem)
	return batch
}

// restore puts a batch that could not be applied back into the buffer.
// Writes buffered after the drain take precedence.
func (s *Session) restore(batch Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clearAll {
		return
	}
	s.clearAll = batch.Clear
	for _, key := range batch.Deletes {
		if _, ok := s.pending[key]; !ok {
			s.pending[key] = pendingItem{deleted: true}
		}
	}
	for key, item := range batch.Puts {
		if _, ok := s.pending[key]; !ok {
			s.pending[key] = pendingItem{item: item, adds: batch.Added[key]}
		}
	}
}
