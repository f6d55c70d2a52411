package memory

import (
	"sort"
	"sync"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/internal"
)

// Options configures the memory engine.
type Options struct {
	// Partitions is the partition table (nil = engine.DefaultPartitionTable())
	Partitions []engine.PartitionSpec
	// FormatVersion is the format version written and expected (0 = engine.FormatVersion)
	FormatVersion uint32
	// MaxOpenHandles limits concurrently open handles (0 = unlimited)
	MaxOpenHandles int
	// StoredVersions pre-formats partitions with the given format version, e.g. to
	// simulate a partition written by an older firmware
	StoredVersions map[string]uint32
}

// NewMemoryEngine creates an engine keeping all partitions in memory.
// Data survives Deinit and Init but not the engine itself.
//
// Thread-safety: The returned engine is thread-safe.
func NewMemoryEngine(opts *Options) (engine.IEngine, error) {
	if opts == nil {
		opts = &Options{}
	}

	b := &backend{partitions: make(map[string]*partition)}
	for name, version := range opts.StoredVersions {
		b.partitions[name] = &partition{version: version, namespaces: make(map[string]map[string]internal.Item)}
	}

	e, err := internal.NewEngine(b, &internal.Options{
		Partitions:     opts.Partitions,
		FormatVersion:  opts.FormatVersion,
		MaxOpenHandles: opts.MaxOpenHandles,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// --------------------------------------------------------------------------
// Backend
// --------------------------------------------------------------------------

type backend struct {
	mu         sync.Mutex
	partitions map[string]*partition
}

// Metadata is the backend specific part of engine.EngineInfo.
type Metadata struct {
	StoredPartitions []string `json:"stored_partitions"`
}

func (b *backend) Type() engine.Implementation {
	return engine.ImplMemory
}

func (b *backend) Mount(spec engine.PartitionSpec) (internal.IPartitionStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.partitions[spec.Name]
	if !ok {
		p = &partition{namespaces: make(map[string]map[string]internal.Item)}
		b.partitions[spec.Name] = p
	}
	return p, nil
}

func (b *backend) Wipe(spec engine.PartitionSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.partitions, spec.Name)
	return nil
}

func (b *backend) Metadata() interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.partitions))
	for name := range b.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return Metadata{StoredPartitions: names}
}

// --------------------------------------------------------------------------
// Partition
// --------------------------------------------------------------------------

// partition implements internal.IPartitionStore. Close is a no-op, the data stays
// in the backend until it is wiped.
type partition struct {
	mu         sync.RWMutex
	version    uint32
	namespaces map[string]map[string]internal.Item
}

func (p *partition) Version() (uint32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version, nil
}

func (p *partition) Format(version uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.version = version
	p.namespaces = make(map[string]map[string]internal.Item)
	return nil
}

func (p *partition) Usage() (entries int, namespaces int, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, items := range p.namespaces {
		entries += 1 + len(items)
	}
	return entries, len(p.namespaces), nil
}

func (p *partition) HasNamespace(namespace string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.namespaces[namespace]
	return ok, nil
}

func (p *partition) CreateNamespace(namespace string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.namespaces[namespace]; !ok {
		p.namespaces[namespace] = make(map[string]internal.Item)
	}
	return nil
}

func (p *partition) Load(namespace, key string) (internal.Item, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	item, ok := p.namespaces[namespace][key]
	return item, ok, nil
}

func (p *partition) Apply(namespace string, batch internal.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	items, ok := p.namespaces[namespace]
	if !ok || batch.Clear {
		items = make(map[string]internal.Item, len(batch.Puts))
		p.namespaces[namespace] = items
	}
	for _, key := range batch.Deletes {
		delete(items, key)
	}
	for key, item := range batch.Puts {
		items[key] = item
	}
	return nil
}

func (p *partition) List(namespace string) ([]engine.EntryInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var entries []engine.EntryInfo
	for ns, items := range p.namespaces {
		if namespace != "" && ns != namespace {
			continue
		}
		for key, item := range items {
			entries = append(entries, engine.EntryInfo{Namespace: ns, Key: key, Type: item.Type})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

func (p *partition) Close() error {
	return nil
}
