package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/intermode/nvs-hal/lib/engine"
	"github.com/intermode/nvs-hal/lib/engine/internal"
	gometrics "github.com/rcrowley/go-metrics"
	bolt "go.etcd.io/bbolt"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	fileExtension = ".nvs"
	openTimeout   = time.Second
)

var (
	bucketMeta       = []byte("meta")
	bucketNamespaces = []byte("namespaces")
	keyVersion       = []byte("version")
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures the flash engine.
type Options struct {
	// DataDir is the directory holding one file per partition (required)
	DataDir string
	// Partitions is the partition table (nil = engine.DefaultPartitionTable())
	Partitions []engine.PartitionSpec
	// FormatVersion is the format version written and expected (0 = engine.FormatVersion)
	FormatVersion uint32
	// MaxOpenHandles limits concurrently open handles (0 = unlimited)
	MaxOpenHandles int
	// NoSync skips fsync after every commit. Only useful for tests and benchmarks.
	NoSync bool
}

// NewFlashEngine creates a flash engine persisting every partition in its own
// bbolt file below opts.DataDir.
//
// Thread-safety: The returned engine is thread-safe.
func NewFlashEngine(opts Options) (engine.IEngine, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("flash engine requires a data directory")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", opts.DataDir, err)
	}

	registry := gometrics.NewRegistry()
	b := &backend{
		dataDir:  opts.DataDir,
		noSync:   opts.NoSync,
		registry: registry,
		mounts:   gometrics.GetOrRegisterTimer("mount", registry),
		applies:  gometrics.GetOrRegisterTimer("apply", registry),
		loads:    gometrics.GetOrRegisterTimer("load", registry),
		failures: gometrics.GetOrRegisterCounter("failures", registry),
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
	dataDir string
	noSync  bool

	registry gometrics.Registry
	mounts   gometrics.Timer
	applies  gometrics.Timer
	loads    gometrics.Timer
	failures gometrics.Counter
}

// Metadata is the backend specific part of engine.EngineInfo.
type Metadata struct {
	DataDir      string  `json:"data_dir"`
	Mounts       int64   `json:"mounts"`
	Commits      int64   `json:"commits"`
	Loads        int64   `json:"loads"`
	Failures     int64   `json:"failures"`
	CommitMeanUs float64 `json:"commit_mean_us"`
	CommitP99Us  float64 `json:"commit_p99_us"`
}

func (b *backend) Type() engine.Implementation {
	return engine.ImplFlash
}

func (b *backend) path(spec engine.PartitionSpec) string {
	return filepath.Join(b.dataDir, spec.Name+fileExtension)
}

func (b *backend) Mount(spec engine.PartitionSpec) (internal.IPartitionStore, error) {
	start := time.Now()
	defer b.mounts.UpdateSince(start)

	db, err := bolt.Open(b.path(spec), 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		b.failures.Inc(1)
		return nil, fmt.Errorf("could not open partition file: %w", err)
	}
	db.NoSync = b.noSync

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketNamespaces)
		return err
	}); err != nil {
		_ = db.Close()
		b.failures.Inc(1)
		return nil, fmt.Errorf("could not ensure root buckets exist: %w", err)
	}

	return &partitionStore{db: db, backend: b}, nil
}

func (b *backend) Wipe(spec engine.PartitionSpec) error {
	if err := os.Remove(b.path(spec)); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.failures.Inc(1)
		return fmt.Errorf("could not remove partition file: %w", err)
	}
	return nil
}

func (b *backend) Metadata() interface{} {
	applies := b.applies.Snapshot()
	return Metadata{
		DataDir:      b.dataDir,
		Mounts:       b.mounts.Count(),
		Commits:      applies.Count(),
		Loads:        b.loads.Count(),
		Failures:     b.failures.Count(),
		CommitMeanUs: applies.Mean() / float64(time.Microsecond),
		CommitP99Us:  applies.Percentile(0.99) / float64(time.Microsecond),
	}
}

// --------------------------------------------------------------------------
// Partition Store
// --------------------------------------------------------------------------

type partitionStore struct {
	db      *bolt.DB
	backend *backend
}

func (p *partitionStore) Version() (uint32, error) {
	var version uint32
	err := p.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyVersion)
		if raw == nil {
			return nil
		}
		if len(raw) != 4 {
			return fmt.Errorf("corrupt version marker (%d bytes)", len(raw))
		}
		version = binary.BigEndian.Uint32(raw)
		return nil
	})
	return version, err
}

func (p *partitionStore) Format(version uint32) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNamespaces); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(bucketNamespaces); err != nil {
			return err
		}
		raw := make([]byte, 4)
		binary.BigEndian.PutUint32(raw, version)
		return tx.Bucket(bucketMeta).Put(keyVersion, raw)
	})
}

func (p *partitionStore) Usage() (entries int, namespaces int, err error) {
	err = p.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNamespaces).ForEach(func(name, _ []byte) error {
			ns := tx.Bucket(bucketNamespaces).Bucket(name)
			if ns == nil {
				return fmt.Errorf("corrupt namespace %q", name)
			}
			namespaces++
			entries++
			return ns.ForEach(func(_, _ []byte) error {
				entries++
				return nil
			})
		})
	})
	return entries, namespaces, err
}

func (p *partitionStore) HasNamespace(namespace string) (bool, error) {
	var exists bool
	err := p.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketNamespaces).Bucket([]byte(namespace)) != nil
		return nil
	})
	return exists, err
}

func (p *partitionStore) CreateNamespace(namespace string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.Bucket(bucketNamespaces).CreateBucketIfNotExists([]byte(namespace))
		return err
	})
}

func (p *partitionStore) Load(namespace, key string) (item internal.Item, found bool, err error) {
	start := time.Now()
	defer p.backend.loads.UpdateSince(start)

	err = p.db.View(func(tx *bolt.Tx) error {
		ns := tx.Bucket(bucketNamespaces).Bucket([]byte(namespace))
		if ns == nil {
			return nil
		}
		raw := ns.Get([]byte(key))
		if raw == nil {
			return nil
		}
		decoded, err := internal.DecodeItem(raw)
		if err != nil {
			return fmt.Errorf("corrupt item %s/%s: %w", namespace, key, err)
		}
		item, found = decoded, true
		return nil
	})
	return item, found, err
}

func (p *partitionStore) Apply(namespace string, batch internal.Batch) error {
	start := time.Now()
	defer p.backend.applies.UpdateSince(start)

	err := p.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketNamespaces)
		name := []byte(namespace)

		if batch.Clear {
			if err := root.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
		}
		ns, err := root.CreateBucketIfNotExists(name)
		if err != nil {
			return err
		}
		for _, key := range batch.Deletes {
			if err := ns.Delete([]byte(key)); err != nil {
				return err
			}
		}
		for key, item := range batch.Puts {
			if err := ns.Put([]byte(key), item.Encode()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.backend.failures.Inc(1)
	}
	return err
}

func (p *partitionStore) List(namespace string) ([]engine.EntryInfo, error) {
	var entries []engine.EntryInfo
	err := p.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketNamespaces)
		collect := func(name []byte) error {
			ns := root.Bucket(name)
			if ns == nil {
				return nil
			}
			return ns.ForEach(func(k, v []byte) error {
				item, err := internal.DecodeItem(v)
				if err != nil {
					return fmt.Errorf("corrupt item %s/%s: %w", name, k, err)
				}
				entries = append(entries, engine.EntryInfo{Namespace: string(name), Key: string(k), Type: item.Type})
				return nil
			})
		}
		if namespace != "" {
			return collect([]byte(namespace))
		}
		return root.ForEach(func(name, _ []byte) error {
			return collect(name)
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

func (p *partitionStore) Close() error {
	return p.db.Close()
}
