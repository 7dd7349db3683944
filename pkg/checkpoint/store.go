package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/clusterfs/plockd/internal/bytesize"
	"github.com/clusterfs/plockd/internal/logger"
	"github.com/clusterfs/plockd/internal/telemetry"
	"github.com/clusterfs/plockd/pkg/rangelock"
	badger "github.com/dgraph-io/badger/v4"
)

// defaultMaxSectionSize bounds a single resource's packed section
// before it is trusted and decoded; a section larger than this points
// at corruption or a foreign key sharing the keyPrefix namespace,
// never a legitimately large resource (at 33 bytes a record, a
// resource this large would mean over a hundred thousand held locks
// and waiters on one inode).
const defaultMaxSectionSize = 4 * bytesize.MiB

// keyPrefix namespaces checkpoint keys within a Badger instance that
// may be shared with other subsystems, mirroring the original's
// per-group checkpoint naming ("gfsplock.<group>").
const keyPrefix = "gfsplock."

// Store persists and restores MountGroup snapshots in an embedded
// BadgerDB instance. One Store may back every mount group plockd
// manages; sections are keyed by group name and resource number so
// groups never collide.
type Store struct {
	db             *badger.DB
	maxSectionSize bytesize.ByteSize
}

// Open opens (or creates) a Badger-backed checkpoint store at dir. Pass
// an empty dir with badger.DefaultOptions("").WithInMemory(true) via
// OpenWithOptions for tests.
func Open(dir string) (*Store, error) {
	return OpenWithOptions(badger.DefaultOptions(dir))
}

// OpenWithOptions opens a Store with caller-supplied Badger options,
// primarily so tests can pass an in-memory configuration.
func OpenWithOptions(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open badger: %w", err)
	}
	return &Store{db: db, maxSectionSize: defaultMaxSectionSize}, nil
}

// Close closes the underlying Badger instance.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetMaxSectionSize overrides the per-resource section size bound
// Retrieve enforces, letting deployments with config.CheckpointConfig
// tune it away from defaultMaxSectionSize.
func (s *Store) SetMaxSectionSize(max bytesize.ByteSize) {
	s.maxSectionSize = max
}

func resourceKey(group string, number uint64) []byte {
	return []byte(keyPrefix + group + ".r." + strconv.FormatUint(number, 10))
}

func timeKey(group string) []byte {
	return []byte(keyPrefix + group + ".last_checkpoint_time")
}

// Store writes every non-empty resource of g as its own section, and a
// last_checkpoint_time marker, mirroring the original's store_plocks:
// skip cleanly if there is nothing to write, write every section, and
// retry transient errors with an unbounded sleep loop rather than
// giving up (spec.md §4.5/§7's TRY_AGAIN policy).
//
// The ctx is honored between retries only — a single Badger
// transaction is never interrupted mid-write — so callers that need a
// hard deadline should still set one on ctx.
func (s *Store) Store(ctx context.Context, g *rangelock.MountGroup) error {
	// No change to plock state since the last checkpoint was created —
	// mirrors the original's store_plocks "ckpt uptodate" skip.
	if g.LastCheckpointTime.After(g.LastPlockTime) {
		return nil
	}

	resources := g.Resources()
	if len(resources) == 0 {
		return nil
	}

	ctx, span := telemetry.StartCheckpointSpan(ctx, telemetry.SpanCheckpointStore, g.Name, telemetry.SectionCount(len(resources)))
	defer span.End()

	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, num := range resources {
				r, ok := g.Resource(num)
				if !ok || r.Empty() {
					continue
				}
				section := packResource(r)
				if err := txn.Set(resourceKey(g.Name, num), section); err != nil {
					return err
				}
			}
			now := time.Now().UTC().Format(time.RFC3339Nano)
			return txn.Set(timeKey(g.Name), []byte(now))
		})
		if err == nil {
			g.LastCheckpointTime = time.Now()
			return nil
		}
		if !isTransient(err) {
			logger.Error("checkpoint store failed", logger.Group(g.Name), logger.Err(err))
			telemetry.RecordError(ctx, err)
			return fmt.Errorf("checkpoint: store %s: %w", g.Name, err)
		}

		logger.Warn("checkpoint store hit a transient error, retrying", logger.Group(g.Name), logger.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Retrieve rebuilds a MountGroup from its most recent checkpoint,
// mirroring the original's retrieve_plocks. A group with no stored
// sections returns an empty, valid MountGroup — restoring from a
// checkpoint that was never written is not an error.
func (s *Store) Retrieve(ctx context.Context, name string) (*rangelock.MountGroup, error) {
	g := rangelock.NewMountGroup(name)
	prefix := []byte(keyPrefix + name + ".r.")

	ctx, span := telemetry.StartCheckpointSpan(ctx, telemetry.SpanCheckpointRetrieve, name)
	defer span.End()

	for {
		err := s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				numStr := string(item.Key()[len(prefix):])
				number, err := strconv.ParseUint(numStr, 10, 64)
				if err != nil {
					return fmt.Errorf("checkpoint: malformed resource key %q: %w", item.Key(), err)
				}

				if size := item.ValueSize(); bytesize.ByteSize(size) > s.maxSectionSize {
					return fmt.Errorf("checkpoint: resource %d section size %d exceeds bound %s", number, size, s.maxSectionSize)
				}
				section, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				records, err := unpackResource(section)
				if err != nil {
					return fmt.Errorf("checkpoint: resource %d: %w", number, err)
				}
				restoreResource(g, number, records)
			}
			return nil
		})
		if err == nil {
			return g, nil
		}
		if !isTransient(err) {
			logger.Error("checkpoint retrieve failed", logger.Group(name), logger.Err(err))
			telemetry.RecordError(ctx, err)
			return nil, fmt.Errorf("checkpoint: retrieve %s: %w", name, err)
		}

		logger.Warn("checkpoint retrieve hit a transient error, retrying", logger.Group(name), logger.Err(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// restoreResource re-hydrates one resource's locks and waiters from its
// packed records, preserving the locks-then-waiters ordering
// packResource produced them in.
func restoreResource(g *rangelock.MountGroup, number uint64, records []PackedPlock) {
	if len(records) == 0 {
		return
	}
	r := g.GetOrCreateResource(number)
	for _, rec := range records {
		identity := rangelock.Identity{NodeID: rec.NodeID, Owner: rec.Owner}
		if rec.IsWaiter {
			r.Waiters = append(r.Waiters, &rangelock.Waiter{Request: rangelock.LockRequest{
				Identity: identity, Number: number,
				Start: rec.Start, End: rec.End, Exclusive: rec.Ex, PID: rec.PID, Wait: true,
			}})
			continue
		}
		r.Locks = append(r.Locks, &rangelock.PosixLock{
			Identity: identity, Start: rec.Start, End: rec.End, Exclusive: rec.Ex, PID: rec.PID,
		})
	}
}

// isTransient reports whether err is the kind of busy/contention error
// the original's TRY_AGAIN policy is meant for, as opposed to a
// permanent failure that should abort the checkpoint.
func isTransient(err error) bool {
	return errors.Is(err, badger.ErrConflict) || errors.Is(err, badger.ErrBlockedWrites)
}
