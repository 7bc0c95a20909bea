package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrFull     = errors.New("store: kind is at capacity")
	ErrConflict = errors.New("store: conflicting concurrent write")
)

// Store is a single-writer, typed key/value layer over one generation-
// numbered leveldb keyspace, per spec §4.4. Staged Put/Delete calls are
// written together with the incremented generation counter (persisted as
// its own leveldb key) in a single leveldb batch, so a commit lands
// all-or-nothing. Records are kept in one copy only; there are no separate
// active and standby regions.
type Store struct {
	mu            sync.Mutex
	db            *leveldb.DB
	generation    uint64
	staged        *leveldb.Batch
	pendingIndex  map[Kind][]string // index view reflecting not-yet-committed Put/Delete calls
	pendingRecord map[string][]byte // nil value marks a staged Delete (read-your-writes for Get)
}

const generationKey = "__generation__"

// Open opens (or creates) the store backed by the leveldb database at path.
// Pass an empty path to use an in-memory store (tests, the host simulation).
func Open(path string) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, &opt.Options{})
	}
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	s := &Store{
		db:            db,
		staged:        new(leveldb.Batch),
		pendingIndex:  make(map[Kind][]string),
		pendingRecord: make(map[string][]byte),
	}
	if raw, err := db.Get([]byte(generationKey), nil); err == nil {
		s.generation = binary.BigEndian.Uint64(raw)
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		db.Close()
		return nil, fmt.Errorf("store: reading generation: %w", err)
	}
	return s, nil
}

// Close releases the underlying leveldb handle.
func (s *Store) Close() error { return s.db.Close() }

func recordKey(kind Kind, key string) []byte {
	return []byte(fmt.Sprintf("rec/%s/%s", kind, key))
}

func indexKey(kind Kind) []byte {
	return []byte(fmt.Sprintf("idx/%s", kind))
}

// Get decodes the record stored under (kind, key) into out, which must be a
// pointer to one of the Kind* record types.
func (s *Store) Get(kind Kind, key string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cacheKey := string(recordKey(kind, key))
	raw, pending := s.pendingRecord[cacheKey]
	if pending {
		if raw == nil {
			return ErrNotFound
		}
	} else {
		var err error
		raw, err = s.db.Get(recordKey(kind, key), nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("store: get: %w", err)
		}
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

// Put stages a write of record under (kind, key). The write is not durable
// until Commit (or a subsequent SaveLater flush). Multi-entry kinds
// (WalletMeta, DeviceShare, Keystore) are capped at MaxEntries distinct keys;
// replacing an existing key never counts against the cap.
func (s *Store) Put(kind Kind, key string, record interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind != KindDeviceConfig {
		idx, err := s.readIndex(kind)
		if err != nil {
			return err
		}
		exists := false
		for _, k := range idx {
			if k == key {
				exists = true
				break
			}
		}
		if !exists && len(idx) >= MaxEntries {
			return ErrFull
		}
	}

	raw, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	s.staged.Put(recordKey(kind, key), raw)
	s.pendingRecord[string(recordKey(kind, key))] = raw
	s.stageIndexAdd(kind, key)
	return nil
}

// Delete stages removal of (kind, key). Combine with another Delete in the
// same Commit to satisfy spec §4.4's "deleting a wallet removes both its
// WalletMeta and DeviceShare under one commit".
func (s *Store) Delete(kind Kind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.Delete(recordKey(kind, key))
	s.pendingRecord[string(recordKey(kind, key))] = nil
	s.stageIndexRemove(kind, key)
}

// Iterate lists every key currently stored under kind.
func (s *Store) Iterate(kind Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex(kind)
}

// Commit fsyncs every staged Put/Delete in one atomic leveldb batch and
// bumps the generation counter, per spec §4.4's double-buffered,
// generation-switch atomicity invariant. leveldb's own WAL+batch commit
// gives the underlying all-or-nothing write; the generation counter is the
// outward sign that a full generation switch succeeded.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(true)
}

// SaveLater stages the write without forcing an fsync, deferring durability
// to a later batched Commit (spec §4.4: "save_later: defers for batch
// commit").
func (s *Store) SaveLater() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(false)
}

func (s *Store) commitLocked(sync bool) error {
	if s.staged.Len() == 0 {
		return nil
	}
	next := s.generation + 1
	var genBuf [8]byte
	binary.BigEndian.PutUint64(genBuf[:], next)
	s.staged.Put([]byte(generationKey), genBuf[:])

	if err := s.db.Write(s.staged, &opt.WriteOptions{Sync: sync}); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.generation = next
	s.staged = new(leveldb.Batch)
	s.pendingIndex = make(map[Kind][]string)
	s.pendingRecord = make(map[string][]byte)
	return nil
}

// Generation returns the monotonically increasing counter bumped on every
// successful commit.
func (s *Store) Generation() uint64 { return s.generation }

// readIndex returns the current key list for kind, reflecting any Put/Delete
// already staged (but not yet committed) in this Store handle.
func (s *Store) readIndex(kind Kind) ([]string, error) {
	if idx, ok := s.pendingIndex[kind]; ok {
		return idx, nil
	}
	raw, err := s.db.Get(indexKey(kind), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: index: %w", err)
	}
	var keys []string
	if err := rlp.DecodeBytes(raw, &keys); err != nil {
		return nil, fmt.Errorf("store: index decode: %w", err)
	}
	return keys, nil
}

func (s *Store) stageIndexAdd(kind Kind, key string) {
	idx, _ := s.readIndex(kind)
	for _, k := range idx {
		if k == key {
			return
		}
	}
	idx = append(idx, key)
	s.pendingIndex[kind] = idx
	raw, _ := rlp.EncodeToBytes(idx)
	s.staged.Put(indexKey(kind), raw)
}

func (s *Store) stageIndexRemove(kind Kind, key string) {
	idx, _ := s.readIndex(kind)
	out := make([]string, 0, len(idx))
	for _, k := range idx {
		if k != key {
			out = append(out, k)
		}
	}
	s.pendingIndex[kind] = out
	raw, _ := rlp.EncodeToBytes(out)
	s.staged.Put(indexKey(kind), raw)
}
