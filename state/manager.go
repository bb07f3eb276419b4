package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"balanced/storage"
)

var errNilDatabase = errors.New("state: database not configured")

// Manager buffers key-value writes on top of a storage backend and encodes
// values with RLP. Writes stay in the overlay until Commit, and snapshots let
// an enclosing operation abort without leaving partial state behind: every
// public protocol operation takes a snapshot on entry and reverts to it when
// any external call fails.
type Manager struct {
	db      storage.Database
	overlay map[string][]byte
	journal []journalEntry
}

type journalEntry struct {
	key     string
	prev    []byte
	hadPrev bool
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		overlay: make(map[string][]byte),
	}
}

// KVGet decodes the stored value for key into out. It reports false when the
// key is absent from both the overlay and the backend.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	if raw, ok := m.overlay[string(key)]; ok {
		if err := rlp.DecodeBytes(raw, out); err != nil {
			return false, fmt.Errorf("state: decode %q: %w", key, err)
		}
		return true, nil
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut stages an encoded write in the overlay.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	k := string(key)
	prev, hadPrev := m.overlay[k]
	m.journal = append(m.journal, journalEntry{key: k, prev: prev, hadPrev: hadPrev})
	m.overlay[k] = encoded
	return nil
}

// Snapshot marks the current journal position. The returned id is only valid
// until the next Commit.
func (m *Manager) Snapshot() int {
	if m == nil {
		return 0
	}
	return len(m.journal)
}

// RevertToSnapshot unwinds overlay writes staged after the snapshot was taken.
func (m *Manager) RevertToSnapshot(id int) {
	if m == nil || id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.overlay[entry.key] = entry.prev
		} else {
			delete(m.overlay, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

var paramStorePrefix = []byte("params/")

func paramStoreKey(name string) []byte {
	buf := make([]byte, len(paramStorePrefix)+len(name))
	copy(buf, paramStorePrefix)
	copy(buf[len(paramStorePrefix):], name)
	return buf
}

// ParamStoreSet records a named governance parameter payload.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	return m.KVPut(paramStoreKey(name), value)
}

// ParamStoreGet loads a named governance parameter payload.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	var out []byte
	ok, err := m.KVGet(paramStoreKey(name), &out)
	if err != nil || !ok {
		return nil, false, err
	}
	return out, true, nil
}

// Commit flushes the overlay to the backend and resets the journal. Keys are
// written in sorted order so replays are deterministic.
func (m *Manager) Commit() error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	keys := make([]string, 0, len(m.overlay))
	for k := range m.overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.db.Put([]byte(k), m.overlay[k]); err != nil {
			return fmt.Errorf("state: commit %q: %w", k, err)
		}
	}
	m.overlay = make(map[string][]byte)
	m.journal = nil
	return nil
}
