package persist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/overlay"
)

// Store loads and saves the entries of one stack per session.
type Store interface {
	// Load returns the saved entries. A session with nothing saved returns
	// nil, nil.
	Load(ctx context.Context, session string) ([]overlay.Entry, error)

	// Save replaces the saved entries.
	Save(ctx context.Context, session string, entries []overlay.Entry) error

	// Delete removes the saved entries. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, session string) error
}

// NewSessionID returns a random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// formatVersion is the version of the document layout below.
const formatVersion = 1

type document struct {
	Version int             `json:"v"`
	SavedAt time.Time       `json:"savedAt"`
	Entries []overlay.Entry `json:"entries"`
}

func encode(entries []overlay.Entry) ([]byte, error) {
	if entries == nil {
		entries = []overlay.Entry{}
	}
	return json.Marshal(document{Version: formatVersion, SavedAt: time.Now().UTC(), Entries: entries})
}

func decode(data []byte) ([]overlay.Entry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("P003").Wrap(err)
	}
	if doc.Version != formatVersion {
		return nil, errors.New("P003").WithDetailf("format version %d, want %d", doc.Version, formatVersion)
	}
	for _, e := range doc.Entries {
		if e.Key == "" || e.ID <= 0 {
			return nil, errors.New("P003").WithDetailf("entry %+v has no key or id", e)
		}
	}
	return doc.Entries, nil
}

// MemoryStore keeps documents in process memory. It is meant for tests and
// single-instance development.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, session string) ([]overlay.Entry, error) {
	m.mu.RLock()
	data, ok := m.docs[session]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decode(data)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, session string, entries []overlay.Entry) error {
	data, err := encode(entries)
	if err != nil {
		return errors.New("P002").Wrap(err)
	}
	m.mu.Lock()
	m.docs[session] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, session string) error {
	m.mu.Lock()
	delete(m.docs, session)
	m.mu.Unlock()
	return nil
}
