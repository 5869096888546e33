package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
	bolt "go.etcd.io/bbolt"
)

var entriesBucket = []byte("entries")

// Record is the persisted form of an Entry.
type Record struct {
	Selector   Selector      `json:"selector"`
	Path       string        `json:"path"`
	SHA1       string        `json:"sha1,omitempty"`
	Digest     digest.Digest `json:"digest"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Index persists cache entries across processes so offline runs can verify
// files that carry no upstream hash.
type Index struct {
	db *bolt.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache index %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache index %s: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Put records e, replacing any previous record for its selector.
func (i *Index) Put(e Entry) error {
	data, err := json.Marshal(Record{
		Selector:   e.Selector,
		Path:       e.Path,
		SHA1:       e.SHA1,
		Digest:     e.Digest,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return i.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put([]byte(e.Selector.String()), data)
	})
}

// Get returns the record for sel, if any.
func (i *Index) Get(sel Selector) (Record, bool, error) {
	var rec Record
	var found bool
	err := i.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(sel.String()))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	return rec, found, err
}

// Records returns every record ordered by selector.
func (i *Index) Records() ([]Record, error) {
	var out []Record
	err := i.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

func (i *Index) Close() error {
	return i.db.Close()
}
