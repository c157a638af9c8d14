// Package journal persists sync outcomes in a bbolt database. The syncer
// only writes to it; nothing here feeds back into sync decisions.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	bolt "go.etcd.io/bbolt"
)

const (
	// journalDirPerm is the permission mode for the journal directory.
	journalDirPerm = fs.FileMode(0o700)

	// journalFilePerm is the permission mode for the journal database file.
	journalFilePerm = fs.FileMode(0o600)

	// journalOpenTimeout is the maximum time to wait for the bolt database lock.
	journalOpenTimeout = 5 * time.Second
)

var (
	notesBucket   = []byte("notes")
	historyBucket = []byte("history")
)

// Entry is one recorded invocation.
type Entry struct {
	Title   string           `json:"title"`
	Outcome notesync.Outcome `json:"outcome"`
}

// Journal wraps a bbolt database holding the last outcome per note and an
// append-only history of every outcome.
type Journal struct {
	db *bolt.DB
}

// LoadAt opens the journal at path, creating it and its directory if they
// do not exist.
func LoadAt(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, journalFilePerm, &bolt.Options{Timeout: journalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(notesBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(historyBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal db: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record implements notesync.Recorder. The last-outcome entry and the
// history entry are written in one transaction.
func (j *Journal) Record(note notesync.Note, outcome notesync.Outcome) error {
	data, err := json.Marshal(Entry{Title: note.Title, Outcome: outcome})
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(notesBucket).Put([]byte(outcome.NoteID), data); err != nil {
			return err
		}

		h := tx.Bucket(historyBucket)

		seq, err := h.NextSequence()
		if err != nil {
			return err
		}

		return h.Put(seqKey(seq), data)
	})
}

// Last returns the most recent outcome for a note, or nil if it has never
// been synced.
func (j *Journal) Last(noteID string) (*Entry, error) {
	var e *Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(notesBucket).Get([]byte(noteID))
		if v == nil {
			return nil
		}

		e = &Entry{}

		return json.Unmarshal(v, e)
	})

	return e, err
}

// History returns up to limit entries for noteID, newest first. An empty
// noteID matches every note; limit <= 0 means no limit.
func (j *Journal) History(noteID string, limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}

			if noteID != "" && e.Outcome.NoteID != noteID {
				continue
			}

			entries = append(entries, e)

			if limit > 0 && len(entries) >= limit {
				break
			}
		}

		return nil
	})

	return entries, err
}

// seqKey encodes a sequence number big-endian so keys sort in insertion
// order.
func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)

	return b
}
