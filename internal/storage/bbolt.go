package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/illarion/lockpass/internal/crypto"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Salt, KDF params, cipher, timestamps - unencrypted
	PrivateBucket = []byte("private") // Passphrase verification tag
	RecordsBucket = []byte("records") // Credential records keyed by big-endian id
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigKDF      = []byte("kdf")
	ConfigCipher   = []byte("cipher")
	ConfigVaultID  = []byte("vault_id")

	PrivateVerify = []byte("verify")
)

const (
	FormatVersion      = 1
	FilePerm           = 0600
	DefaultLockTimeout = 100 * time.Millisecond
)

var (
	ErrAlreadyExists  = errors.New("vault already exists")
	ErrNotInitialized = errors.New("vault not initialized")
	ErrBusy           = errors.New("vault is locked by another process")
	ErrReadOnly       = errors.New("vault opened read-only")
	ErrCorruptRecord  = errors.New("record cannot be decoded")
)

// Options control how the database file is opened
type Options struct {
	// ReadOnly takes a shared lock instead of an exclusive one
	ReadOnly bool
	// LockTimeout is how long to wait for the file lock before giving up
	// with ErrBusy. Zero means DefaultLockTimeout.
	LockTimeout time.Duration
}

// Header is the per-vault state stored outside the records bucket
type Header struct {
	Version  int
	VaultID  string
	Salt     []byte
	KDF      crypto.KDFParams
	Cipher   string
	Verifier []byte
	Created  time.Time
	Modified time.Time
}

// Record is one stored credential. Username, Secret and Note are sealed
// envelopes; storage never sees plaintext.
type Record struct {
	ID       uint64    `json:"-"`
	Username []byte    `json:"username"`
	Secret   []byte    `json:"secret"`
	Note     []byte    `json:"note"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// DecodeErr is set by List for entries whose stored bytes are not a
	// valid record. The other fields are empty in that case.
	DecodeErr error `json:"-"`
}

// Stats summarizes a vault without decrypting anything
type Stats struct {
	Path     string
	Size     int64
	Records  int
	Sequence uint64
	Header   *Header
}

// Storage provides BBolt-based storage for lockpass
type Storage struct {
	db   *bolt.DB
	path string
	opts Options
}

// Create makes a new, empty database file. It never touches an existing file.
func Create(path string, opts Options) (*Storage, error) {
	if opts.ReadOnly {
		return nil, ErrReadOnly
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, FilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	s, err := open(path, opts)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return s, nil
}

// Open opens an initialized lockpass database
func Open(path string, opts Options) (*Storage, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := open(path, opts)
	if err != nil {
		return nil, err
	}

	initialized, err := s.IsInitialized()
	if err != nil || !initialized {
		s.Close()
		return nil, ErrNotInitialized
	}
	return s, nil
}

func open(path string, opts Options) (*Storage, error) {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		before, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrBusy
		}

		db, err := bolt.Open(path, FilePerm, &bolt.Options{
			Timeout:  remaining,
			ReadOnly: opts.ReadOnly,
		})
		if err != nil {
			if errors.Is(err, berrors.ErrTimeout) {
				return nil, ErrBusy
			}
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Compact renames a new file over path before it releases the lock,
		// so a lock won on the replaced file must be dropped and retried.
		after, err := os.Stat(path)
		if err == nil && os.SameFile(before, after) {
			return &Storage{db: db, path: path, opts: opts}, nil
		}
		db.Close()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}
}

// Close closes the database and releases the file lock
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// ReadOnly reports whether the database was opened with a shared lock
func (s *Storage) ReadOnly() bool {
	return s.opts.ReadOnly
}

func (s *Storage) update(fn func(tx *bolt.Tx) error) error {
	if s.opts.ReadOnly {
		return ErrReadOnly
	}
	err := s.db.Update(fn)
	if errors.Is(err, berrors.ErrDatabaseReadOnly) {
		return ErrReadOnly
	}
	return err
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Initialize writes the bucket structure and header of a new vault in a
// single transaction
func (s *Storage) Initialize(h *Header) error {
	if len(h.Salt) == 0 || len(h.Verifier) == 0 {
		return fmt.Errorf("header requires salt and verifier")
	}

	return s.update(func(tx *bolt.Tx) error {
		if config := tx.Bucket(ConfigBucket); config != nil && config.Get(ConfigVersion) != nil {
			return ErrAlreadyExists
		}

		// Create all buckets
		for _, bucket := range [][]byte{ConfigBucket, PrivateBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		now := time.Now()
		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte(strconv.Itoa(FormatVersion))); err != nil {
			return err
		}
		created, _ := now.MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		if err := config.Put(ConfigVaultID, []byte(h.VaultID)); err != nil {
			return err
		}
		if err := putKeyMaterial(tx, h, now); err != nil {
			return err
		}

		h.Version = FormatVersion
		h.Created = now
		h.Modified = now
		return nil
	})
}

// putKeyMaterial stores everything that changes together with the master key
func putKeyMaterial(tx *bolt.Tx, h *Header, now time.Time) error {
	config := tx.Bucket(ConfigBucket)

	kdf, err := json.Marshal(h.KDF)
	if err != nil {
		return fmt.Errorf("failed to marshal kdf params: %w", err)
	}
	if err := config.Put(ConfigSalt, h.Salt); err != nil {
		return err
	}
	if err := config.Put(ConfigKDF, kdf); err != nil {
		return err
	}
	if err := config.Put(ConfigCipher, []byte(h.Cipher)); err != nil {
		return err
	}
	if err := tx.Bucket(PrivateBucket).Put(PrivateVerify, h.Verifier); err != nil {
		return err
	}
	return touchModified(tx, now)
}

func touchModified(tx *bolt.Tx, now time.Time) error {
	modified, _ := now.MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// Load reads the vault header
func (s *Storage) Load() (*Header, error) {
	h := &Header{}
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		private := tx.Bucket(PrivateBucket)
		if config == nil || private == nil {
			return ErrNotInitialized
		}

		version, err := strconv.Atoi(string(config.Get(ConfigVersion)))
		if err != nil {
			return fmt.Errorf("invalid format version: %w", err)
		}
		if version > FormatVersion {
			return fmt.Errorf("unsupported format version %d", version)
		}
		h.Version = version

		salt := config.Get(ConfigSalt)
		if salt == nil {
			return fmt.Errorf("salt not found")
		}
		// Make a copy since the slice is only valid during the transaction
		h.Salt = append([]byte(nil), salt...)

		kdf := config.Get(ConfigKDF)
		if kdf == nil {
			return fmt.Errorf("kdf params not found")
		}
		if err := json.Unmarshal(kdf, &h.KDF); err != nil {
			return fmt.Errorf("failed to unmarshal kdf params: %w", err)
		}

		verifier := private.Get(PrivateVerify)
		if verifier == nil {
			return fmt.Errorf("verification tag not found")
		}
		h.Verifier = append([]byte(nil), verifier...)

		h.Cipher = string(config.Get(ConfigCipher))
		h.VaultID = string(config.Get(ConfigVaultID))

		if data := config.Get(ConfigCreated); data != nil {
			if err := h.Created.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("invalid created time: %w", err)
			}
		}
		if data := config.Get(ConfigModified); data != nil {
			if err := h.Modified.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("invalid modified time: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func decodeRecord(k, v []byte) Record {
	if len(k) != 8 {
		return Record{DecodeErr: ErrCorruptRecord}
	}
	rec := Record{}
	if err := json.Unmarshal(v, &rec); err != nil {
		rec = Record{DecodeErr: fmt.Errorf("%w: %v", ErrCorruptRecord, err)}
	}
	rec.ID = binary.BigEndian.Uint64(k)
	return rec
}

// Append stores a new record and returns its id. Ids come from the bucket
// sequence, so they increase monotonically and are never handed out twice.
func (s *Storage) Append(rec *Record) (uint64, error) {
	var id uint64
	err := s.update(func(tx *bolt.Tx) error {
		records := tx.Bucket(RecordsBucket)
		if records == nil {
			return ErrNotInitialized
		}

		seq, err := records.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}

		now := time.Now()
		rec.ID = seq
		rec.Created = now
		rec.Modified = now

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := records.Put(itob(seq), data); err != nil {
			return err
		}

		id = seq
		return touchModified(tx, now)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns all records in insertion order. Entries that cannot be
// decoded are returned with DecodeErr set instead of failing the whole call.
func (s *Storage) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		return bucket.ForEach(func(k, v []byte) error {
			records = append(records, decodeRecord(k, v))
			return nil
		})
	})
	return records, err
}

// Get returns a single record, or nil if no record has that id
func (s *Storage) Get(id uint64) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		data := bucket.Get(itob(id))
		if data == nil {
			return nil // Not found
		}
		r := decodeRecord(itob(id), data)
		if r.DecodeErr != nil {
			return r.DecodeErr
		}
		rec = &r
		return nil
	})
	return rec, err
}

// Update replaces the envelopes of an existing record. It reports false
// when the record does not exist.
func (s *Storage) Update(id uint64, rec *Record) (bool, error) {
	var found bool
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		data := bucket.Get(itob(id))
		if data == nil {
			return nil
		}
		found = true

		now := time.Now()
		if existing := decodeRecord(itob(id), data); existing.DecodeErr == nil {
			rec.Created = existing.Created
		} else {
			rec.Created = now
		}
		rec.ID = id
		rec.Modified = now

		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := bucket.Put(itob(id), updated); err != nil {
			return err
		}
		return touchModified(tx, now)
	})
	return found, err
}

// Delete removes a record. It reports false when the record does not exist.
func (s *Storage) Delete(id uint64) (bool, error) {
	var found bool
	err := s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		if bucket.Get(itob(id)) == nil {
			return nil
		}
		found = true
		if err := bucket.Delete(itob(id)); err != nil {
			return err
		}
		return touchModified(tx, time.Now())
	})
	return found, err
}

// Rekey replaces the key material and every given record in one
// transaction. Records keep their ids and creation times.
func (s *Storage) Rekey(h *Header, recs []Record) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}

		for i := range recs {
			rec := &recs[i]
			if bucket.Get(itob(rec.ID)) == nil {
				return fmt.Errorf("record %d disappeared during rekey", rec.ID)
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			if err := bucket.Put(itob(rec.ID), data); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := putKeyMaterial(tx, h, now); err != nil {
			return err
		}
		h.Modified = now
		return nil
	})
}

// Stats returns counts and the header without needing a key
func (s *Storage) Stats() (*Stats, error) {
	h, err := s.Load()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Path: s.Path(), Header: h}
	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		stats.Records = bucket.Stats().KeyN
		stats.Sequence = bucket.Sequence()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(stats.Path); err == nil {
		stats.Size = info.Size()
	}
	return stats, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting records to reclaim disk space.
//
// The copy is built next to the vault and renamed over it while the lock on
// the old file is still held. The new file is locked before the rename, so
// another process never sees an unlocked vault at path.
func (s *Storage) Compact() error {
	if s.opts.ReadOnly {
		return ErrReadOnly
	}

	srcPath := s.path
	tmpPath := srcPath + ".compact"

	// A leftover from an interrupted compaction could hold deleted records
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale compact database: %w", err)
	}

	dst, err := bolt.Open(tmpPath, FilePerm, &bolt.Options{Timeout: DefaultLockTimeout})
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets, including their sequences so ids are never reused
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})
	if err == nil {
		err = dst.Sync()
	}
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	// Single rename: path holds either the old or the new file, never neither
	if err := os.Rename(tmpPath, srcPath); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace database: %w", err)
	}
	if err := syncDir(filepath.Dir(srcPath)); err != nil {
		s.swap(dst)
		return fmt.Errorf("failed to sync vault directory: %w", err)
	}

	return s.swap(dst)
}

// swap makes dst the live handle and releases the old file's lock
func (s *Storage) swap(dst *bolt.DB) error {
	old := s.db
	s.db = dst
	if err := old.Close(); err != nil {
		return fmt.Errorf("failed to close replaced database: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
