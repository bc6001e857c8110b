package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/storage"
)

const passphraseCheckString = "lockpass-passphrase-check"

// Associated data binding each envelope to its role
var (
	aadVerify   = []byte("verify")
	aadUsername = []byte("username")
	aadSecret   = []byte("secret")
	aadNote     = []byte("note")
)

// State is the lifecycle state of a Session
type State int

const (
	StateClosed State = iota
	StateUnlocked
)

func (s State) String() string {
	if s == StateUnlocked {
		return "unlocked"
	}
	return "closed"
}

// Credential is a decrypted record
type Credential struct {
	ID       uint64
	Username string
	Secret   string
	Note     string
	Created  time.Time
	Modified time.Time
}

// ListResult holds the readable credentials and the records that failed
type ListResult struct {
	Credentials []Credential
	Failures    []*RecordError
}

// Options configure Create and Open
type Options struct {
	// ReadOnly opens the vault with a shared lock; mutations fail with ErrReadOnly
	ReadOnly bool
	// LockTimeout bounds the wait for the file lock before ErrVaultBusy
	LockTimeout time.Duration
	// KDF and Cipher are used by Create only; zero values pick the defaults
	KDF    crypto.KDFParams
	Cipher crypto.Suite
	// Logger receives diagnostics. It never sees secrets. Nil discards.
	Logger *log.Logger
}

func (o Options) storageOptions() storage.Options {
	return storage.Options{ReadOnly: o.ReadOnly, LockTimeout: o.LockTimeout}
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard, "", 0)
}

// Session is an unlocked vault. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	db     *storage.Storage
	codec  *crypto.Codec
	header *storage.Header
	logger *log.Logger
}

func checkValue() []byte {
	checksum := sha256.Sum256([]byte(passphraseCheckString))
	return []byte(hex.EncodeToString(checksum[:]))
}

// keyMaterial derives the master key and returns the records codec and a
// fresh verification tag
type keyMaterial struct {
	codec    *crypto.Codec
	verifier []byte
}

func deriveKeyMaterial(kdf *crypto.KDF, suite crypto.Suite, passphrase []byte) (*keyMaterial, error) {
	master := kdf.DeriveKey(passphrase)
	defer crypto.ClearBytes(master)

	verifyCodec, err := subkeyCodec(master, crypto.PurposeVerify, suite)
	if err != nil {
		return nil, err
	}
	defer verifyCodec.Destroy()

	verifier, err := verifyCodec.Seal(checkValue(), aadVerify)
	if err != nil {
		return nil, fmt.Errorf("failed to seal verification tag: %w", err)
	}

	codec, err := subkeyCodec(master, crypto.PurposeRecords, suite)
	if err != nil {
		return nil, err
	}
	return &keyMaterial{codec: codec, verifier: verifier}, nil
}

func subkeyCodec(master []byte, purpose string, suite crypto.Suite) (*crypto.Codec, error) {
	subkey, err := crypto.DeriveSubkey(master, purpose)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(subkey)
	return crypto.NewCodec(subkey, suite)
}

// Create initializes a new vault at path and returns it unlocked.
// It fails with ErrAlreadyExists if anything already exists at path.
func Create(path string, passphrase []byte, opts Options) (*Session, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	params := opts.KDF
	if params == (crypto.KDFParams{}) {
		params = crypto.DefaultKDFParams()
	}
	suite := opts.Cipher
	if suite == "" {
		suite = crypto.SuiteAESGCM
	}

	kdf, err := crypto.NewKDF(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create KDF: %w", err)
	}

	km, err := deriveKeyMaterial(kdf, suite, passphrase)
	if err != nil {
		return nil, err
	}

	db, err := storage.Create(path, opts.storageOptions())
	if err != nil {
		km.codec.Destroy()
		return nil, err
	}

	header := &storage.Header{
		VaultID:  uuid.NewString(),
		Salt:     kdf.Salt,
		KDF:      kdf.Params,
		Cipher:   string(suite),
		Verifier: km.verifier,
	}
	if err := db.Initialize(header); err != nil {
		km.codec.Destroy()
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}

	logger := opts.logger()
	logger.Printf("created vault %s (%s, argon2id t=%d m=%dKiB p=%d)",
		header.VaultID, suite, params.Time, params.Memory, params.Threads)

	return &Session{db: db, codec: km.codec, header: header, logger: logger}, nil
}

// Open unlocks an existing vault. A wrong passphrase yields
// ErrAuthenticationFailed and leaves nothing open.
func Open(path string, passphrase []byte, opts Options) (*Session, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	db, err := storage.Open(path, opts.storageOptions())
	if err != nil {
		return nil, err
	}

	s, err := unlock(db, passphrase, opts.logger())
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func unlock(db *storage.Storage, passphrase []byte, logger *log.Logger) (*Session, error) {
	header, err := db.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	kdf := &crypto.KDF{Salt: header.Salt, Params: header.KDF}
	if err := kdf.Validate(); err != nil {
		return nil, fmt.Errorf("vault header is invalid: %w", err)
	}
	suite, err := crypto.ParseSuite(header.Cipher)
	if err != nil {
		return nil, fmt.Errorf("vault header is invalid: %w", err)
	}

	master := kdf.DeriveKey(passphrase)
	defer crypto.ClearBytes(master)

	// Verify passphrase with the verification tag
	verifyCodec, err := subkeyCodec(master, crypto.PurposeVerify, suite)
	if err != nil {
		return nil, err
	}
	check, err := verifyCodec.Open(header.Verifier, aadVerify)
	verifyCodec.Destroy()
	if err != nil || !crypto.ConstantTimeCompare(check, checkValue()) {
		logger.Printf("passphrase verification failed for vault %s", header.VaultID)
		return nil, ErrAuthenticationFailed
	}

	codec, err := subkeyCodec(master, crypto.PurposeRecords, suite)
	if err != nil {
		return nil, err
	}

	logger.Printf("unlocked vault %s", header.VaultID)
	return &Session{db: db, codec: codec, header: header, logger: logger}, nil
}

// Verify checks a passphrase against the vault without keeping it open
func Verify(path string, passphrase []byte, opts Options) error {
	opts.ReadOnly = true
	s, err := Open(path, passphrase, opts)
	if err != nil {
		return err
	}
	return s.Close()
}

// Inspect returns vault statistics. It needs no passphrase.
func Inspect(path string, opts Options) (*storage.Stats, error) {
	opts.ReadOnly = true
	db, err := storage.Open(path, opts.storageOptions())
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Stats()
}

// CompactPath rewrites a vault file without free pages. Compaction copies
// sealed bytes only, so it needs no passphrase.
func CompactPath(path string, opts Options) error {
	opts.ReadOnly = false
	db, err := storage.Open(path, opts.storageOptions())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// State reports whether the session is unlocked
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return StateClosed
	}
	return StateUnlocked
}

// VaultID returns the random identifier assigned at creation
func (s *Session) VaultID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return "", ErrSessionNotOpen
	}
	return s.header.VaultID, nil
}

// Path returns the vault file path
func (s *Session) Path() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return "", ErrSessionNotOpen
	}
	return s.db.Path(), nil
}

func (s *Session) seal(c Credential) (*storage.Record, error) {
	rec := &storage.Record{}
	fields := []struct {
		value string
		aad   []byte
		out   *[]byte
	}{
		{c.Username, aadUsername, &rec.Username},
		{c.Secret, aadSecret, &rec.Secret},
		{c.Note, aadNote, &rec.Note},
	}

	for _, f := range fields {
		plaintext := []byte(f.value)
		envelope, err := s.codec.Seal(plaintext, f.aad)
		crypto.ClearBytes(plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", f.aad, err)
		}
		*f.out = envelope
	}
	return rec, nil
}

func (s *Session) open(rec *storage.Record) (*Credential, *RecordError) {
	if rec.DecodeErr != nil {
		return nil, &RecordError{ID: rec.ID, Field: "record", Err: fmt.Errorf("%w: %w", ErrIntegrityFailure, rec.DecodeErr)}
	}

	c := &Credential{ID: rec.ID, Created: rec.Created, Modified: rec.Modified}
	fields := []struct {
		envelope []byte
		aad      []byte
		out      *string
	}{
		{rec.Username, aadUsername, &c.Username},
		{rec.Secret, aadSecret, &c.Secret},
		{rec.Note, aadNote, &c.Note},
	}

	for _, f := range fields {
		plaintext, err := s.codec.Open(f.envelope, f.aad)
		if err != nil {
			return nil, &RecordError{ID: rec.ID, Field: string(f.aad), Err: err}
		}
		*f.out = string(plaintext)
		crypto.ClearBytes(plaintext)
	}
	return c, nil
}

// Add encrypts each field independently and stores a new record
func (s *Session) Add(c Credential) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrSessionNotOpen
	}

	rec, err := s.seal(c)
	if err != nil {
		return 0, err
	}

	id, err := s.db.Append(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to store record: %w", err)
	}

	s.logger.Printf("added record %d", id)
	return id, nil
}

// List decrypts every record. A record that fails to decrypt is reported in
// Failures and does not stop the rest from being listed.
func (s *Session) List() (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrSessionNotOpen
	}
	return s.list()
}

func (s *Session) list() (*ListResult, error) {
	records, err := s.db.List()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	result := &ListResult{Credentials: make([]Credential, 0, len(records))}
	for i := range records {
		c, recErr := s.open(&records[i])
		if recErr != nil {
			s.logger.Printf("skipping record %d: %s failed integrity check", recErr.ID, recErr.Field)
			result.Failures = append(result.Failures, recErr)
			continue
		}
		result.Credentials = append(result.Credentials, *c)
	}
	return result, nil
}

// Find returns the credential with the given id
func (s *Session) Find(id uint64) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrSessionNotOpen
	}

	rec, err := s.db.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptRecord) {
			return nil, &RecordError{ID: id, Field: "record", Err: fmt.Errorf("%w: %w", ErrIntegrityFailure, err)}
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	c, recErr := s.open(rec)
	if recErr != nil {
		return nil, recErr
	}
	return c, nil
}

// Search lists credentials whose username or note contains query,
// ignoring case. Secrets are never matched.
func (s *Session) Search(query string) (*ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrSessionNotOpen
	}

	all, err := s.list()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	result := &ListResult{Failures: all.Failures}
	for _, c := range all.Credentials {
		if strings.Contains(strings.ToLower(c.Username), needle) ||
			strings.Contains(strings.ToLower(c.Note), needle) {
			result.Credentials = append(result.Credentials, c)
		}
	}
	return result, nil
}

// Update re-encrypts all three fields of an existing record
func (s *Session) Update(id uint64, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrSessionNotOpen
	}

	rec, err := s.seal(c)
	if err != nil {
		return err
	}

	found, err := s.db.Update(id, rec)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	s.logger.Printf("updated record %d", id)
	return nil
}

// Delete removes a record. It reports false, without error, when no record
// has that id.
func (s *Session) Delete(id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return false, ErrSessionNotOpen
	}

	found, err := s.db.Delete(id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	if found {
		s.logger.Printf("deleted record %d", id)
	}
	return found, nil
}

// ChangePassphrase re-encrypts every record under a key derived from a new
// passphrase and a new salt. The switch happens in one transaction.
// It refuses to run while any record is unreadable.
func (s *Session) ChangePassphrase(newPassphrase []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrSessionNotOpen
	}
	if len(newPassphrase) == 0 {
		return ErrEmptyPassphrase
	}

	current, err := s.list()
	if err != nil {
		return err
	}
	if len(current.Failures) > 0 {
		return fmt.Errorf("cannot change passphrase: %w", current.Failures[0])
	}

	kdf, err := crypto.NewKDF(s.header.KDF)
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	km, err := deriveKeyMaterial(kdf, s.codec.Suite(), newPassphrase)
	if err != nil {
		return err
	}

	old := s.codec
	s.codec = km.codec
	records := make([]storage.Record, 0, len(current.Credentials))
	for _, c := range current.Credentials {
		rec, err := s.seal(c)
		if err != nil {
			s.codec = old
			km.codec.Destroy()
			return err
		}
		rec.ID = c.ID
		rec.Created = c.Created
		rec.Modified = c.Modified
		records = append(records, *rec)
	}

	header := *s.header
	header.Salt = kdf.Salt
	header.Verifier = km.verifier
	if err := s.db.Rekey(&header, records); err != nil {
		s.codec = old
		km.codec.Destroy()
		return fmt.Errorf("failed to store re-encrypted vault: %w", err)
	}

	old.Destroy()
	s.header = &header
	s.logger.Printf("changed passphrase for vault %s, re-encrypted %d records", header.VaultID, len(records))
	return nil
}

// Compact reclaims space left by deleted records
func (s *Session) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrSessionNotOpen
	}
	return s.db.Compact()
}

// Close zeroes the key and releases the vault lock
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrSessionNotOpen
	}

	s.codec.Destroy()
	s.codec = nil
	err := s.db.Close()
	s.db = nil
	s.logger.Printf("closed vault %s", s.header.VaultID)
	return err
}
