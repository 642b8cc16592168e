// Package session persists the authenticated session encrypted at
// rest. The blob is age-encrypted to an x25519 identity held in the
// secret store, so the plain data directory never contains usable
// cookies.
package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"github.com/vrsleep/vrsleep/internal/domain"
	"github.com/vrsleep/vrsleep/internal/ports"
)

const (
	fileName = "session.json"
	dirMode  = 0o700
	fileMode = 0o600

	// IdentitySecretKey locates the age identity in the secret store.
	IdentitySecretKey = "vrsleep/session-identity"
)

type Store struct {
	path    string
	secrets ports.SecretStore

	mu     sync.Mutex
	cached *domain.Session
}

var _ ports.SessionRepository = (*Store)(nil)

func NewStore(dir string, secrets ports.SecretStore) *Store {
	return &Store{path: filepath.Join(dir, fileName), secrets: secrets}
}

type fileSchema struct {
	Data string `json:"data"`
}

type sessionSchema struct {
	Cookies map[string]string `json:"cookies"`
	UserID  string            `json:"userId"`
	User    *userSchema       `json:"user,omitempty"`
}

type userSchema struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Status            string `json:"status"`
	StatusDescription string `json:"statusDescription"`
	Location          string `json:"location"`
	PresenceWorld     string `json:"presenceWorld"`
	PresenceInstance  string `json:"presenceInstance"`
}

// Load decrypts the stored session. It fails closed: a missing file,
// an unreadable identity, or a decryption failure all yield
// domain.ErrNoSession so the caller treats them as "must log in again".
func (s *Store) Load(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Session{}, domain.ErrNoSession
	}

	var file fileSchema
	if err := json.Unmarshal(raw, &file); err != nil || file.Data == "" {
		return domain.Session{}, domain.ErrNoSession
	}

	identity, err := s.loadIdentity(ctx)
	if err != nil {
		return domain.Session{}, domain.ErrNoSession
	}

	plaintext, err := decrypt(file.Data, identity)
	if err != nil {
		return domain.Session{}, domain.ErrNoSession
	}

	var schema sessionSchema
	if err := json.Unmarshal(plaintext, &schema); err != nil {
		return domain.Session{}, domain.ErrNoSession
	}

	session := fromSchema(schema)
	s.cached = &session
	return session, nil
}

// Save encrypts and writes the session. Unlike Load it fails loudly:
// the user must know when their credentials were not saved, and writing
// an unencrypted credential file is not an option.
func (s *Store) Save(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.ensureIdentity(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncryptionUnavailable, err)
	}

	plaintext, err := json.Marshal(toSchema(session))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ciphertext, err := encrypt(plaintext, identity.Recipient())
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}

	encoded, err := json.Marshal(fileSchema{Data: ciphertext})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := writeAtomic(s.path, encoded); err != nil {
		return err
	}

	s.cached = &session
	return nil
}

// Clear deletes the persisted file and drops the cache. Idempotent;
// the encryption identity stays in the secret store for the next login.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

func (s *Store) loadIdentity(ctx context.Context) (*age.X25519Identity, error) {
	stored, err := s.secrets.Get(ctx, IdentitySecretKey)
	if err != nil {
		return nil, fmt.Errorf("load session identity: %w", err)
	}
	identity, err := age.ParseX25519Identity(trimSecret(stored))
	if err != nil {
		return nil, fmt.Errorf("parse session identity: %w", err)
	}
	return identity, nil
}

func (s *Store) ensureIdentity(ctx context.Context) (*age.X25519Identity, error) {
	identity, err := s.loadIdentity(ctx)
	if err == nil {
		return identity, nil
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate session identity: %w", err)
	}
	if err := s.secrets.Put(ctx, IdentitySecretKey, identity.String()); err != nil {
		return nil, fmt.Errorf("store session identity: %w", err)
	}
	return identity, nil
}

func encrypt(plaintext []byte, recipient age.Recipient) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("write ciphertext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decrypt(encoded string, identity age.Identity) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("start decryption: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plaintext: %w", err)
	}
	return plaintext, nil
}

func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	cleanup = false
	return nil
}

func trimSecret(value string) string {
	for len(value) > 0 && (value[len(value)-1] == '\n' || value[len(value)-1] == '\r') {
		value = value[:len(value)-1]
	}
	return value
}

func toSchema(session domain.Session) sessionSchema {
	schema := sessionSchema{Cookies: session.Cookies, UserID: session.UserID}
	if session.User != nil {
		schema.User = &userSchema{
			ID:                session.User.ID,
			DisplayName:       session.User.DisplayName,
			Status:            session.User.Status,
			StatusDescription: session.User.StatusDescription,
			Location:          session.User.Location,
			PresenceWorld:     session.User.Presence.World,
			PresenceInstance:  session.User.Presence.Instance,
		}
	}
	return schema
}

func fromSchema(schema sessionSchema) domain.Session {
	session := domain.Session{Cookies: schema.Cookies, UserID: schema.UserID}
	if session.Cookies == nil {
		session.Cookies = map[string]string{}
	}
	if schema.User != nil {
		session.User = &domain.User{
			ID:                schema.User.ID,
			DisplayName:       schema.User.DisplayName,
			Status:            schema.User.Status,
			StatusDescription: schema.User.StatusDescription,
			Location:          schema.User.Location,
			Presence: domain.Presence{
				World:    schema.User.PresenceWorld,
				Instance: schema.User.PresenceInstance,
			},
		}
	}
	return session
}
