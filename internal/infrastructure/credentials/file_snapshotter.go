package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/core/ports"
)

const sessionFileName = ".sessions"

// sessionFile is the plaintext layout of the encrypted session file
type sessionFile struct {
	Records map[domain.Role]domain.CredentialRecord `json:"records"`
	SavedAt time.Time                               `json:"saved_at"`
}

// FileSnapshotter keeps credential records in an AES-GCM encrypted file
type FileSnapshotter struct {
	path   string
	sealer sealer
	mu     sync.Mutex
}

// NewFileSnapshotter creates a snapshotter writing to dir/.sessions.
// An empty secret derives the key from the machine and user names.
func NewFileSnapshotter(dir, secret string) (*FileSnapshotter, error) {
	dir, err := sessionDir(dir)
	if err != nil {
		return nil, err
	}

	return &FileSnapshotter{
		path:   filepath.Join(dir, sessionFileName),
		sealer: newSealer(secret),
	}, nil
}

// Path returns the session file location
func (f *FileSnapshotter) Path() string {
	return f.path
}

// Load returns every persisted record. A missing file yields an empty map.
func (f *FileSnapshotter) Load(ctx context.Context) (map[domain.Role]domain.CredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.read()
	if err != nil {
		return nil, &StoreError{Operation: "load", Cause: err}
	}
	return file.Records, nil
}

// Save writes record, replacing the one stored for its role
func (f *FileSnapshotter) Save(ctx context.Context, record domain.CredentialRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.read()
	if err != nil {
		// An unreadable file is overwritten
		file = &sessionFile{Records: map[domain.Role]domain.CredentialRecord{}}
	}
	file.Records[record.Role] = record

	if err := f.write(file); err != nil {
		return &StoreError{Operation: "save", Role: record.Role, Cause: err}
	}
	return nil
}

// Delete removes the record of role
func (f *FileSnapshotter) Delete(ctx context.Context, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.read()
	if err != nil {
		return &StoreError{Operation: "delete", Role: role, Cause: err}
	}
	if _, ok := file.Records[role]; !ok {
		return nil
	}
	delete(file.Records, role)

	if len(file.Records) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return &StoreError{Operation: "delete", Role: role, Cause: err}
		}
		return nil
	}

	if err := f.write(file); err != nil {
		return &StoreError{Operation: "delete", Role: role, Cause: err}
	}
	return nil
}

// Private methods

func (f *FileSnapshotter) read() (*sessionFile, error) {
	file := &sessionFile{Records: map[domain.Role]domain.CredentialRecord{}}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	decrypted, err := f.sealer.open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session file: %w", err)
	}

	if err := json.Unmarshal(decrypted, file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session file: %w", err)
	}
	if file.Records == nil {
		file.Records = map[domain.Role]domain.CredentialRecord{}
	}
	return file, nil
}

func (f *FileSnapshotter) write(file *sessionFile) error {
	file.SavedAt = time.Now()

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	encrypted, err := f.sealer.seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt session file: %w", err)
	}

	return writeFileAtomic(f.path, encrypted)
}

var _ ports.CredentialSnapshotter = (*FileSnapshotter)(nil)
