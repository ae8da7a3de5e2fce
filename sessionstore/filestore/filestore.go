package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
)

const fileName = "sessions.json"

var _ sessionstore.Store = (*FileStore)(nil)

// roleRecord is the persisted state of one role. Profile is decoded according to
// the role key it is stored under.
type roleRecord struct {
	Tokens  *token.Pair     `json:"tokens,omitempty"`
	Profile json.RawMessage `json:"profile,omitempty"`
}

type document map[profile.Role]roleRecord

// FileStore keeps sessions in a JSON document inside the data folder. Every
// operation reads the document from disk so separate processes sharing the folder
// observe each other's writes; writes go through a temp file and rename.
type FileStore struct {
	path string
	lock sync.Mutex
}

func New(dataFolder string) (*FileStore, error) {
	if dataFolder == "" {
		return nil, fmt.Errorf("[filestore.New] dataFolder is required")
	}
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, fmt.Errorf("[filestore.New] create data folder: %w", err)
	}
	return &FileStore{path: filepath.Join(dataFolder, fileName)}, nil
}

// Path returns the location of the backing file
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Tokens(role profile.Role) (*token.Pair, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("[FileStore.Tokens] %q: %w", role, errors.ErrInvalidRole)
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc[role].Tokens, nil
}

func (f *FileStore) SetTokens(role profile.Role, pair token.Pair) error {
	if !role.Valid() {
		return fmt.Errorf("[FileStore.SetTokens] %q: %w", role, errors.ErrInvalidRole)
	}
	return f.update(func(doc document) error {
		rec := doc[role]
		rec.Tokens = &pair
		doc[role] = rec
		return nil
	})
}

func (f *FileStore) User(role profile.Role) (profile.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("[FileStore.User] %q: %w", role, errors.ErrInvalidRole)
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	raw := doc[role].Profile
	if len(raw) == 0 {
		return nil, nil
	}

	var p profile.Profile
	switch role {
	case profile.RoleAdmin:
		p = &profile.AdminProfile{}
	case profile.RoleCustomer:
		p = &profile.CustomerProfile{}
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("[FileStore.User] decode %s profile: %w", role, err)
	}
	return p, nil
}

func (f *FileStore) SetUser(p profile.Profile) error {
	if profile.IsNil(p) {
		return fmt.Errorf("[FileStore.SetUser] profile is required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("[FileStore.SetUser] encode profile: %w", err)
	}
	return f.update(func(doc document) error {
		rec := doc[p.Role()]
		rec.Profile = raw
		doc[p.Role()] = rec
		return nil
	})
}

func (f *FileStore) Clear(role profile.Role) error {
	if !role.Valid() {
		return fmt.Errorf("[FileStore.Clear] %q: %w", role, errors.ErrInvalidRole)
	}
	return f.update(func(doc document) error {
		delete(doc, role)
		return nil
	})
}

func (f *FileStore) update(mutate func(document) error) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	return f.save(doc)
}

func (f *FileStore) load() (document, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore] read %s: %w", f.path, err)
	}
	doc := document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("[FileStore] decode %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *FileStore) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore] encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("[FileStore] create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore] write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileStore] chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileStore] close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("[FileStore] replace %s: %w", f.path, err)
	}
	return nil
}
