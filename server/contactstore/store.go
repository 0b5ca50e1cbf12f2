package contactstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/udsonbraga/safelady/server/logger"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
	"github.com/udsonbraga/safelady/utils"
)

var (
	ErrMissingRequiredFields = errors.New("contact name and relationship are required")
	ErrContactNotFound       = errors.New("contact not found")

	logg = logger.NewLogger()
)

// SyncState tells the caller how far a mutation made it: the local
// snapshot always wins, the remote table is best-effort.
type SyncState string

const (
	SYNCED     SyncState = "synced"
	LOCAL_ONLY SyncState = "local-only"
)

type Enqueuer interface {
	Perform(job work.JobParams) error
}

// Manager hands out per-user contact stores sharing one snapshot
// directory and one worker pool.
type Manager struct {
	dir    string
	pool   Enqueuer
	mu     sync.Mutex
	stores map[uint]*Store
}

func NewManager(rootDir string, pool Enqueuer) (*Manager, error) {
	dir := filepath.Join(rootDir, "contacts")
	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, err
	}

	return &Manager{
		dir:    dir,
		pool:   pool,
		stores: make(map[uint]*Store),
	}, nil
}

func (m *Manager) ForUser(userID uint) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[userID]
	if !ok {
		store = NewStore(userID, m.dir, m.pool)
		m.stores[userID] = store
	}

	return store
}

// SyncJobHandler returns the worker handler that pushes a user's snapshot
// to the remote table. The remote copy is replaced wholesale - delete all
// rows, re-insert the current list - so the snapshot stays the source of
// record.
func (m *Manager) SyncJobHandler() work.Handler {
	return func(args map[string]interface{}) error {
		userID, err := uintArg(args, "user_id")
		if err != nil {
			return err
		}

		contacts, err := m.ForUser(userID).snapshot()
		if err != nil {
			return err
		}

		return models.ReplaceContactsForUser(userID, contacts)
	}
}

// Store keeps one user's trusted contacts, local-first: every mutation
// writes the full list to the snapshot file synchronously, then asks the
// worker pool to mirror it remotely.
type Store struct {
	userID uint
	path   string
	pool   Enqueuer

	mu       sync.Mutex
	contacts []models.Contact
	loaded   bool
}

func NewStore(userID uint, dir string, pool Enqueuer) *Store {
	return &Store{
		userID: userID,
		path:   filepath.Join(dir, fmt.Sprintf("contacts_%v.json", userID)),
		pool:   pool,
	}
}

// Load primes the store. With a session the remote rows overwrite local
// state and the snapshot; without one, or when the remote read fails, the
// snapshot file is the fallback.
func (s *Store) Load(sessionActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionActive {
		contacts, err := models.ContactsForUser(s.userID)
		if err == nil {
			s.contacts = contacts
			s.loaded = true
			return s.writeSnapshot()
		}
		logg.Warnf("falling back to local contacts for user %v: %v", s.userID, err)
	}

	contacts, err := s.readSnapshot()
	if err != nil {
		return err
	}

	s.contacts = contacts
	s.loaded = true
	return nil
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loaded
}

func (s *Store) List() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyOfContacts()
}

// Add validates and appends a contact, assigning a fresh uuid when the
// client did not supply one. The stored list is left untouched on
// validation failure.
func (s *Store) Add(contact models.Contact) ([]models.Contact, SyncState, error) {
	if err := validateContact(contact); err != nil {
		return s.List(), LOCAL_ONLY, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	contact.UserID = s.userID

	s.contacts = append(s.contacts, contact)
	return s.persist()
}

func (s *Store) Update(contact models.Contact) ([]models.Contact, SyncState, error) {
	if err := validateContact(contact); err != nil {
		return s.List(), LOCAL_ONLY, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.contacts {
		if s.contacts[i].ID == contact.ID {
			contact.UserID = s.userID
			contact.CreatedAt = s.contacts[i].CreatedAt
			s.contacts[i] = contact
			return s.persist()
		}
	}

	return s.copyOfContacts(), LOCAL_ONLY, ErrContactNotFound
}

func (s *Store) Remove(id string) ([]models.Contact, SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return s.persist()
		}
	}

	return s.copyOfContacts(), LOCAL_ONLY, ErrContactNotFound
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.contacts)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// persist writes the snapshot synchronously, then enqueues the remote
// mirror job. Callers must hold s.mu.
func (s *Store) persist() ([]models.Contact, SyncState, error) {
	if err := s.writeSnapshot(); err != nil {
		return s.copyOfContacts(), LOCAL_ONLY, err
	}

	if s.pool == nil {
		return s.copyOfContacts(), LOCAL_ONLY, nil
	}

	err := s.pool.Perform(work.JobParams{
		Name:    fmt.Sprintf("sync_contacts_%v", s.userID),
		Handler: "syncContacts",
		Args:    map[string]interface{}{"user_id": s.userID},
	})
	if err != nil {
		logg.Warnf("contacts for user %v saved locally only: %v", s.userID, err)
		return s.copyOfContacts(), LOCAL_ONLY, nil
	}

	return s.copyOfContacts(), SYNCED, nil
}

func (s *Store) writeSnapshot() error {
	data, err := json.Marshal(s.contacts)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}

func (s *Store) readSnapshot() ([]models.Contact, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []models.Contact{}, nil
	}
	if err != nil {
		return nil, err
	}

	contacts := []models.Contact{}
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, err
	}

	return contacts, nil
}

func (s *Store) snapshot() ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.copyOfContacts(), nil
	}
	return s.readSnapshot()
}

func (s *Store) copyOfContacts() []models.Contact {
	contacts := make([]models.Contact, len(s.contacts))
	copy(contacts, s.contacts)
	return contacts
}

func validateContact(contact models.Contact) error {
	if contact.Name == "" || contact.Relationship == "" {
		return ErrMissingRequiredFields
	}
	return nil
}

func uintArg(args map[string]interface{}, name string) (uint, error) {
	value, ok := args[name].(float64)
	if !ok {
		return 0, fmt.Errorf("missing or invalid %q job arg", name)
	}

	return uint(value), nil
}
