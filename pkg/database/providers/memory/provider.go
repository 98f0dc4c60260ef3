// Package memory provides an in-process seeding target used for dry runs and tests
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

var errNotConnected = errors.New("not connected to memory store")

// Store holds collections keyed by "database.collection"
type Store struct {
	mu          sync.RWMutex
	collections map[string][]fixtures.CustomerRecord
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{collections: make(map[string][]fixtures.CustomerRecord)}
}

// DefaultStore backs providers created through the registry
var DefaultStore = NewStore()

// Reset drops every collection
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string][]fixtures.CustomerRecord)
}

// Provider implements common.Provider on top of a Store
type Provider struct {
	Database   string
	Collection string

	// ConnectErr and InsertErr, when set, are returned by Connect and InsertCustomers
	ConnectErr error
	InsertErr  error

	store     *Store
	connected bool
}

// New returns a provider writing to store
func New(store *Store, database, collection string) *Provider {
	return &Provider{
		Database:   database,
		Collection: collection,
		store:      store,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return config.TargetMemory
}

// Target returns database.collection
func (p *Provider) Target() string {
	return p.Database + "." + p.Collection
}

// Validate ensures the provider configuration is valid
func (p *Provider) Validate() error {
	if p.store == nil {
		return errors.New("memory store is required")
	}
	if p.Database == "" {
		return errors.New("database name is required")
	}
	if p.Collection == "" {
		return errors.New("collection name is required")
	}
	return nil
}

// Connect marks the provider connected
func (p *Provider) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ConnectErr != nil {
		return p.ConnectErr
	}
	p.connected = true
	return nil
}

// Ping checks the provider is connected
func (p *Provider) Ping(ctx context.Context) error {
	if !p.connected {
		return errNotConnected
	}
	return nil
}

// Close disconnects the provider. Stored documents survive.
func (p *Provider) Close() error {
	p.connected = false
	return nil
}

// InsertCustomers appends all records or none
func (p *Provider) InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error) {
	if !p.connected {
		return 0, errNotConnected
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p.InsertErr != nil {
		return 0, p.InsertErr
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	key := p.Target()
	for _, rec := range records {
		p.store.collections[key] = append(p.store.collections[key], rec.Clone())
	}
	return len(records), nil
}

// CountCustomers returns the number of stored documents
func (p *Provider) CountCustomers(ctx context.Context) (int64, error) {
	if !p.connected {
		return 0, errNotConnected
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	return int64(len(p.store.collections[p.Target()])), nil
}

// FindCustomerByEmail returns the first stored document with email
func (p *Provider) FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error) {
	if !p.connected {
		return nil, errNotConnected
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	for _, rec := range p.store.collections[p.Target()] {
		if rec.Email == email {
			found := rec.Clone()
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}

// ListCustomers returns copies of all stored documents in insertion order
func (p *Provider) ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error) {
	if !p.connected {
		return nil, errNotConnected
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	stored := p.store.collections[p.Target()]
	out := make([]fixtures.CustomerRecord, len(stored))
	for i, rec := range stored {
		out[i] = rec.Clone()
	}
	return out, nil
}

func init() {
	common.RegisterProvider(config.TargetMemory, common.FactoryFunc(func(cfg config.TargetConfig) (common.Provider, error) {
		return New(DefaultStore, cfg.Database, cfg.Collection), nil
	}))
}
