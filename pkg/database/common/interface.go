// Package common provides shared types and interfaces for seeding targets
package common

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

// ErrNotFound is returned when a lookup matches no document
var ErrNotFound = errors.New("customer not found")

// Provider represents a database the customer fixture can be written to
type Provider interface {
	// Name returns the provider name (e.g., "mongodb", "mysql")
	Name() string

	// Validate ensures the provider configuration is valid
	Validate() error

	// Connect establishes a connection to the database server
	Connect(ctx context.Context) error

	// Ping checks that the connection is alive
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// InsertCustomers writes all records in a single batch and returns how many were stored
	InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error)

	// CountCustomers returns the number of documents in the target collection
	CountCustomers(ctx context.Context) (int64, error)

	// FindCustomerByEmail returns the first document with the given email, or ErrNotFound
	FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error)

	// ListCustomers returns every document in the target collection
	ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error)

	// Target describes where documents are written, e.g. "testdb.customers"
	Target() string
}

// ProviderFactory creates a provider from target configuration
type ProviderFactory interface {
	Create(cfg config.TargetConfig) (Provider, error)
}

// FactoryFunc adapts a function to ProviderFactory
type FactoryFunc func(cfg config.TargetConfig) (Provider, error)

// Create calls f(cfg)
func (f FactoryFunc) Create(cfg config.TargetConfig) (Provider, error) {
	return f(cfg)
}

var (
	factoriesMu       sync.RWMutex
	providerFactories = make(map[string]ProviderFactory)
)

// RegisterProvider registers a provider factory with the given name
func RegisterProvider(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[name] = factory
}

// GetProvider returns the factory registered for name
func GetProvider(name string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	factory, exists := providerFactories[name]
	return factory, exists
}

// RegisteredProviders returns the names of all registered providers, sorted
func RegisteredProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates and validates the provider for cfg.Type
func NewProvider(cfg config.TargetConfig) (Provider, error) {
	factory, ok := GetProvider(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("no provider registered for target type %q (registered: %v)", cfg.Type, RegisteredProviders())
	}

	provider, err := factory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Type, err)
	}

	if err := provider.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s provider configuration: %w", cfg.Type, err)
	}

	return provider, nil
}
