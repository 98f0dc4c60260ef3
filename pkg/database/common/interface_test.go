package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

type stubProvider struct {
	name     string
	validErr error
}

func (s *stubProvider) Name() string                      { return s.name }
func (s *stubProvider) Validate() error                   { return s.validErr }
func (s *stubProvider) Connect(ctx context.Context) error { return nil }
func (s *stubProvider) Ping(ctx context.Context) error    { return nil }
func (s *stubProvider) Close() error                      { return nil }
func (s *stubProvider) Target() string                    { return "db.coll" }
func (s *stubProvider) InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error) {
	return len(records), nil
}
func (s *stubProvider) CountCustomers(ctx context.Context) (int64, error) { return 0, nil }
func (s *stubProvider) FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error) {
	return nil, ErrNotFound
}
func (s *stubProvider) ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error) {
	return nil, nil
}

func TestNewProvider(t *testing.T) {
	RegisterProvider("stub-ok", FactoryFunc(func(cfg config.TargetConfig) (Provider, error) {
		return &stubProvider{name: "stub-ok"}, nil
	}))
	RegisterProvider("stub-invalid", FactoryFunc(func(cfg config.TargetConfig) (Provider, error) {
		return &stubProvider{name: "stub-invalid", validErr: errors.New("host is required")}, nil
	}))
	RegisterProvider("stub-broken", FactoryFunc(func(cfg config.TargetConfig) (Provider, error) {
		return nil, errors.New("boom")
	}))

	p, err := NewProvider(config.TargetConfig{Type: "stub-ok"})
	require.NoError(t, err)
	assert.Equal(t, "stub-ok", p.Name())

	_, err = NewProvider(config.TargetConfig{Type: "stub-invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")

	_, err = NewProvider(config.TargetConfig{Type: "stub-broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create stub-broken provider")

	_, err = NewProvider(config.TargetConfig{Type: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider registered")

	assert.Subset(t, RegisteredProviders(), []string{"stub-broken", "stub-invalid", "stub-ok"})
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	var connErr error = &ConnectionError{Provider: "mongodb", Target: "testdb.customers", Err: cause}
	wrapped := fmt.Errorf("seed: %w", connErr)

	var ce *ConnectionError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "mongodb", ce.Provider)
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, connErr.Error(), "testdb.customers")

	insErr := &InsertError{Provider: "mysql", Target: "testdb.customers", Attempted: 18, Err: cause}
	assert.True(t, errors.Is(insErr, cause))
	assert.Contains(t, insErr.Error(), "failed to insert 18 customers")
}
