package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

func TestProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	p := New(NewStore(), "testdb", "customers")
	require.NoError(t, p.Validate())
	assert.Equal(t, "testdb.customers", p.Target())

	_, err := p.InsertCustomers(ctx, fixtures.Customers())
	assert.Error(t, err, "insert before connect")

	require.NoError(t, p.Connect(ctx))
	require.NoError(t, p.Ping(ctx))

	n, err := p.InsertCustomers(ctx, fixtures.Customers())
	require.NoError(t, err)
	assert.Equal(t, 18, n)

	count, err := p.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(18), count)

	rec, err := p.FindCustomerByEmail(ctx, "hannah.r@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Hannah Rodriguez", rec.Name)

	_, err = p.FindCustomerByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, p.Close())
	assert.Error(t, p.Ping(ctx))
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a := New(store, "testdb", "customers")
	b := New(store, "otherdb", "customers")
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))

	_, err := a.InsertCustomers(ctx, fixtures.Customers()[:3])
	require.NoError(t, err)

	count, err := b.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	store.Reset()
	count, err = a.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInjectedFailures(t *testing.T) {
	ctx := context.Background()
	p := New(NewStore(), "testdb", "customers")

	p.ConnectErr = errors.New("refused")
	assert.EqualError(t, p.Connect(ctx), "refused")

	p.ConnectErr = nil
	p.InsertErr = errors.New("duplicate key")
	require.NoError(t, p.Connect(ctx))
	_, err := p.InsertCustomers(ctx, fixtures.Customers())
	assert.EqualError(t, err, "duplicate key")

	count, err := p.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must not leave documents behind")
}

func TestStoredRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	p := New(NewStore(), "testdb", "customers")
	require.NoError(t, p.Connect(ctx))

	records := fixtures.Customers()
	_, err := p.InsertCustomers(ctx, records)
	require.NoError(t, err)
	records[0].Tags[0] = "mutated"

	listed, err := p.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "premium", listed[0].Tags[0])
}

func TestRegisteredFactory(t *testing.T) {
	p, err := common.NewProvider(config.TargetConfig{Type: config.TargetMemory, Database: "testdb", Collection: "customers"})
	require.NoError(t, err)
	assert.Equal(t, config.TargetMemory, p.Name())
}
