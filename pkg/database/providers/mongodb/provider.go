// Package mongodb provides the MongoDB seeding target
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

// Provider implements the common.Provider interface for MongoDB
type Provider struct {
	URI            string
	Host           string
	Port           int
	User           string
	Password       string
	AuthSource     string
	Database       string
	Collection     string
	ConnectTimeout time.Duration

	client     *mongo.Client
	ownsClient bool
}

// NewWithClient returns a provider around an existing client. Close leaves the client connected.
func NewWithClient(client *mongo.Client, database, collection string) *Provider {
	return &Provider{
		Database:   database,
		Collection: collection,
		client:     client,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return config.TargetMongoDB
}

// Target returns database.collection
func (p *Provider) Target() string {
	return p.Database + "." + p.Collection
}

// ConnectionURI returns the URI used to reach the server
func (p *Provider) ConnectionURI() string {
	if p.URI != "" {
		return p.URI
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/",
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
		if p.AuthSource != "" {
			u.RawQuery = url.Values{"authSource": []string{p.AuthSource}}.Encode()
		}
	}
	return u.String()
}

// Validate ensures the provider configuration is valid
func (p *Provider) Validate() error {
	if p.client == nil {
		if p.URI == "" && p.Host == "" {
			return errors.New("MongoDB host or URI is required")
		}
		if p.URI == "" && (p.Port <= 0 || p.Port > 65535) {
			return fmt.Errorf("invalid MongoDB port: %d", p.Port)
		}
	}
	if p.Database == "" {
		return errors.New("MongoDB database is required")
	}
	if p.Collection == "" {
		return errors.New("MongoDB collection is required")
	}
	return nil
}

// Connect establishes a connection to the server and pings the primary
func (p *Provider) Connect(ctx context.Context) error {
	if p.client != nil {
		return p.Ping(ctx)
	}

	opts := options.Client().ApplyURI(p.ConnectionURI())
	if p.ConnectTimeout > 0 {
		opts.SetConnectTimeout(p.ConnectTimeout).SetServerSelectionTimeout(p.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open MongoDB connection: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB server: %w", err)
	}

	p.client = client
	p.ownsClient = true
	return nil
}

// Ping checks the primary is reachable
func (p *Provider) Ping(ctx context.Context) error {
	if p.client == nil {
		return errors.New("not connected to MongoDB server")
	}
	if err := p.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB server: %w", err)
	}
	return nil
}

// Close disconnects a client opened by Connect
func (p *Provider) Close() error {
	if p.client == nil || !p.ownsClient {
		return nil
	}
	err := p.client.Disconnect(context.Background())
	p.client = nil
	p.ownsClient = false
	return err
}

func (p *Provider) collection() (*mongo.Collection, error) {
	if p.client == nil {
		return nil, errors.New("not connected to MongoDB server")
	}
	return p.client.Database(p.Database).Collection(p.Collection), nil
}

// InsertCustomers writes all records with one ordered InsertMany
func (p *Provider) InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error) {
	coll, err := p.collection()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			// ordered inserts stop at the first failing document
			inserted = bwe.WriteErrors[0].Index
		}
		return inserted, fmt.Errorf("insertMany into %s failed: %w", p.Target(), err)
	}

	return len(res.InsertedIDs), nil
}

// CountCustomers returns the number of documents in the collection
func (p *Provider) CountCustomers(ctx context.Context) (int64, error) {
	coll, err := p.collection()
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %s: %w", p.Target(), err)
	}
	return n, nil
}

// FindCustomerByEmail returns the first document whose email matches
func (p *Provider) FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error) {
	coll, err := p.collection()
	if err != nil {
		return nil, err
	}

	var rec fixtures.CustomerRecord
	err = coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer %s: %w", email, err)
	}
	return &rec, nil
}

// ListCustomers returns every document in natural order
func (p *Provider) ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error) {
	coll, err := p.collection()
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", p.Target(), err)
	}

	var records []fixtures.CustomerRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode documents from %s: %w", p.Target(), err)
	}
	return records, nil
}

// Factory creates MongoDB providers
type Factory struct{}

// Create returns a new Provider instance
func (f *Factory) Create(cfg config.TargetConfig) (common.Provider, error) {
	// the database in the URI path is the one written to
	database := cfg.Database
	if cfg.URI != "" {
		if cs, err := connstring.ParseAndValidate(cfg.URI); err == nil && cs.Database != "" {
			database = cs.Database
		}
	}

	return &Provider{
		URI:            cfg.URI,
		Host:           cfg.Host,
		Port:           cfg.PortNumber(),
		User:           cfg.Username,
		Password:       cfg.Password,
		AuthSource:     cfg.AuthSource,
		Database:       database,
		Collection:     cfg.Collection,
		ConnectTimeout: cfg.Timeout(),
	}, nil
}

func init() {
	// Register this provider with the database package
	common.RegisterProvider(config.TargetMongoDB, &Factory{})
}
