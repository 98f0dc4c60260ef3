// Package postgresql provides the PostgreSQL seeding target
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

const (
	// PostgreSQL caps bind parameters per statement at 65535
	maxParams     = 65535
	columnsPerRow = 4

	uniqueViolation = "23505"
)

// Provider implements the common.Provider interface for PostgreSQL
type Provider struct {
	URI            string
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Table          string
	SSLMode        string
	ConnectTimeout time.Duration

	db *sql.DB
}

// NewWithDB returns a provider around an open connection
func NewWithDB(db *sql.DB, database, table string) *Provider {
	return &Provider{
		Database: database,
		Table:    table,
		db:       db,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return config.TargetPostgreSQL
}

// Target returns database.table
func (p *Provider) Target() string {
	return p.Database + "." + p.Table
}

// ConnectionString returns the connection string for dbName. A URI that names
// its own database is returned unchanged; otherwise dbName is added to it.
func (p *Provider) ConnectionString(dbName string) string {
	if p.URI != "" {
		if dbName == "" || uriDatabase(p.URI) != "" {
			return p.URI
		}
		if isURL(p.URI) {
			u, err := url.Parse(p.URI)
			if err != nil {
				return p.URI
			}
			u.Path = "/" + dbName
			return u.String()
		}
		return p.URI + " dbname=" + quoteParam(dbName)
	}

	params := []string{
		"host=" + quoteParam(p.Host),
		fmt.Sprintf("port=%d", p.Port),
		"user=" + quoteParam(p.User),
		"dbname=" + quoteParam(dbName),
	}
	if p.Password != "" {
		params = append(params, "password="+quoteParam(p.Password))
	}
	if p.SSLMode != "" {
		params = append(params, "sslmode="+quoteParam(p.SSLMode))
	}
	if p.ConnectTimeout > 0 {
		secs := int(p.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		params = append(params, fmt.Sprintf("connect_timeout=%d", secs))
	}
	return strings.Join(params, " ")
}

func isURL(uri string) bool {
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}

// uriDatabase returns the database named by a postgres:// URL or keyword/value string
func uriDatabase(uri string) string {
	if isURL(uri) {
		u, err := url.Parse(uri)
		if err != nil {
			return ""
		}
		return strings.TrimPrefix(u.Path, "/")
	}
	for _, field := range strings.Fields(uri) {
		if v, ok := strings.CutPrefix(field, "dbname="); ok {
			return strings.Trim(v, "'")
		}
	}
	return ""
}

// quoteParam quotes a libpq keyword/value parameter
func quoteParam(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Validate ensures the provider configuration is valid
func (p *Provider) Validate() error {
	if p.db == nil && p.URI == "" {
		if p.Host == "" {
			return errors.New("PostgreSQL host is required")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("invalid PostgreSQL port: %d", p.Port)
		}
		if p.User == "" {
			return errors.New("PostgreSQL user is required")
		}
	}
	if p.Database == "" {
		return errors.New("PostgreSQL database is required")
	}
	if p.Table == "" {
		return errors.New("PostgreSQL table is required")
	}
	return nil
}

// Connect opens the target database, creating it and the customer table when missing
func (p *Provider) Connect(ctx context.Context) error {
	if p.db != nil {
		return p.Ping(ctx)
	}

	if p.URI == "" {
		if err := p.ensureDatabase(ctx); err != nil {
			return err
		}
	}

	db, err := sql.Open("postgres", p.ConnectionString(p.Database))
	if err != nil {
		return errors.Wrap(err, "failed to open PostgreSQL connection")
	}
	p.db = db

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return err
	}

	if err := p.EnsureSchema(ctx); err != nil {
		p.Close()
		return err
	}

	return nil
}

// ensureDatabase creates the target database through the maintenance database
func (p *Provider) ensureDatabase(ctx context.Context) error {
	admin, err := sql.Open("postgres", p.ConnectionString("postgres"))
	if err != nil {
		return errors.Wrap(err, "failed to open PostgreSQL connection")
	}
	defer admin.Close()

	if err := admin.PingContext(ctx); err != nil {
		return errors.Wrapf(err, "failed to ping PostgreSQL server at %s:%d", p.Host, p.Port)
	}

	var exists bool
	err = admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", p.Database).Scan(&exists)
	if err != nil {
		return errors.Wrapf(err, "failed to look up database %s", p.Database)
	}
	if exists {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(p.Database)); err != nil {
		return errors.Wrapf(err, "failed to create database %s", p.Database)
	}
	return nil
}

// EnsureSchema creates the customer table if it does not exist
func (p *Provider) EnsureSchema(ctx context.Context) error {
	if p.db == nil {
		return errors.New("not connected to PostgreSQL server")
	}

	table := pq.QuoteIdentifier(p.Table)
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	total_spent NUMERIC(12,2) NOT NULL,
	tags TEXT[] NOT NULL DEFAULT '{}'
)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (email)", pq.QuoteIdentifier(p.Table+"_email_idx"), table),
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to create table %s", p.Target())
		}
	}
	return nil
}

// Ping checks the connection is alive
func (p *Provider) Ping(ctx context.Context) error {
	if p.db == nil {
		return errors.New("not connected to PostgreSQL server")
	}
	if err := p.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping PostgreSQL server")
	}
	return nil
}

// Close closes the database connection
func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// InsertCustomers writes all records with multi-row INSERTs in a single transaction
func (p *Provider) InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error) {
	if p.db == nil {
		return 0, errors.New("not connected to PostgreSQL server")
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	rowsPerStmt := maxParams / columnsPerRow
	inserted := 0
	for start := 0; start < len(records); start += rowsPerStmt {
		end := start + rowsPerStmt
		if end > len(records) {
			end = len(records)
		}

		query, args := p.insertStatement(records[start:end])
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return 0, errors.Wrapf(err, "duplicate entry in %s", p.Target())
			}
			return 0, errors.Wrapf(err, "failed to insert into %s", p.Target())
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(end - start)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit insert")
	}
	return inserted, nil
}

func (p *Provider) insertStatement(records []fixtures.CustomerRecord) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(pq.QuoteIdentifier(p.Table))
	sb.WriteString(" (name, email, total_spent, tags) VALUES ")

	args := make([]interface{}, 0, len(records)*columnsPerRow)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * columnsPerRow
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)

		tags := rec.Tags
		if tags == nil {
			tags = []string{}
		}
		args = append(args, rec.Name, rec.Email, rec.TotalSpent, pq.Array(tags))
	}
	return sb.String(), args
}

// CountCustomers returns the number of rows in the table
func (p *Provider) CountCustomers(ctx context.Context) (int64, error) {
	if p.db == nil {
		return 0, errors.New("not connected to PostgreSQL server")
	}

	var n int64
	query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(p.Table)
	if err := p.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed to count rows in %s", p.Target())
	}
	return n, nil
}

// FindCustomerByEmail returns the first row whose email matches
func (p *Provider) FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error) {
	if p.db == nil {
		return nil, errors.New("not connected to PostgreSQL server")
	}

	query := "SELECT name, email, total_spent, tags FROM " + pq.QuoteIdentifier(p.Table) +
		" WHERE email = $1 ORDER BY id LIMIT 1"

	var rec fixtures.CustomerRecord
	err := p.db.QueryRowContext(ctx, query, email).Scan(&rec.Name, &rec.Email, &rec.TotalSpent, pq.Array(&rec.Tags))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find customer %s", email)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}

// ListCustomers returns every row in insertion order
func (p *Provider) ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error) {
	if p.db == nil {
		return nil, errors.New("not connected to PostgreSQL server")
	}

	query := "SELECT name, email, total_spent, tags FROM " + pq.QuoteIdentifier(p.Table) + " ORDER BY id"
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list rows in %s", p.Target())
	}
	defer rows.Close()

	var records []fixtures.CustomerRecord
	for rows.Next() {
		var rec fixtures.CustomerRecord
		if err := rows.Scan(&rec.Name, &rec.Email, &rec.TotalSpent, pq.Array(&rec.Tags)); err != nil {
			return nil, errors.Wrap(err, "failed to scan customer row")
		}
		if rec.Tags == nil {
			rec.Tags = []string{}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating customer rows")
	}
	return records, nil
}

// Factory creates PostgreSQL providers
type Factory struct{}

// Create returns a new Provider instance
func (f *Factory) Create(cfg config.TargetConfig) (common.Provider, error) {
	// the database named in the URI is the one written to
	database := cfg.Database
	if db := uriDatabase(cfg.URI); db != "" {
		database = db
	}

	return &Provider{
		URI:            cfg.URI,
		Host:           cfg.Host,
		Port:           cfg.PortNumber(),
		User:           cfg.Username,
		Password:       cfg.Password,
		Database:       database,
		Table:          cfg.Collection,
		SSLMode:        cfg.SSLMode,
		ConnectTimeout: cfg.Timeout(),
	}, nil
}

func init() {
	// Register this provider with the database package
	common.RegisterProvider(config.TargetPostgreSQL, &Factory{})
}
