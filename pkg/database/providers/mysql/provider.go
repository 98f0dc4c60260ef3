// Package mysql provides the MySQL seeding target
package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
)

// ER_DUP_ENTRY
const errDuplicateEntry = 1062

// customerRow is the table layout for customer records
type customerRow struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	Name       string  `gorm:"size:255;not null"`
	Email      string  `gorm:"size:255;not null;index"`
	TotalSpent float64 `gorm:"type:decimal(12,2);not null"`
	Tags       tagList `gorm:"type:json"`
}

func toRow(rec fixtures.CustomerRecord) customerRow {
	return customerRow{
		Name:       rec.Name,
		Email:      rec.Email,
		TotalSpent: rec.TotalSpent,
		Tags:       tagList(rec.Tags),
	}
}

func (r customerRow) record() fixtures.CustomerRecord {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return fixtures.CustomerRecord{
		Name:       r.Name,
		Email:      r.Email,
		TotalSpent: r.TotalSpent,
		Tags:       tags,
	}
}

// Provider implements the common.Provider interface for MySQL
type Provider struct {
	DSN            string
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Table          string
	ConnectTimeout time.Duration
	Debug          bool

	db *gorm.DB
}

// NewWithDB returns a provider around an open gorm connection
func NewWithDB(db *gorm.DB, database, table string) *Provider {
	return &Provider{
		Database: database,
		Table:    table,
		db:       db,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return config.TargetMySQL
}

// Target returns database.table
func (p *Provider) Target() string {
	return p.Database + "." + p.Table
}

// driverConfig builds the go-sql-driver configuration. An empty dbName connects to the server only.
func (p *Provider) driverConfig(dbName string) (*mysqldriver.Config, error) {
	var cfg *mysqldriver.Config
	if p.DSN != "" {
		parsed, err := mysqldriver.ParseDSN(p.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "invalid MySQL DSN")
		}
		cfg = parsed
	} else {
		cfg = mysqldriver.NewConfig()
		cfg.User = p.User
		cfg.Passwd = p.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}

	cfg.DBName = dbName
	cfg.ParseTime = true
	if p.ConnectTimeout > 0 {
		cfg.Timeout = p.ConnectTimeout
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg, nil
}

// FormatDSN returns the DSN used for the target database
func (p *Provider) FormatDSN() (string, error) {
	cfg, err := p.driverConfig(p.Database)
	if err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

func (p *Provider) gormConfig() *gorm.Config {
	logLevel := logger.Silent
	if p.Debug {
		logLevel = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}
}

// Validate ensures the provider configuration is valid
func (p *Provider) Validate() error {
	if p.db == nil && p.DSN == "" {
		if p.Host == "" {
			return errors.New("MySQL host is required")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("invalid MySQL port: %d", p.Port)
		}
		if p.User == "" {
			return errors.New("MySQL user is required")
		}
	}
	if p.Database == "" {
		return errors.New("MySQL database is required")
	}
	if p.Table == "" {
		return errors.New("MySQL table is required")
	}
	return nil
}

// Connect creates the database if needed, opens it and migrates the customer table
func (p *Provider) Connect(ctx context.Context) error {
	if p.db != nil {
		return p.Ping(ctx)
	}

	if err := p.ensureDatabase(ctx); err != nil {
		return err
	}

	dsn, err := p.FormatDSN()
	if err != nil {
		return err
	}

	db, err := gorm.Open(mysql.Open(dsn), p.gormConfig())
	if err != nil {
		return errors.Wrapf(err, "failed to open MySQL database %s", p.Database)
	}
	p.db = db

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return err
	}

	if err := p.db.WithContext(ctx).Table(p.Table).AutoMigrate(&customerRow{}); err != nil {
		p.Close()
		return errors.Wrapf(err, "failed to migrate table %s", p.Target())
	}

	return nil
}

// ensureDatabase creates the target database, as MongoDB does implicitly on first write
func (p *Provider) ensureDatabase(ctx context.Context) error {
	cfg, err := p.driverConfig("")
	if err != nil {
		return err
	}

	server, err := gorm.Open(mysql.Open(cfg.FormatDSN()), p.gormConfig())
	if err != nil {
		return errors.Wrapf(err, "failed to open MySQL connection to %s", cfg.Addr)
	}
	sqlDB, err := server.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get MySQL connection")
	}
	defer sqlDB.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4", quoteIdentifier(p.Database))
	if err := server.WithContext(ctx).Exec(stmt).Error; err != nil {
		return errors.Wrapf(err, "failed to create database %s", p.Database)
	}
	return nil
}

// quoteIdentifier quotes a MySQL identifier, doubling embedded backticks
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Ping checks the connection is alive
func (p *Provider) Ping(ctx context.Context) error {
	if p.db == nil {
		return errors.New("not connected to MySQL server")
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get MySQL connection")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping MySQL server")
	}
	return nil
}

// Close closes the database connection
func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	p.db = nil
	if err != nil {
		return errors.Wrap(err, "failed to get MySQL connection")
	}
	return sqlDB.Close()
}

// InsertCustomers writes all records in one multi-row INSERT inside a transaction
func (p *Provider) InsertCustomers(ctx context.Context, records []fixtures.CustomerRecord) (int, error) {
	if p.db == nil {
		return 0, errors.New("not connected to MySQL server")
	}
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]customerRow, len(records))
	for i, rec := range records {
		rows[i] = toRow(rec)
	}

	res := p.db.WithContext(ctx).Table(p.Table).Create(&rows)
	if res.Error != nil {
		var myErr *mysqldriver.MySQLError
		if errors.As(res.Error, &myErr) && myErr.Number == errDuplicateEntry {
			return 0, errors.Wrapf(res.Error, "duplicate entry in %s", p.Target())
		}
		return 0, errors.Wrapf(res.Error, "failed to insert into %s", p.Target())
	}

	return int(res.RowsAffected), nil
}

// CountCustomers returns the number of rows in the table
func (p *Provider) CountCustomers(ctx context.Context) (int64, error) {
	if p.db == nil {
		return 0, errors.New("not connected to MySQL server")
	}
	var n int64
	if err := p.db.WithContext(ctx).Table(p.Table).Count(&n).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count rows in %s", p.Target())
	}
	return n, nil
}

// FindCustomerByEmail returns the first row whose email matches
func (p *Provider) FindCustomerByEmail(ctx context.Context, email string) (*fixtures.CustomerRecord, error) {
	if p.db == nil {
		return nil, errors.New("not connected to MySQL server")
	}

	var row customerRow
	err := p.db.WithContext(ctx).Table(p.Table).Where("email = ?", email).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find customer %s", email)
	}

	rec := row.record()
	return &rec, nil
}

// ListCustomers returns every row in insertion order
func (p *Provider) ListCustomers(ctx context.Context) ([]fixtures.CustomerRecord, error) {
	if p.db == nil {
		return nil, errors.New("not connected to MySQL server")
	}

	var rows []customerRow
	if err := p.db.WithContext(ctx).Table(p.Table).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list rows in %s", p.Target())
	}

	records := make([]fixtures.CustomerRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// Factory creates MySQL providers
type Factory struct {
	Debug bool
}

// Create returns a new Provider instance
func (f *Factory) Create(cfg config.TargetConfig) (common.Provider, error) {
	// the database named in the DSN is the one written to
	database := cfg.Database
	if cfg.URI != "" {
		if parsed, err := mysqldriver.ParseDSN(cfg.URI); err == nil && parsed.DBName != "" {
			database = parsed.DBName
		}
	}

	return &Provider{
		DSN:            cfg.URI,
		Host:           cfg.Host,
		Port:           cfg.PortNumber(),
		User:           cfg.Username,
		Password:       cfg.Password,
		Database:       database,
		Table:          cfg.Collection,
		ConnectTimeout: cfg.Timeout(),
		Debug:          f.Debug || config.CFG.Debug,
	}, nil
}

func init() {
	// Register this provider with the database package
	common.RegisterProvider(config.TargetMySQL, &Factory{})
}
