package rdb

import (
	"fmt"
	"net"
	"net/url"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"

	defaultMaxRetry      = 10
	defaultRetryInterval = 2 * time.Second
)

// Config describes how to reach the relational store
type Config struct {
	Dialect string
	Host    string
	Port    string
	User    string
	Pass    string
	Name    string
	SSLMode string // postgres only

	MaxRetry      int
	RetryInterval time.Duration
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// MySQLDSN renders the go-sql-driver connection string
func (c Config) MySQLDSN() string {
	cfg := mysqldrv.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Pass
	cfg.Net = "tcp"
	cfg.Addr = c.addr()
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// PostgresDSN renders a libpq style URL, shared by gorm and the LISTEN connection
func (c Config) PostgresDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Pass),
		Host:     c.addr(),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func (c Config) dialector() (gorm.Dialector, error) {
	switch c.Dialect {
	case DialectMySQL, "":
		return mysql.Open(c.MySQLDSN()), nil
	case DialectPostgres:
		return postgres.Open(c.PostgresDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", c.Dialect)
	}
}

// Open connects to the database, retrying while it comes up
func Open(c Config) (*gorm.DB, error) {
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}
	maxRetry := c.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	interval := c.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	var db *gorm.DB
	for i := range maxRetry {
		db, err = gorm.Open(dialector, &gorm.Config{})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
			} else if err = sqlDB.Ping(); err == nil {
				return db, nil
			} else {
				_ = sqlDB.Close()
			}
		}
		logrus.Warnf("failed to connect to %s (attempt %d/%d): %v", c.Dialect, i+1, maxRetry, err)
		time.Sleep(interval)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetry, err)
}

// Close releases the connection pool behind db
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
