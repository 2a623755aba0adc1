// Package db opens the GORM connections used by the SQL storage backends.
package db

import (
	"fmt"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/zulandar/scriptyard/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN. The password is omitted when empty.
func DSN(cfg config.MySQLConfig) string {
	c := gomysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Database
	c.ParseTime = true
	return c.FormatDSN()
}

// ConnectMySQL opens a GORM connection to a MySQL database.
func ConnectMySQL(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	return db, nil
}

// Connect opens the database selected by the storage config. It returns an
// error for backends that are not SQL-based.
func Connect(cfg config.StorageConfig) (*gorm.DB, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.Path)
	case config.BackendMySQL:
		return ConnectMySQL(cfg.MySQL)
	default:
		return nil, fmt.Errorf("db: backend %q is not a SQL backend", cfg.Backend)
	}
}

// Close releases the underlying sql.DB.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
