package db

import (
	"fmt"

	"github.com/kasuganosora/battlerunner/config"
	dbmysql "github.com/kasuganosora/battlerunner/db/mysql"
	dbsqlite "github.com/kasuganosora/battlerunner/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	// ModeEmbedded keeps characters in buntdb; it has no gorm database.
	ModeEmbedded = "embedded"
)

// memoryDSN is a private in-memory sqlite database. Each Open gets its own.
const memoryDSN = "file::memory:"

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeMemory:
		return dbsqlite.Open(memoryDSN)
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	case ModeEmbedded:
		return nil, fmt.Errorf("db: mode %q has no sql database", cfg.Mode)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
