package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// sqliteParams keeps writers waiting on the lock instead of failing with SQLITE_BUSY.
const sqliteParams = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1"

// CountedTables are the tables reported by TableCounts.
var CountedTables = []string{"users", "books", "transactions", "logs"}

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

func NewDatabase(cfg config.Database) (*Database, error) {
	dialector, where, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	if driver == config.DriverSQLite {
		// A single connection serializes SQLite writers so that concurrent
		// borrow transactions queue up instead of racing for the write lock.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Transaction{},
		&entities.LogEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", where)

	return &Database{DB: db, Driver: driver}, nil
}

// openDialector returns the gorm dialector for the configured driver and a
// printable location that never contains credentials.
func openDialector(cfg config.Database) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.Path == "" {
			return nil, "", errors.New("database path is required for sqlite")
		}
		return sqlite.Open(sqliteDSN(cfg.Path)), cfg.Path, nil
	case config.DriverPostgres:
		if cfg.URL == "" {
			return nil, "", errors.New("DATABASE_URL is required for postgres")
		}
		return postgres.Open(cfg.URL), "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is still usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SeedAdmin creates the administrator account unless a user with that name exists.
// Returns true when a new account was created.
func (d *Database) SeedAdmin(username, passwordHash string) (bool, error) {
	var existing entities.User
	err := d.DB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up admin user: %w", err)
	}

	admin := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         entities.UserRoleAdmin,
	}
	if err := d.DB.Create(admin).Error; err != nil {
		return false, fmt.Errorf("failed to create admin user %s: %w", username, err)
	}
	log.Printf("Created default admin user: %s", username)
	return true, nil
}

// AdminExists reports whether at least one administrator account is present.
func (d *Database) AdminExists() (bool, error) {
	var count int64
	err := d.DB.Model(&entities.User{}).Where("role = ?", entities.UserRoleAdmin).Count(&count).Error
	return count > 0, err
}

// Tables lists the tables present in the connected database.
func (d *Database) Tables() ([]string, error) {
	return d.DB.Migrator().GetTables()
}

// TableCounts returns the number of rows in each of CountedTables.
func (d *Database) TableCounts() (map[string]int64, error) {
	counts := make(map[string]int64, len(CountedTables))
	for _, table := range CountedTables {
		var n int64
		if err := d.DB.Table(table).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
