package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultTasksDatabasePath is used for the task queue when the main store is not a local file
	DefaultTasksDatabasePath = "./library-tasks.db"
)

// Default administrator seeded into an empty database.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)
