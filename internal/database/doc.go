// Package database provides the data access layer for the library.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, admin seeding, table stats
//	├── books/           # Catalog CRUD and availability search
//	├── loans/           # Borrowing history and loan reporting
//	├── users/           # Account lookups and listings
//	└── audit/           # Append-only action log ("logs" table)
//
// Opening and closing loans is not a repository concern: the circulation
// package runs those as transactions directly on the *gorm.DB so that the
// book status and the loan row always change together.
//
// # Drivers
//
// SQLite is the default store. Set DATABASE_DRIVER=postgres and DATABASE_URL
// to run against PostgreSQL instead.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	loansRepo := loans.NewRepository(db.DB)
//
//	available, err := booksRepo.SearchAvailable(ctx, "austen")
//	history, err := loansRepo.GetHistoryForUser(ctx, userID)
package database
