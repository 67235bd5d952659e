// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── users/           # User listing and role management
//	├── locations/       # Locations and memberships
//	├── shelves/         # Shelves inside a location
//	├── books/           # Books, loans and the checkout state machine
//	├── ratings/         # Per-user book ratings
//	├── invitations/     # Location invitation tokens
//	├── removals/        # Book removal requests
//	├── signups/         # Signup approval requests
//	├── settings/        # Application settings
//	└── audit/           # Audit event log
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./shelfshare.db")
//	booksRepo := books.NewRepository(db.DB)
//	err = booksRepo.Checkout(bookID, userID, nil)
//
// # State Transitions
//
// Status changes (checkout, checkin, invitation use, request decisions) are
// single UPDATE statements guarded by a WHERE clause on the current state.
// When the guard fails no row changes and the repository returns
// ErrNoRowsChanged; services translate that into a conflict.
//
// # Cascades
//
// Foreign key constraints are not created by migrations. Deleting a location
// or a book removes dependent rows explicitly inside one transaction.
package database
