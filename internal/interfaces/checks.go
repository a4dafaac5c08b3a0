package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/admin"
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ circulation.CatalogSearcher = (*books.Repository)(nil)
var _ circulation.HistoryReader = (*loans.Repository)(nil)

var _ admin.Catalog = (*books.Repository)(nil)
var _ admin.LoanLedger = (*loans.Repository)(nil)
var _ admin.UserDirectory = (*users.Repository)(nil)
var _ admin.AccountCreator = (*auth.Service)(nil)
var _ admin.ActionLogger = (*audit.Service)(nil)

// =============================================================================
// HTTP Controllers
// =============================================================================

var _ http.Circulation = (*circulation.Service)(nil)
var _ http.Librarian = (*admin.Service)(nil)
var _ http.ActionLog = (*audit.Service)(nil)
var _ http.TaskRunner = (*tasks.Client)(nil)
var _ http.Flasher = (*auth.SessionManager)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
var _ tasks.LogArchiver = (*audit.Service)(nil)
var _ tasks.OverdueRecorder = (*admin.Service)(nil)
