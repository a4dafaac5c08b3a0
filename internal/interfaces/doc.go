// Package interfaces documents the core abstractions used throughout the application.
//
// Services depend on narrow interfaces declared where they are consumed, and
// concrete types are wired together in internal/entrypoint.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CatalogSearcher, HistoryReader: reads used by circulation (internal/circulation/service.go)
//   - Catalog, LoanLedger, UserDirectory: storage used by the admin service (internal/admin/service.go)
//   - AccountCreator: account provisioning with a role (internal/admin/service.go)
//
// ## HTTP Interfaces
//
//   - Circulation: borrowing workflow for patron pages (internal/http/stores.go)
//   - Librarian: catalog and account management (internal/http/stores.go)
//   - ActionLog: action log writes and listings (internal/http/stores.go)
//   - TaskRunner: manual maintenance runs (internal/http/stores.go)
//   - Flasher: one-shot browser messages (internal/http/helpers.go)
//
// ## Background Work Interfaces
//
//   - TaskEnqueuer: scheduled enqueueing (internal/scheduler/maintenance.go)
//   - LogArchiver, OverdueRecorder: task processors (internal/tasks/)
//
// # Adding a New Maintenance Task
//
//  1. Define the task and its processor in internal/tasks/
//
//     type ReminderTask struct{}
//
//     func (t ReminderTask) Config() backlite.QueueConfig {
//         return backlite.QueueConfig{Name: QueueReminders, MaxAttempts: 1}
//     }
//
//  2. Add it to Types and NewTask in internal/tasks/registry.go
//
//  3. Register its queue in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the checks of this module.
package interfaces
