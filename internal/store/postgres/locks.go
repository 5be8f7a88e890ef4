package postgres

// Advisory lock namespaces. Small, fixed integers scoping
// pg_advisory_xact_lock calls for administrative tasks (§5).
const (
	LockNamespaceCSRFSweep int64 = 1
	LockNamespaceMigration int64 = 2
)
