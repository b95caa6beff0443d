// Package snapshots holds the pure snapshot versioning logic: canonical
// serialization and hashing of estimate payloads, construction of new
// snapshot rows (plain, forked drafts and restores), integrity verification
// and the chronological listing with cost deltas.
//
// Nothing in this package touches storage. Callers persist the rows it builds.
package snapshots
