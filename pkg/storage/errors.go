package storage

import "errors"

// ErrNotFound is returned by lookups that find nothing; it is not a
// failure, callers treat it as an empty result (spec §7, taxonomy #4).
var ErrNotFound = errors.New("storage: not found")

// ErrSchemaTooNew is returned at Open when the database's stored
// migration_level exceeds CurrentMigrationLevel, or when a migration
// step names a level this binary has no handler for. The binary is
// older than the data; proceeding would silently diverge (spec §7,
// taxonomy #2).
var ErrSchemaTooNew = errors.New("storage: database schema is newer than this binary understands")

// ErrInvalidOffset is returned by GetByOffset when the offset does not
// name a valid event record.
var ErrInvalidOffset = errors.New("storage: offset does not point at a valid event")

// ErrMalformedEvent is a precondition failure: the caller tried to
// append an event that fails basic structural checks (spec §7,
// taxonomy #5).
var ErrMalformedEvent = errors.New("storage: malformed event")
