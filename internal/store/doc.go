// Package store declares the persistence contracts for users, templates and
// video tasks, the not-found and conflict sentinels they return, and the
// transaction helper services use to group writes.
package store
