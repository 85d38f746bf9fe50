// Package runstore persists run records in SQLite. The in-memory progress
// registry forgets a run once its last observer detaches; the store is the
// durable record that lets a client ask about a finished run afterwards.
// Terminal records are retained for a configured number of days and pruned by
// a janitor sweep.
package runstore
