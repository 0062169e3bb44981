// Package transport runs commands in and syncs files into a running container.
//
// A Manager owns at most one live Connection. Each call resolves connection
// options from configuration and instance state; equal options reuse the
// cached connection, anything else closes it and builds a new one.
//
// Every successful Execute commits the container into the instance's work
// image, tagged latest, so each step leaves a snapshot behind. A command that
// exits non-zero fails with *domain.ExecFailedError before anything is
// committed.
//
// The Manager serializes access to its connection. A Connection must not be
// shared outside the callback passed to Manager.Connection.
package transport
