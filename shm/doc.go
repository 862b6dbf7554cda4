// Package shm provides shared arrays for rank groups: every rank writes
// through its own local window and reads the whole array through the full
// view.
//
// An Array is created collectively. Each rank contributes the length of its
// local window; the windows are laid out contiguously in rank order over a
// single backing region. On unix the backing is an anonymous shared mapping
// (golang.org/x/sys/unix), so the region stays shareable with forked helper
// processes; elsewhere it is ordinary heap memory. Within one process the
// Sync barrier provides all ordering either way.
//
// The write discipline mirrors one-sided shared memory: ranks write only
// their own window (or a designated writer fills the full view), then the
// group barriers and calls Sync before anyone reads. Arrays are freed
// exactly once, collectively. Using an array after Free, or freeing it
// twice, is a programming error and panics.
//
// Element types must be fixed-size value types without pointers.
package shm
