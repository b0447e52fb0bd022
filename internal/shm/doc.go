/*
Package shm maps named OS shared-memory segments as fixed-shape matrices of
float64 cells.

# Layout
  - row-major, rows*cols*8 bytes, native IEEE-754 doubles
  - no header and no version tag: a layout drift between producer and
    reader shows up only as ErrSegmentShape on Attach

# Roles
  - Owner: creates, writes and finally unlinks the segment
  - Reader: attaches by name, reads only; every mutator fails with
    ErrWriteOnReader
  - Peer: attaches by name and may write, never unlinks (engine control
    state written from a child process)

Writes are plain stores without fencing. A reader may observe a row in the
middle of an update; the next poll sees the settled value.

On Linux segments live in /dev/shm so any shm_open based reader sees the same
name. MARKETSHM_SHM_DIR overrides the directory.
*/
package shm
