package shm

import (
	"os"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"github.com/yanun0323/logs"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// CellSize is the byte width of a cell.
const CellSize = 8

// Region is a mapped shared memory segment viewed as a rows x cols matrix.
// Reads after Close return zero values; mutators return ErrSegmentClosed.
type Region struct {
	name  string
	path  string
	rows  int
	cols  int
	role  Role
	mem   mmap.MMap
	cells []float64
	lock  *ownerLock

	closed atomic.Bool
}

// Create allocates a zero-filled segment and returns its Owner handle.
//
// A segment left behind by a crashed owner is attached, released and the
// creation retried exactly once. A segment whose owner lock is still held
// fails with ErrOwnerActive.
func Create(name string, rows, cols int, opts ...Option) (*Region, error) {
	if err := validate(name, rows, cols); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	path := segmentPath(o.dir, name)

	lock, err := acquireOwnerLock(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create segment %s", name)
	}

	r, err := createSegment(name, path, rows, cols)
	if errors.Is(err, exception.ErrSegmentExists) {
		logs.Infof("shm: segment %s exists without a live owner, reclaim it", name)
		if err := reclaim(name, path); err != nil {
			_ = lock.release()
			return nil, errors.Wrapf(err, "reclaim segment %s", name)
		}
		r, err = createSegment(name, path, rows, cols)
	}
	if err != nil {
		_ = lock.release()
		return nil, errors.Wrapf(err, "create segment %s", name)
	}

	r.lock = lock
	return r, nil
}

// Attach maps an existing segment. The handle is a Reader unless AsPeer is
// given. The segment byte size must equal rows*cols*8.
func Attach(name string, rows, cols int, opts ...Option) (*Region, error) {
	if err := validate(name, rows, cols); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	role := RoleReader
	if o.peer {
		role = RolePeer
	}

	r, err := attachSegment(name, segmentPath(o.dir, name), rows, cols, role)
	if err != nil {
		return nil, errors.Wrapf(err, "attach segment %s", name)
	}
	return r, nil
}

// Exists reports whether a segment file with the name is present.
func Exists(name string, opts ...Option) bool {
	o := buildOptions(opts)
	_, err := os.Stat(segmentPath(o.dir, name))
	return err == nil
}

func validate(name string, rows, cols int) error {
	if strings.TrimSpace(name) == "" {
		return exception.ErrEmptySegmentName
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(exception.ErrInvalidArgument, "segment name %q contains a path separator", name)
	}
	if rows <= 0 || cols <= 0 {
		return errors.Wrapf(exception.ErrInvalidShape, "segment %s rows %d cols %d", name, rows, cols)
	}
	return nil
}

func createSegment(name, path string, rows, cols int) (*Region, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, exception.ErrSegmentExists
		}
		return nil, err
	}
	defer file.Close()

	cleanup := func() {
		_ = os.Remove(path)
	}

	size := int64(rows) * int64(cols) * CellSize
	if err := file.Truncate(size); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "resize segment")
	}

	mem, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "mmap segment")
	}

	r := newRegion(name, path, rows, cols, RoleOwner, mem)
	clear(r.cells)
	return r, nil
}

func attachSegment(name, path string, rows, cols int, role Role) (*Region, error) {
	flag, prot := os.O_RDONLY, mmap.RDONLY
	if role.CanWrite() {
		flag, prot = os.O_RDWR, mmap.RDWR
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exception.ErrSegmentNotFound
		}
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat segment")
	}
	want := int64(rows) * int64(cols) * CellSize
	if info.Size() != want {
		return nil, errors.Wrapf(exception.ErrSegmentShape, "size %d bytes, want %d (%dx%d)", info.Size(), want, rows, cols)
	}

	mem, err := mmap.Map(file, prot, 0)
	if err != nil {
		return nil, errors.Wrap(err, "mmap segment")
	}

	return newRegion(name, path, rows, cols, role, mem), nil
}

// reclaim attaches a stale segment regardless of its shape, releases the
// mapping and unlinks it.
func reclaim(name, path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	info, err := file.Stat()
	if err == nil && info.Size() > 0 {
		if mem, err := mmap.Map(file, mmap.RDWR, 0); err == nil {
			_ = mem.Unmap()
		}
	}
	_ = file.Close()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	logs.Infof("shm: stale segment %s released", name)
	return nil
}

func newRegion(name, path string, rows, cols int, role Role, mem mmap.MMap) *Region {
	return &Region{
		name:  name,
		path:  path,
		rows:  rows,
		cols:  cols,
		role:  role,
		mem:   mem,
		cells: unsafe.Slice((*float64)(unsafe.Pointer(&mem[0])), rows*cols),
	}
}

// Close releases the local mapping. The Owner also unlinks the segment and
// drops its owner lock; other handles keep their mapping until they close.
// Close is idempotent.
func (r *Region) Close() error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	r.cells = nil

	var firstErr error
	if err := r.mem.Unmap(); err != nil {
		firstErr = errors.Wrapf(err, "unmap segment %s", r.name)
	}
	r.mem = nil

	if r.role == RoleOwner {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = errors.Wrapf(err, "unlink segment %s", r.name)
		}
		if err := r.lock.release(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "release owner lock %s", r.name)
		}
	}
	return firstErr
}

func (r *Region) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Path returns the backing file of the segment.
func (r *Region) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

func (r *Region) Rows() int {
	if r == nil {
		return 0
	}
	return r.rows
}

func (r *Region) Cols() int {
	if r == nil {
		return 0
	}
	return r.cols
}

// Size returns the segment size in bytes.
func (r *Region) Size() int {
	if r == nil {
		return 0
	}
	return r.rows * r.cols * CellSize
}

func (r *Region) Role() Role {
	if r == nil {
		return _role_beg
	}
	return r.role
}

func (r *Region) IsOwner() bool {
	return r.Role() == RoleOwner
}

func (r *Region) Closed() bool {
	return r == nil || r.closed.Load()
}

// Get returns a cell. Negative rows count from the end; out of range cells
// read as zero.
func (r *Region) Get(row, col int) float64 {
	idx, ok := r.index(row, col)
	if !ok {
		return 0
	}
	return r.cells[idx]
}

// Row returns a copy of one row.
func (r *Region) Row(row int) []float64 {
	row, ok := r.rowIndex(row)
	if !ok {
		return nil
	}
	out := make([]float64, r.cols)
	copy(out, r.cells[row*r.cols:(row+1)*r.cols])
	return out
}

// Column returns a copy of one column limited to the rows of span.
func (r *Region) Column(col int, span Span) []float64 {
	if r.Closed() || col < 0 || col >= r.cols {
		return nil
	}
	lo, hi := span.Bounds(r.rows)
	out := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		out[i-lo] = r.cells[i*r.cols+col]
	}
	return out
}

// Extract returns a copy of the rows of span.
func (r *Region) Extract(span Span) [][]float64 {
	if r.Closed() {
		return nil
	}
	lo, hi := span.Bounds(r.rows)
	out := make([][]float64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		row := make([]float64, r.cols)
		copy(row, r.cells[i*r.cols:(i+1)*r.cols])
		out = append(out, row)
	}
	return out
}

// Snapshot returns a flat row-major copy of every cell.
func (r *Region) Snapshot() []float64 {
	if r.Closed() {
		return nil
	}
	out := make([]float64, len(r.cells))
	copy(out, r.cells)
	return out
}

// Set writes a cell.
func (r *Region) Set(row, col int, v float64) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	idx, ok := r.index(row, col)
	if !ok {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "segment %s cell (%d,%d) of %dx%d", r.name, row, col, r.rows, r.cols)
	}
	r.cells[idx] = v
	return nil
}

// SetRow overwrites one row. len(values) must equal Cols.
func (r *Region) SetRow(row int, values []float64) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if len(values) != r.cols {
		return errors.Wrapf(exception.ErrInvalidArgument, "segment %s row length %d, want %d", r.name, len(values), r.cols)
	}
	idx, ok := r.rowIndex(row)
	if !ok {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "segment %s row %d of %d", r.name, row, r.rows)
	}
	copy(r.cells[idx*r.cols:(idx+1)*r.cols], values)
	return nil
}

// Fill sets every cell to v.
func (r *Region) Fill(v float64) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	for i := range r.cells {
		r.cells[i] = v
	}
	return nil
}

// FillRow sets every cell of a row to v.
func (r *Region) FillRow(row int, v float64) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	idx, ok := r.rowIndex(row)
	if !ok {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "segment %s row %d of %d", r.name, row, r.rows)
	}
	line := r.cells[idx*r.cols : (idx+1)*r.cols]
	for i := range line {
		line[i] = v
	}
	return nil
}

// Roll discards the oldest row: rows shift forward by one in place and the
// newest row becomes all zero. The row count never changes.
func (r *Region) Roll() error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	copy(r.cells, r.cells[r.cols:])
	clear(r.cells[(r.rows-1)*r.cols:])
	return nil
}

// LoadUint64 atomically reads a cell as an unsigned counter.
func (r *Region) LoadUint64(row, col int) uint64 {
	p, ok := r.word(row, col)
	if !ok {
		return 0
	}
	return atomic.LoadUint64(p)
}

// StoreUint64 atomically writes a cell as an unsigned counter.
func (r *Region) StoreUint64(row, col int, v uint64) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	p, ok := r.word(row, col)
	if !ok {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "segment %s cell (%d,%d)", r.name, row, col)
	}
	atomic.StoreUint64(p, v)
	return nil
}

// AddUint64 atomically adds delta to a counter cell and returns the new value.
func (r *Region) AddUint64(row, col int, delta uint64) (uint64, error) {
	if err := r.checkWrite(); err != nil {
		return 0, err
	}
	p, ok := r.word(row, col)
	if !ok {
		return 0, errors.Wrapf(exception.ErrIndexOutOfRange, "segment %s cell (%d,%d)", r.name, row, col)
	}
	return atomic.AddUint64(p, delta), nil
}

func (r *Region) checkWrite() error {
	if r == nil {
		return exception.ErrNilInstance
	}
	if r.closed.Load() {
		return errors.Wrapf(exception.ErrSegmentClosed, "segment %s", r.name)
	}
	if !r.role.CanWrite() {
		return errors.Wrapf(exception.ErrWriteOnReader, "segment %s", r.name)
	}
	return nil
}

func (r *Region) rowIndex(row int) (int, bool) {
	if r.Closed() {
		return 0, false
	}
	if row < 0 {
		row += r.rows
	}
	if row < 0 || row >= r.rows {
		return 0, false
	}
	return row, true
}

func (r *Region) index(row, col int) (int, bool) {
	row, ok := r.rowIndex(row)
	if !ok || col < 0 || col >= r.cols {
		return 0, false
	}
	return row*r.cols + col, true
}

func (r *Region) word(row, col int) (*uint64, bool) {
	idx, ok := r.index(row, col)
	if !ok {
		return nil, false
	}
	return (*uint64)(unsafe.Pointer(&r.cells[idx])), true
}
