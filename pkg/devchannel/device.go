package devchannel

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DeviceName is the misc device's registered name, looked up in
// /proc/misc. It names plockd's request channel device, the role the
// original's "gdlm_plock" device plays.
const DeviceName = "plock_dev"

// EnsureNode creates the character device node at path if it does not
// already exist (or recreates it if its device numbers are stale),
// using the major/minor pair discovered via MiscMajor/MiscMinor.
// golang.org/x/sys/unix is used directly for Mknod/Stat/Mkdev rather
// than the stdlib os package, which has no portable way to create a
// device node — grounded on the pack's direct golang.org/x/sys usage.
func EnsureNode(path string, major, minor uint32) error {
	dev := unix.Mkdev(major, minor)

	var st unix.Stat_t
	err := unix.Stat(path, &st)
	switch {
	case err == nil:
		if st.Mode&unix.S_IFMT == unix.S_IFCHR && uint32(st.Rdev) == uint32(dev) {
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil {
			return fmt.Errorf("devchannel: remove stale node %s: %w", path, rmErr)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("devchannel: stat %s: %w", path, err)
	}

	if err := unix.Mknod(path, unix.S_IFCHR|0600, int(dev)); err != nil {
		return fmt.Errorf("devchannel: mknod %s: %w", path, err)
	}
	return nil
}

// Open opens the device node for reading and writing fixed-size
// WireRequest records.
func Open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("devchannel: open %s: %w", path, err)
	}
	return f, nil
}

// ReadRequest reads exactly one fixed-size WireRequest record from f.
func ReadRequest(f *os.File) (WireRequest, error) {
	var buf [recordSize]byte
	if _, err := readFull(f, buf[:]); err != nil {
		return WireRequest{}, fmt.Errorf("devchannel: read request: %w", err)
	}
	return Decode(buf[:])
}

// WriteReply writes w back to f, typically with Result set and the
// rest of the fields matching the request it answers, mirroring the
// original writing its result back onto control_fd.
func WriteReply(f *os.File, w WireRequest) error {
	buf := Encode(w)
	if _, err := f.Write(buf[:]); err != nil {
		return fmt.Errorf("devchannel: write reply: %w", err)
	}
	return nil
}

// FileDevice adapts an open device node *os.File to the small
// ReadRequest/WriteReply surface pkg/daemon drives its event loop
// through, so daemon code never imports os directly for this concern.
type FileDevice struct {
	f *os.File
}

// NewFileDevice wraps an already-opened device node.
func NewFileDevice(f *os.File) *FileDevice {
	return &FileDevice{f: f}
}

// ReadRequest reads one WireRequest record from the underlying file.
func (d *FileDevice) ReadRequest() (WireRequest, error) {
	return ReadRequest(d.f)
}

// WriteReply writes w back to the underlying file.
func (d *FileDevice) WriteReply(w WireRequest) error {
	return WriteReply(d.f, w)
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("devchannel: short read (%d of %d bytes)", total, len(buf))
		}
	}
	return total, nil
}
