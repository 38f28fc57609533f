// Package ioring provides a minimal, hand-rolled io_uring binding used
// to drive unbuffered append writes without pulling in a full io_uring
// wrapper library. It speaks the kernel ABI directly via
// golang.org/x/sys/unix syscalls: io_uring_setup, io_uring_enter, and
// the mmap'd submission/completion rings.
//
// Only the two opcodes this module needs are supported: IORING_OP_WRITE
// and IORING_OP_FSYNC. Anything more (poll-mode, registered buffers,
// linked SQEs) is out of scope — this is a durability primitive, not a
// general io_uring client.
package ioring

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	opWrite = 23 // IORING_OP_WRITE
	opFsync = 3  // IORING_OP_FSYNC

	fsyncDataSync = 1 << 0 // IORING_FSYNC_DATASYNC: fdatasync semantics

	offSQRing = 0x00000000 // IORING_OFF_SQ_RING
	offCQRing = 0x08000000 // IORING_OFF_CQ_RING
	offSQEs   = 0x10000000 // IORING_OFF_SQES

	enterGetEvents = 1 << 0 // IORING_ENTER_GETEVENTS

	// appendOffset tells the kernel to use (and advance) the file's
	// current position, honoring O_APPEND the same way write(2) does.
	appendOffset = ^uint64(0)
)

// sqe64 mirrors struct io_uring_sqe from linux/io_uring.h for the
// subset of fields IORING_OP_WRITE and IORING_OP_FSYNC use.
type sqe64 struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	length      uint32
	opFlags     uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFDIn  int32
	addr3       uint64
	pad         uint64
}

// cqe16 mirrors struct io_uring_cqe.
type cqe16 struct {
	userData uint64
	res      int32
	flags    uint32
}

// sqOffsets mirrors struct io_sqring_offsets exactly; the kernel fills
// this in during io_uring_setup so field order must match the ABI.
type sqOffsets struct {
	head, tail, ringMask, ringEntries, flags, dropped, array, resv1 uint32
	userAddr                                                        uint64
}

// cqOffsets mirrors struct io_cqring_offsets. Note the field order
// diverges from sqOffsets after ringEntries (overflow/cqes vs.
// flags/dropped/array) even though both structs are 40 bytes.
type cqOffsets struct {
	head, tail, ringMask, ringEntries, overflow, cqes, flags, resv1 uint32
	userAddr                                                        uint64
}

type params struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFD         uint32
	resv         [3]uint32
	sqOff        sqOffsets
	cqOff        cqOffsets
}

// Result is the outcome of a single submitted operation.
type Result struct {
	Value int32 // bytes transferred, or -errno
	Err   error
}

// Ring is a single-submitter, single-waiter io_uring instance: exactly
// the shape the batcher needs, since only one write (or fsync) is ever
// in flight at a time for a given log file.
type Ring struct {
	ringFD int
	params params

	sqRing []byte
	sqes   []byte
	cqRing []byte

	sqMask uint32
	cqMask uint32
}

// NewRing creates an io_uring instance with `entries` submission slots.
// Returns syscall.ENOSYS if the running kernel has no io_uring support.
func NewRing(entries uint32) (*Ring, error) {
	var p params
	p.sqEntries = entries

	r1, _, errno := syscall.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, errno
	}
	ringFD := int(r1)

	sqSize := p.sqOff.array + p.sqEntries*4
	sqRing, err := unix.Mmap(ringFD, offSQRing, int(sqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		syscall.Close(ringFD)
		return nil, fmt.Errorf("mmap sq ring: %w", err)
	}

	sqesSize := int(p.sqEntries) * int(unsafe.Sizeof(sqe64{}))
	sqes, err := unix.Mmap(ringFD, offSQEs, sqesSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqRing)
		syscall.Close(ringFD)
		return nil, fmt.Errorf("mmap sqes: %w", err)
	}

	cqSize := p.cqOff.cqes + p.cqEntries*uint32(unsafe.Sizeof(cqe16{}))
	cqRing, err := unix.Mmap(ringFD, offCQRing, int(cqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqes)
		unix.Munmap(sqRing)
		syscall.Close(ringFD)
		return nil, fmt.Errorf("mmap cq ring: %w", err)
	}

	sqMask := *(*uint32)(unsafe.Pointer(&sqRing[p.sqOff.ringMask]))
	cqMask := *(*uint32)(unsafe.Pointer(&cqRing[p.cqOff.ringMask]))

	return &Ring{
		ringFD: ringFD,
		params: p,
		sqRing: sqRing,
		sqes:   sqes,
		cqRing: cqRing,
		sqMask: sqMask,
		cqMask: cqMask,
	}, nil
}

// Close tears down the ring's mmap'd regions and the ring fd itself.
func (r *Ring) Close() error {
	unix.Munmap(r.cqRing)
	unix.Munmap(r.sqes)
	unix.Munmap(r.sqRing)
	return syscall.Close(r.ringFD)
}

func (r *Ring) head() *uint32  { return (*uint32)(unsafe.Pointer(&r.sqRing[r.params.sqOff.head])) }
func (r *Ring) tail() *uint32  { return (*uint32)(unsafe.Pointer(&r.sqRing[r.params.sqOff.tail])) }
func (r *Ring) cqHead() *uint32 { return (*uint32)(unsafe.Pointer(&r.cqRing[r.params.cqOff.head])) }
func (r *Ring) cqTail() *uint32 { return (*uint32)(unsafe.Pointer(&r.cqRing[r.params.cqOff.tail])) }

// submit writes one SQE and blocks until its CQE arrives. The ring is
// never used concurrently, so there is at most one SQE in flight.
func (r *Ring) submit(sqe sqe64) (Result, error) {
	tail := r.tail()
	head := r.head()
	if *tail-*head >= r.params.sqEntries {
		return Result{}, fmt.Errorf("ioring: submission queue full")
	}

	idx := *tail & r.sqMask
	slot := (*sqe64)(unsafe.Pointer(&r.sqes[uintptr(idx)*unsafe.Sizeof(sqe64{})]))
	*slot = sqe

	arrayBase := r.params.sqOff.array
	arraySlot := (*uint32)(unsafe.Pointer(&r.sqRing[arrayBase+idx*4]))
	*arraySlot = idx

	sfence()
	*tail++

	for {
		_, _, errno := syscall.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.ringFD), 1, 1, uintptr(enterGetEvents), 0, 0)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return Result{}, errno
		}
		break
	}

	return r.reapOne(), nil
}

func (r *Ring) reapOne() Result {
	cqHead := r.cqHead()
	cqTail := r.cqTail()
	for *cqHead == *cqTail {
		// The enter call above blocked for at least one completion;
		// this only loops if another waiter raced us, which cannot
		// happen on this single-submitter ring.
	}

	idx := *cqHead & r.cqMask
	cqesBase := r.params.cqOff.cqes
	cqe := (*cqe16)(unsafe.Pointer(&r.cqRing[cqesBase+idx*uint32(unsafe.Sizeof(cqe16{}))]))
	res := Result{Value: cqe.res}
	if cqe.res < 0 {
		res.Err = syscall.Errno(-cqe.res)
	}
	*cqHead++
	return res
}

// Write submits a single IORING_OP_WRITE for buf against fd at the
// file's current (O_APPEND-respecting) position.
func (r *Ring) Write(fd int, buf []byte) (Result, error) {
	if len(buf) == 0 {
		return Result{}, nil
	}
	return r.submit(sqe64{
		opcode: opWrite,
		fd:     int32(fd),
		off:    appendOffset,
		addr:   uint64(uintptr(unsafe.Pointer(&buf[0]))),
		length: uint32(len(buf)),
	})
}

// Fsync submits an IORING_OP_FSYNC with IORING_FSYNC_DATASYNC, the
// io_uring equivalent of fdatasync(2).
func (r *Ring) Fsync(fd int) (Result, error) {
	return r.submit(sqe64{
		opcode:  opFsync,
		fd:      int32(fd),
		opFlags: fsyncDataSync,
	})
}
