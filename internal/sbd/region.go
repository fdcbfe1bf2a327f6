// Package sbd implements the scalable binary distribution side channel: a
// per-host shared-memory region, guarded by a file-lock-based semaphore,
// through which a back-end's GDB publishes shared-object load requests
// without going through the overlay transport for every byte.
package sbd

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Direction discriminates which side of the handshake currently owns the
// region's contents.
type Direction byte

const (
	DirIdle     Direction = iota
	DirRequest            // back-end -> front-end: a load path is published
	DirResponse           // front-end -> back-end: file bytes are published
)

const (
	headerSize = 1 /*direction*/ + 4 /*length*/
)

var errRegionTooSmall = errors.New("sbd: region smaller than header")

// Region is a memory-mapped byte buffer shared between a back-end and the
// GDB it supervises (or, conceptually, between a back-end and the
// front-end relayed through it): a one-byte direction flag, a four-byte
// big-endian length, and up to size-headerSize bytes of payload.
type Region struct {
	file *os.File
	mm   mmap.MMap
	size int
}

// OpenRegion maps (creating if necessary) a region backed by path, sized
// to hold up to maxPayload bytes of payload plus its header.
func OpenRegion(path string, maxPayload int) (*Region, error) {
	size := headerSize + maxPayload
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	if len(m) < headerSize {
		m.Unmap()
		f.Close()
		return nil, errRegionTooSmall
	}
	return &Region{file: f, mm: m, size: size}, nil
}

// Close unmaps and closes the backing file.
func (r *Region) Close() error {
	if err := r.mm.Unmap(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Direction reads the current direction flag.
func (r *Region) Direction() Direction { return Direction(r.mm[0]) }

// Write publishes dir and payload into the region, overwriting whatever
// was there. Callers must hold the region's semaphore across SetIdle,
// Write and Direction calls that form one handshake step.
func (r *Region) Write(dir Direction, payload []byte) error {
	if headerSize+len(payload) > r.size {
		return errors.New("sbd: payload exceeds region capacity")
	}
	r.mm[0] = byte(dir)
	putUint32(r.mm[1:5], uint32(len(payload)))
	copy(r.mm[headerSize:], payload)
	return nil
}

// Read returns the payload currently published, per the length field.
func (r *Region) Read() []byte {
	n := getUint32(r.mm[1:5])
	if int(n) > r.size-headerSize {
		n = uint32(r.size - headerSize)
	}
	out := make([]byte, n)
	copy(out, r.mm[headerSize:headerSize+int(n)])
	return out
}

// SetIdle resets the direction flag to DirIdle, completing a handshake
// step and freeing the region for the next publisher.
func (r *Region) SetIdle() { r.mm[0] = byte(DirIdle) }

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
