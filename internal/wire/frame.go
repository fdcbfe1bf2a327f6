// Package wire implements the overlay's message framing: a logical message
// is encoded, optionally compressed, optionally split into fixed-size
// chunks, and carried across a stream as one or more length-prefixed
// frames. The wire format is internal and version-matched between the
// front-end, relays and back-ends; it makes no attempt at cross-version or
// cross-language compatibility.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// Kind discriminates the logical message carried by a frame.
// Multi-header/multi-payload are framing-level artifacts of a single Kind
// split across chunks (flagMulti below), not message kinds of their own.
type Kind uint8

const (
	KindCommand Kind = iota + 1
	KindOut
	KindFilter
	KindUnfilter
	KindHello
	KindVarprint
	KindVarprintResult
	KindKill
	KindDie
	KindQuit
	KindLoadFile
	KindFileData
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindOut:
		return "out"
	case KindFilter:
		return "filter"
	case KindUnfilter:
		return "unfilter"
	case KindHello:
		return "hello"
	case KindVarprint:
		return "varprint"
	case KindVarprintResult:
		return "varprint-result"
	case KindKill:
		return "kill"
	case KindDie:
		return "die"
	case KindQuit:
		return "quit"
	case KindLoadFile:
		return "load-file"
	case KindFileData:
		return "file-data"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// frame header flags.
const (
	flagCompressed byte = 1 << 0
	flagMulti      byte = 1 << 1
)

const headerLen = 1 /*kind*/ + 1 /*flags*/ + 4 /*payload or chunk-count*/

// Config holds the split and compression thresholds a Codec enforces. Both
// are measured against the gob-encoded, pre-compression payload size.
type Config struct {
	SplitThreshold       int
	CompressionThreshold int
}

// DefaultConfig provides zero-value-safe defaults callers can override
// selectively.
func DefaultConfig() Config {
	return Config{
		SplitThreshold:       1 << 16, // 64KiB
		CompressionThreshold: 1 << 12, // 4KiB
	}
}

// Codec encodes and decodes logical messages as one or more frames written
// to / read from an io.Writer / io.Reader pair, per Config's thresholds.
type Codec struct {
	cfg Config
}

// NewCodec constructs a Codec with cfg. A zero Config disables both
// splitting and compression (a threshold of 0 or less turns that step
// off -- callers should use DefaultConfig unless they have a specific
// reason not to).
func NewCodec(cfg Config) *Codec { return &Codec{cfg: cfg} }

// Encode gob-encodes msg and writes it to w as one or more frames of kind
// k, per the configured split and compression thresholds. Compressed
// frames are never split: they travel whole, since splitting an
// already-compressed payload would defeat snappy's framing. ReadMessage
// decompresses before returning, so a reader does not learn whether a
// message arrived compressed.
func (c *Codec) Encode(w io.Writer, k Kind, msg interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	return c.Forward(w, k, buf.Bytes())
}

// Forward frames and writes an already gob-encoded payload of kind k to w,
// applying the same compression/split thresholds Encode does. A relay uses
// this to pass a frame it read with ReadMessage on to its own parent or
// children without a decode/re-encode round trip -- ReadMessage already
// strips compression and chunk-splitting, so Forward re-derives both from
// scratch against this hop's own thresholds, exactly as if it had encoded
// the message itself.
func (c *Codec) Forward(w io.Writer, k Kind, payload []byte) error {
	compressed := false
	if len(payload) >= c.cfg.CompressionThreshold && c.cfg.CompressionThreshold > 0 {
		payload = snappy.Encode(nil, payload)
		compressed = true
	}

	if compressed || len(payload) <= c.cfg.SplitThreshold || c.cfg.SplitThreshold <= 0 {
		return writeFrame(w, k, payload, compressed, false)
	}
	return writeMultiFrame(w, k, payload, c.cfg.SplitThreshold)
}

func writeFrame(w io.Writer, k Kind, payload []byte, compressed, multi bool) error {
	var flags byte
	if compressed {
		flags |= flagCompressed
	}
	if multi {
		flags |= flagMulti
	}
	hdr := make([]byte, headerLen)
	hdr[0] = byte(k)
	hdr[1] = flags
	binary.BigEndian.PutUint32(hdr[2:], uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

func writeMultiFrame(w io.Writer, k Kind, payload []byte, chunkSize int) error {
	n := (len(payload) + chunkSize - 1) / chunkSize
	hdr := make([]byte, headerLen)
	hdr[0] = byte(k)
	hdr[1] = flagMulti
	binary.BigEndian.PutUint32(hdr[2:], uint32(n))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("wire: write multi-header: %w", err)
	}
	for i := 0; i < n; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(payload) {
			hi = len(payload)
		}
		if err := writeFrame(w, k, payload[lo:hi], false, false); err != nil {
			return err
		}
	}
	return nil
}

// readBuffer grows to accommodate the largest read so far and is reused
// across reads, avoiding a fresh allocation per frame.
type readBuffer struct {
	b []byte
}

func (b *readBuffer) read(r io.Reader, n int) ([]byte, error) {
	offset := len(b.b)
	if cap(b.b) < offset+n {
		b.b = append(b.b, make([]byte, n)...)
	} else {
		b.b = b.b[:offset+n]
	}
	if _, err := io.ReadFull(r, b.b[offset:offset+n]); err != nil {
		b.b = b.b[:offset]
		return nil, err
	}
	return b.b[offset : offset+n], nil
}

func (b *readBuffer) reset() { b.b = b.b[:0] }

// Decode reads one logical message (one frame, or a full multi-frame
// sequence) from r, gob-decoding it into out.
func (c *Codec) Decode(r io.Reader, out interface{}) (Kind, error) {
	k, payload, err := c.ReadMessage(r)
	if err != nil {
		return 0, err
	}
	return k, Unmarshal(payload, out)
}

// ReadMessage reads one logical message (one frame, or a full multi-frame
// sequence, decompressing as needed) from r and returns its Kind and
// gob-encoded payload bytes, without decoding them into a concrete type.
// Callers that don't know the payload's Go type until they've seen its
// Kind (e.g. a transport loop dispatching on an incoming frame) read the
// envelope with ReadMessage and decode the payload with Unmarshal once
// they've picked the right destination type.
func (c *Codec) ReadMessage(r io.Reader) (Kind, []byte, error) {
	var rb readBuffer
	k, flags, count, err := readHeader(r, &rb)
	if err != nil {
		return 0, nil, err
	}
	if flags&flagMulti != 0 {
		payload, err := readMultiPayload(r, &rb, count)
		if err != nil {
			return 0, nil, err
		}
		return k, payload, nil
	}
	rb.reset()
	payload, err := rb.read(r, int(count))
	if err != nil {
		return 0, nil, fmt.Errorf("wire: read payload: %w", err)
	}
	if flags&flagCompressed != 0 {
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return 0, nil, fmt.Errorf("wire: snappy decode: %w", err)
		}
		return k, decoded, nil
	}
	// payload aliases rb's backing array, which rb.reset() below would
	// otherwise let a later read overwrite; copy it out to be safe even
	// though rb itself does not outlive this call.
	out := make([]byte, len(payload))
	copy(out, payload)
	return k, out, nil
}

// Unmarshal gob-decodes a payload previously returned by ReadMessage into
// out.
func Unmarshal(payload []byte, out interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(out); err != nil {
		return fmt.Errorf("wire: gob decode: %w", err)
	}
	return nil
}

func readHeader(r io.Reader, rb *readBuffer) (Kind, byte, uint32, error) {
	hdr, err := rb.read(r, headerLen)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("wire: read header: %w", err)
	}
	k := Kind(hdr[0])
	flags := hdr[1]
	count := binary.BigEndian.Uint32(hdr[2:])
	rb.reset()
	return k, flags, count, nil
}

func readMultiPayload(r io.Reader, rb *readBuffer, n uint32) ([]byte, error) {
	var full bytes.Buffer
	for i := uint32(0); i < n; i++ {
		ck, flags, clen, err := readHeader(r, rb)
		if err != nil {
			return nil, err
		}
		_ = ck
		if flags&flagMulti != 0 {
			return nil, fmt.Errorf("wire: nested multi-frame chunk")
		}
		chunk, err := rb.read(r, int(clen))
		if err != nil {
			return nil, fmt.Errorf("wire: read chunk %d/%d: %w", i+1, n, err)
		}
		full.Write(chunk)
		rb.reset()
	}
	return full.Bytes(), nil
}
