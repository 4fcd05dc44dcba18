package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameBytes is the largest payload the RPC server will accept; a
// frame whose length prefix exceeds this is rejected and the
// connection closed.
const MaxFrameBytes = 10 * 1024 * 1024

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building cbor encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building cbor decode mode: %v", err))
	}
}

// WriteFrame encodes v as CBOR and writes it to w prefixed with a
// 4-byte little-endian length.
func WriteFrame(w io.Writer, v interface{}) error {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if len(payload) > MaxFrameBytes {
		return fmt.Errorf("payload too large: %d bytes exceeds %d byte limit", len(payload), MaxFrameBytes)
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed CBOR frame from r and decodes it
// into v. A length prefix over MaxFrameBytes is rejected without
// reading the (unsent-or-truncated) payload.
func ReadFrame(r io.Reader, v interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("read frame header: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameBytes {
		return fmt.Errorf("frame length %d exceeds %d byte limit", length, MaxFrameBytes)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read frame payload: %w", err)
	}
	if err := decMode.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// WriteRequest frames and writes a Request.
func WriteRequest(w io.Writer, req Request) error { return WriteFrame(w, req) }

// ReadRequest reads and decodes one framed Request.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	err := ReadFrame(r, &req)
	return req, err
}

// WriteReply frames and writes a Reply.
func WriteReply(w io.Writer, rep Reply) error { return WriteFrame(w, rep) }

// ReadReply reads and decodes one framed Reply.
func ReadReply(r io.Reader) (Reply, error) {
	var rep Reply
	err := ReadFrame(r, &rep)
	return rep, err
}
