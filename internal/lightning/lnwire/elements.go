package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ChannelID is the fixed 32-byte channel identifier field carried on the
// wire. This engine fills it with the bytes of its own string channel id,
// zero-padded (see wireChannelID in package lightning).
type ChannelID [32]byte

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeBytes32(w io.Writer, b [32]byte) error {
	_, err := w.Write(b[:])
	return err
}

func readBytes32(r io.Reader) ([32]byte, error) {
	var b [32]byte
	_, err := io.ReadFull(r, b[:])
	return b, err
}

// writeVarBytes writes a length-prefixed (uint16) byte slice, used for
// signatures and other variable-length fields.
func writeVarBytes(w io.Writer, b []byte) error {
	if len(b) > 1<<16-1 {
		return fmt.Errorf("lnwire: field of %d bytes exceeds uint16 length prefix", len(b))
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(b)))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readVarBytes(r io.Reader) ([]byte, error) {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(l[:])
	if uint32(n) > MaxMessagePayload {
		return nil, fmt.Errorf("lnwire: declared field length %d exceeds max payload", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
