package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	recordFormatVersionCurrent = 2
	recordFormatVersionV1      = 1

	recordMagic = "SGS"

	// maxSlotSize bounds a single slot so a damaged length prefix cannot
	// trigger a huge allocation.
	maxSlotSize = 1 << 20
)

// Encode serializes rec into the versioned on-disk format:
//
//	"SGS" | version | len(access) access | len(refresh) refresh | len(user) user
//
// Lengths are big-endian uint32.
func Encode(rec Record) ([]byte, error) {
	if !rec.Complete() {
		return nil, ErrIncomplete
	}

	var buf bytes.Buffer
	buf.Grow(len(recordMagic) + 1 + 12 + len(rec.AccessToken) + len(rec.RefreshToken) + len(rec.User))
	buf.WriteString(recordMagic)
	buf.WriteByte(recordFormatVersionCurrent)

	for _, slot := range [][]byte{[]byte(rec.AccessToken), []byte(rec.RefreshToken), rec.User} {
		if len(slot) > maxSlotSize {
			return nil, errors.New("session slot too large")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(slot))); err != nil {
			return nil, err
		}
		buf.Write(slot)
	}

	return buf.Bytes(), nil
}

// Decode parses data written by Encode. Version 1 files, which carried no
// magic and used uint16 lengths, are still read.
func Decode(data []byte) (Record, error) {
	if len(data) < len(recordMagic)+1 || string(data[:len(recordMagic)]) != recordMagic {
		return decodeV1(data)
	}

	reader := bytes.NewReader(data[len(recordMagic):])
	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != recordFormatVersionCurrent {
		return Record{}, fmt.Errorf("unsupported session record version %d", version)
	}

	var slots [3][]byte
	for i := range slots {
		var n uint32
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return Record{}, err
		}
		if n > maxSlotSize || int64(n) > int64(reader.Len()) {
			return Record{}, errors.New("session slot length out of range")
		}
		slots[i] = make([]byte, n)
		if _, err := io.ReadFull(reader, slots[i]); err != nil {
			return Record{}, err
		}
	}
	if reader.Len() != 0 {
		return Record{}, errors.New("trailing bytes after session record")
	}

	return Record{
		AccessToken:  string(slots[0]),
		RefreshToken: string(slots[1]),
		User:         slots[2],
	}, nil
}

func decodeV1(data []byte) (Record, error) {
	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != recordFormatVersionV1 {
		return Record{}, fmt.Errorf("unsupported session record version %d", version)
	}

	var slots [3][]byte
	for i := range slots {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return Record{}, err
		}
		slots[i] = make([]byte, n)
		if _, err := io.ReadFull(reader, slots[i]); err != nil {
			return Record{}, err
		}
	}

	return Record{
		AccessToken:  string(slots[0]),
		RefreshToken: string(slots[1]),
		User:         slots[2],
	}, nil
}
