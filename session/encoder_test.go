package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	_, err := Decode([]byte("SGS\x63"))
	if err == nil || !strings.Contains(err.Error(), "unsupported session record version") {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
	_, err = Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session record version") {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
}

func TestDecodeReadsV1(t *testing.T) {
	want := testRecord()

	var buf bytes.Buffer
	buf.WriteByte(recordFormatVersionV1)
	for _, slot := range [][]byte{[]byte(want.AccessToken), []byte(want.RefreshToken), want.User} {
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(slot)))
		buf.Write(slot)
	}

	got, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.AccessToken != want.AccessToken || string(got.User) != string(want.User) {
		t.Fatalf("v1 mismatch: %+v", got)
	}
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	data := []byte("SGS\x02\xff\xff\xff\xff")
	if _, err := Decode(data); err == nil {
		t.Fatal("expected oversized slot length to fail")
	}
}

func TestEncodeRejectsIncomplete(t *testing.T) {
	if _, err := Encode(Record{AccessToken: "a", RefreshToken: "r"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

// FuzzRecordDecode exercises the record decoder with arbitrary inputs.
// Malformed data must produce an error, never a panic.
func FuzzRecordDecode(f *testing.F) {
	encoded, err := Encode(testRecord())
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte("SGS"))
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(data)
		if err != nil {
			return
		}
		if rec.Complete() {
			if _, err := Encode(rec); err != nil {
				t.Fatalf("re-encode of decoded record failed: %v", err)
			}
		}
	})
}
