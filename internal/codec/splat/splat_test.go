package splat

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func encodeRecord(px, py, pz, sx, sy, sz float32, r, g, b, a, qw, qx, qy, qz uint8) []byte {
	buf := make([]byte, recordSize)
	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	putF32(0, px)
	putF32(4, py)
	putF32(8, pz)
	putF32(12, sx)
	putF32(16, sy)
	putF32(20, sz)
	buf[24], buf[25], buf[26], buf[27] = r, g, b, a
	buf[28], buf[29], buf[30], buf[31] = qw, qx, qy, qz
	return buf
}

func TestReadDecodesRecord(t *testing.T) {
	var buf bytes.Buffer
	// Quaternion bytes 255,127,127,127 -> roughly (1, -0.004,-0.004,-0.004)
	// after /127.5-1, close to identity.
	buf.Write(encodeRecord(1, 2, 3, 1, 1, 1, 128, 128, 128, 255, 255, 127, 127, 127))

	dt, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if dt.RowCount() != 1 {
		t.Fatalf("expected 1 row, got %d", dt.RowCount())
	}
	if dt.Column("x").F32[0] != 1 || dt.Column("y").F32[0] != 2 || dt.Column("z").F32[0] != 3 {
		t.Fatalf("unexpected position: %v %v %v", dt.Column("x").F32[0], dt.Column("y").F32[0], dt.Column("z").F32[0])
	}
	// scale of 1.0 -> ln(1) = 0.
	if dt.Column("scale_0").F32[0] != 0 {
		t.Fatalf("expected log-scale 0 for input scale 1, got %v", dt.Column("scale_0").F32[0])
	}
}

func TestReadRejectsShortInput(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 10)))
	if err == nil {
		t.Fatal("expected error for input not a multiple of record size")
	}
}

func TestReadNearCenterQuaternionBytesDecode(t *testing.T) {
	var buf bytes.Buffer
	// Quaternion bytes all 127.5-ish rounding to near-zero after (v/127.5-1).
	buf.Write(encodeRecord(0, 0, 0, 1, 1, 1, 0, 0, 0, 0, 128, 128, 128, 128))
	dt, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if dt.Column("rot_0").F32[0] != 1 {
		// Only exactly-zero-length quaternions fall back to identity; 128
		// isn't perfectly centered (127.5), so this mainly exercises the
		// decode path without asserting the identity fallback specifically.
		t.Logf("rot_0 = %v (informational)", dt.Column("rot_0").F32[0])
	}
}
