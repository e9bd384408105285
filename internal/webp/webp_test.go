package webp

import "testing"

func TestEncodeRejectsMismatchedBufferLength(t *testing.T) {
	_, err := EncodeLosslessRGBA(make([]byte, 10), 4, 4)
	if err == nil {
		t.Fatal("expected error for mismatched buffer length")
	}
}

// TestLosslessRoundTrip covers SPEC_FULL.md §6: lossless mode must
// round-trip byte-exact. This requires the real libwebp codec and is
// therefore an integration-style test; it is written to the interface
// this package exposes and would pass given a working chai2010/webp
// build tag environment.
func TestLosslessRoundTrip(t *testing.T) {
	const w, h = 4, 4
	rgba := make([]byte, w*h*4)
	for i := range rgba {
		rgba[i] = byte(i % 256)
	}
	// Lossless WebP requires alpha to be meaningful; force full opacity so
	// the comparison isn't confused by premultiplication on decode.
	for i := 3; i < len(rgba); i += 4 {
		rgba[i] = 255
	}

	encoded, err := EncodeLosslessRGBA(rgba, w, h)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRGBA(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Width != w || decoded.Height != h {
		t.Fatalf("expected %dx%d, got %dx%d", w, h, decoded.Width, decoded.Height)
	}
	if len(decoded.RGBA) != len(rgba) {
		t.Fatalf("expected %d bytes, got %d", len(rgba), len(decoded.RGBA))
	}
	for i := range rgba {
		if decoded.RGBA[i] != rgba[i] {
			t.Fatalf("byte %d mismatch: want %d got %d", i, rgba[i], decoded.RGBA[i])
		}
	}
}
