package htmlview

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/gsplat/splat-transform/internal/mathutil"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	payload := []byte("fake-compressed-ply-bytes")
	html := Render(payload, mathutil.Vec3{X: 2, Y: 2, Z: -2}, mathutil.Vec3{})

	if strings.Contains(html, "{{PLY_BASE64}}") || strings.Contains(html, "{{POSITION}}") || strings.Contains(html, "{{TARGET}}") {
		t.Fatalf("expected all placeholders substituted, got:\n%s", html)
	}
	want := base64.StdEncoding.EncodeToString(payload)
	if !strings.Contains(html, want) {
		t.Fatalf("expected base64 payload embedded in output")
	}
	if !strings.Contains(html, "2, 2, -2") {
		t.Fatalf("expected camera position embedded, got:\n%s", html)
	}
}
