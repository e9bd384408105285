// Package htmlview renders a single self-contained HTML file embedding a
// compressed-PLY payload and a camera position/target (SPEC_FULL.md §4.12).
// This is a template-substitution operation only; no viewer logic lives in
// this repository.
package htmlview

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gsplat/splat-transform/internal/mathutil"
)

const template = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>splat-transform viewer</title></head>
<body>
<script id="splat-data" type="application/octet-stream;base64">{{PLY_BASE64}}</script>
<script>
window.SPLAT_VIEW = {
  cameraPosition: [{{POSITION}}],
  cameraTarget: [{{TARGET}}]
};
</script>
</body>
</html>
`

// Render substitutes plyBytes (base64-encoded) and the camera vectors into
// the fixed template string.
func Render(plyBytes []byte, cameraPos, cameraTarget mathutil.Vec3) string {
	replacer := strings.NewReplacer(
		"{{PLY_BASE64}}", base64.StdEncoding.EncodeToString(plyBytes),
		"{{POSITION}}", vec3CSV(cameraPos),
		"{{TARGET}}", vec3CSV(cameraTarget),
	)
	return replacer.Replace(template)
}

func vec3CSV(v mathutil.Vec3) string {
	return fmt.Sprintf("%v, %v, %v", v.X, v.Y, v.Z)
}
