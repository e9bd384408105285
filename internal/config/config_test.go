package config

import "testing"

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Iterations != 10 {
		t.Fatalf("expected default iterations 10, got %d", c.Iterations)
	}
	if c.CameraPos.X != 2 || c.CameraPos.Y != 2 || c.CameraPos.Z != -2 {
		t.Fatalf("unexpected default camera position: %+v", c.CameraPos)
	}
	if c.CameraTarget != (c.CameraTarget) {
		t.Fatalf("camera target should be comparable to itself")
	}
	if c.Overwrite || c.NoGPU {
		t.Fatalf("expected overwrite and no-gpu to default false")
	}
}
