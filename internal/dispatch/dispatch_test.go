package dispatch

import "testing"

func TestDetectByNameSuffixes(t *testing.T) {
	cases := map[string]Format{
		"scene.ply":            FormatPLY,
		"scene.compressed.ply": FormatCompressedPLY,
		"scene.splat":          FormatSplat,
		"scene.ksplat":         FormatKSplat,
		"scene.spz":            FormatSPZ,
		"scene.sog":            FormatSOG,
		"meta.json":            FormatSOGMeta,
		"scene.csv":            FormatCSV,
		"view.html":            FormatHTML,
		"view.mjs":             FormatHTML,
		"scene.unknown":        FormatUnknown,
	}
	for path, want := range cases {
		if got := DetectByName(path); got != want {
			t.Errorf("DetectByName(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDetectByNameCaseInsensitive(t *testing.T) {
	if DetectByName("SCENE.PLY") != FormatPLY {
		t.Fatal("expected case-insensitive suffix match")
	}
}

func TestReadInputSniffsCompressedPLYByPlainName(t *testing.T) {
	header := "ply\nformat binary_little_endian 1.0\nelement chunk 1\nproperty float minX\nend_header\n"
	if !looksLikeCompressedPLY([]byte(header)) {
		t.Fatal("expected a header with \"element chunk\" to be recognized as compressed-PLY")
	}

	plain := "ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty float x\nend_header\n"
	if looksLikeCompressedPLY([]byte(plain)) {
		t.Fatal("expected a plain vertex-element header not to be recognized as compressed-PLY")
	}
}

func TestReadInputUnknownFormat(t *testing.T) {
	_, err := ReadInput("file.unknown", []byte("data"))
	if err == nil {
		t.Fatal("expected error for unrecognized format")
	}
}

func TestReadAllConcurrentPreservesOrderAndSurfacesErrors(t *testing.T) {
	paths := []string{"a.csv", "b.unknown", "c.csv"}
	data := [][]byte{
		[]byte("x\n1\n2\n"),
		[]byte("whatever"),
		[]byte("x\n5\n"),
	}

	results := ReadAllConcurrent(paths, data)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Path != "a.csv" || results[0].Err != nil || results[0].Table.RowCount() != 2 {
		t.Fatalf("unexpected result[0]: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatalf("expected result[1] to carry an error for the unrecognized format")
	}
	if results[2].Path != "c.csv" || results[2].Err != nil || results[2].Table.RowCount() != 1 {
		t.Fatalf("unexpected result[2]: %+v", results[2])
	}
}
