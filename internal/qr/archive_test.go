package qr

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestBuildArchive(t *testing.T) {
	items := []ArchiveItem{
		{Name: "Alice Smith", ID: 101, Payload: "payload-alice"},
		{Name: "Bob O'Brien", ID: 202, Payload: "payload-bob"},
		{Name: "张伟", ID: 303, Payload: "payload-zhang"},
	}

	var buf bytes.Buffer
	skipped, err := BuildArchive(&buf, items, DefaultRenderOptions)
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	want := map[string]string{
		"qr-codes/alice_smith-101.png": "payload-alice",
		"qr-codes/bob_o_brien-202.png": "payload-bob",
		"qr-codes/__-303.png":          "payload-zhang",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("archive has %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		payload, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected entry %q", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %q: %v", f.Name, err)
		}
		var png bytes.Buffer
		if _, err := png.ReadFrom(rc); err != nil {
			t.Fatalf("read %q: %v", f.Name, err)
		}
		rc.Close()
		got, err := DecodeBytes(png.Bytes())
		if err != nil {
			t.Fatalf("decode %q: %v", f.Name, err)
		}
		if got != payload {
			t.Errorf("%q decodes to %q, want %q", f.Name, got, payload)
		}
	}
}

// A payload too large for the symbology must not sink the whole export.
func TestBuildArchive_SkipsUnrenderable(t *testing.T) {
	items := []ArchiveItem{
		{Name: "Good", ID: 1, Payload: "fits"},
		{Name: "Bad", ID: 2, Payload: strings.Repeat("x", 4000)},
		{Name: "Also Good", ID: 3, Payload: "also fits"},
	}

	var buf bytes.Buffer
	skipped, err := BuildArchive(&buf, items, DefaultRenderOptions)
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if len(skipped) != 1 || !strings.Contains(skipped[0], "Bad (id 2)") {
		t.Fatalf("skipped = %v, want exactly the oversized item", skipped)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if len(names) != 2 {
		t.Errorf("entries = %v, want the two renderable items", names)
	}
}

func TestBuildArchive_Empty(t *testing.T) {
	var buf bytes.Buffer
	skipped, err := BuildArchive(&buf, nil, DefaultRenderOptions)
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	if _, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Errorf("empty archive is not a valid zip: %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Alice Smith":   "alice_smith",
		"bob":           "bob",
		"Bob O'Brien!":  "bob_o_brien_",
		"MIXED case 42": "mixed_case_42",
		"":              "",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
