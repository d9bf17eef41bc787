package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestReport(t *testing.T) (*Report, string) {
	t.Helper()
	name := filepath.Join(t.TempDir(), "report.zip")
	r, err := (&ReporterConfig{Destination: name}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return r, name
}

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReportClose_Archive(t *testing.T) {
	r, name := newTestReport(t)

	src := filepath.Join(t.TempDir(), "module.obj")
	if err := os.WriteFile(src, []byte("object"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r.Store("input.obj", src)
	r.Store("absent.log", filepath.Join(t.TempDir(), "never-created.log"))
	r.StoreData("config.yaml", []byte("version: 1\n"))

	if r.Name() != name {
		t.Errorf("Name() = %q, want %q", r.Name(), name)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, name)
	if files["input.obj"] != "object" {
		t.Errorf("input.obj = %q, want %q", files["input.obj"], "object")
	}
	if files["config.yaml"] != "version: 1\n" {
		t.Errorf("config.yaml = %q", files["config.yaml"])
	}
	if _, ok := files["absent.log"]; ok {
		t.Error("absent file should not be archived")
	}
	manifest := files["MANIFEST"]
	for _, n := range []string{"input.obj", "absent.log", "config.yaml"} {
		if !strings.Contains(manifest, n) {
			t.Errorf("MANIFEST does not mention %s:\n%s", n, manifest)
		}
	}
}

func TestReportStoreCopy(t *testing.T) {
	r, name := newTestReport(t)

	src := filepath.Join(t.TempDir(), "module.obj")
	if err := os.WriteFile(src, []byte("before"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if err := r.StoreCopy("input", src); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	// second copy under the same name is versioned
	if err := r.StoreCopy("input", src); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	if err := os.WriteFile(src, []byte("after"), 0644); err != nil {
		t.Fatalf("failed to rewrite test file: %v", err)
	}
	if len(r.scratch) != 2 {
		t.Fatalf("scratch = %v, want 2 entries", r.scratch)
	}
	scratch := append([]string(nil), r.scratch...)

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, name)
	if files["input"] != "before" {
		t.Errorf("input = %q, want copy made before modification", files["input"])
	}
	if len(files) != 3 {
		t.Errorf("archive has %d entries, want MANIFEST and two copies", len(files))
	}
	for _, dir := range scratch {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("temporary copy %s was not removed", dir)
		}
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original file should not be removed: %v", err)
	}
}

func TestReportStoreCopy_NotRegular(t *testing.T) {
	r, _ := newTestReport(t)
	defer r.Close()

	if err := r.StoreCopy("dir", t.TempDir()); err == nil {
		t.Error("expected error storing copy of directory")
	}
	if err := r.StoreCopy("missing", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error storing copy of missing file")
	}
}

func TestReportStore_OverwritePanics(t *testing.T) {
	r, _ := newTestReport(t)
	defer r.Close()

	r.Store("log", "/tmp/a.log")
	r.Store("log", "/tmp/a.log")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on conflicting Store")
		}
	}()
	r.Store("log", "/tmp/b.log")
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("x", "y")
	r.StoreData("x", nil)
	if err := r.StoreCopy("x", "y"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name() on nil report = %q", r.Name())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
