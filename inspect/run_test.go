package inspect

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"

	"cvdump/codeview/cvtest"
	"cvdump/config"
	"cvdump/lineindex"
	"cvdump/objfile"
	"cvdump/state"
)

func testContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx, env
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = saved })
	return &buf
}

func writeObject(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, cvtest.DebugSection(cvtest.SampleModule()...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOutputPath(t *testing.T) {
	dst := filepath.FromSlash("/out")
	tests := []struct {
		name   string
		format config.OutputFormat
		want   string
	}{
		{"main.obj", config.OutputFormatText, "/out/main.obj-dump.txt"},
		{filepath.FromSlash("x64/lib.zip/a/b.obj"), config.OutputFormatYaml, "/out/x64/lib.zip/a/b.obj-dump.yaml"},
		{filepath.FromSlash("/abs/path/c.o"), config.OutputFormatIon, "/out/c.o-dump.ion"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.name, dst, tt.format); got != filepath.FromSlash(tt.want) {
			t.Errorf("outputPath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWriteOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sub", "dir", "a-dump.txt")
	if err := writeOutput(out, []byte("one"), false); err != nil {
		t.Fatalf("writeOutput() error = %v", err)
	}
	if err := writeOutput(out, []byte("two"), false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("writeOutput() error = %v, want existing file error", err)
	}
	if err := writeOutput(out, []byte("three"), true); err != nil {
		t.Fatalf("writeOutput() with overwrite error = %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "three" {
		t.Errorf("file content = %q", data)
	}
}

func TestDumpObject(t *testing.T) {
	_, env := testContext(t)
	log := zaptest.NewLogger(t)
	f, err := objfile.Load("dir/sample.dbgs", cvtest.DebugSection(cvtest.SampleModule()...))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Run("stdout", func(t *testing.T) {
		buf := captureStdout(t)
		cfg := config.DumpConfig{Format: config.OutputFormatYaml}
		if err := dumpObject(env, f, "", cfg, log); err != nil {
			t.Fatalf("dumpObject() error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "---\nmodule: dir/sample.dbgs\n") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("file", func(t *testing.T) {
		dst := t.TempDir()
		cfg := config.DumpConfig{Format: config.OutputFormatText}
		if err := dumpObject(env, f, dst, cfg, log); err != nil {
			t.Fatalf("dumpObject() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dst, "dir", "sample.dbgs-dump.txt"))
		if err != nil {
			t.Fatalf("dump was not written: %v", err)
		}
		if !strings.HasPrefix(string(data), "module dir/sample.dbgs (raw), 5 fragments\n") {
			t.Errorf("dump = %q", data)
		}
		if err := dumpObject(env, f, dst, cfg, log); err == nil {
			t.Error("dumpObject() should refuse to overwrite")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		frags := cvtest.SampleModule()
		frags[1].Data = frags[1].Data[:3]
		bad, err := objfile.Load("bad.dbgs", cvtest.DebugSection(frags...))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		err = dumpObject(env, bad, t.TempDir(), config.DumpConfig{Format: config.OutputFormatText}, log)
		var fe *FragmentError
		if !errors.As(err, &fe) || fe.Index != 1 {
			t.Errorf("dumpObject() error = %v, want fragment 1 error", err)
		}
	})
}

func TestRunDump(t *testing.T) {
	ctx, env := testContext(t)
	src := t.TempDir()
	writeObject(t, src, "a.dbgs")
	writeObject(t, src, filepath.Join("nested", "b.dbgs"))
	if err := os.WriteFile(filepath.Join(src, "readme.txt"), []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := t.TempDir()

	cmd := &cli.Command{
		Name:   "dump",
		Action: RunDump,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format"},
			&cli.BoolFlag{Name: "overwrite"},
			&cli.StringFlag{Name: "force-zip-cp"},
		},
	}
	if err := cmd.Run(ctx, []string{"dump", "--format", "ion", "--overwrite", src, dst}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !env.Overwrite {
		t.Error("overwrite flag was not propagated")
	}
	for _, name := range []string{"a.dbgs-dump.ion", filepath.Join("nested", "b.dbgs-dump.ion")} {
		data, err := os.ReadFile(filepath.Join(dst, name))
		if err != nil {
			t.Errorf("missing output %s: %v", name, err)
			continue
		}
		if !bytes.Contains(data, []byte("fragments")) {
			t.Errorf("output %s = %s", name, data)
		}
	}
}

func TestRunVerify(t *testing.T) {
	ctx, _ := testContext(t)
	obj := writeObject(t, t.TempDir(), "sample.dbgs")
	root := writeSources(t, "main.c", "util.h")
	buf := captureStdout(t)

	verifyCmd := func() *cli.Command {
		return &cli.Command{
			Name:   "verify",
			Action: RunVerify,
			Flags:  []cli.Flag{&cli.StringFlag{Name: "root"}, &cli.StringFlag{Name: "force-zip-cp"}},
		}
	}
	if err := verifyCmd().Run(ctx, []string{"verify", "--root", root, obj}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\tok ") != 2 || !strings.Contains(out, "util.h") {
		t.Errorf("output = %q", out)
	}

	if err := os.Remove(filepath.Join(root, "util.h")); err != nil {
		t.Fatal(err)
	}
	if err := verifyCmd().Run(ctx, []string{"verify", "--root", root, obj}); !errors.Is(err, ErrMissingSource) {
		t.Errorf("Run() error = %v, want ErrMissingSource", err)
	}
}

func TestRunIndex(t *testing.T) {
	ctx, _ := testContext(t)
	src := t.TempDir()
	writeObject(t, src, "one.dbgs")
	writeObject(t, src, "two.dbgs")
	db := filepath.Join(t.TempDir(), "lines.sqlite")
	buf := captureStdout(t)

	indexCmd := func() *cli.Command {
		return &cli.Command{
			Name:   "index",
			Action: RunIndex,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "db"},
				&cli.StringFlag{Name: "lookup"},
				&cli.BoolFlag{Name: "list"},
				&cli.StringFlag{Name: "force-zip-cp"},
			},
		}
	}
	if err := indexCmd().Run(ctx, []string{"index", "--db", db, "--lookup", "main.c:3", src}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "one.dbgs\tmain.c:3-3\t0000:00000018 stmt\ntwo.dbgs\tmain.c:3-3\t0000:00000018 stmt\n"
	if buf.String() != want {
		t.Errorf("lookup output = %q, want %q", buf.String(), want)
	}

	if err := indexCmd().Run(ctx, []string{"index", "--db", db}); err == nil {
		t.Error("Run() without source, lookup and listing should fail")
	}

	buf.Reset()
	if err := indexCmd().Run(ctx, []string{"index", "--db", db, "--list"}); err != nil {
		t.Fatalf("Run() with listing error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "one.dbgs\t") || !strings.HasPrefix(lines[1], "two.dbgs\t") {
		t.Errorf("listing = %q", buf.String())
	}
}

func TestLookupLine_BadQuery(t *testing.T) {
	x, err := lineindex.Open(filepath.Join(t.TempDir(), "lines.sqlite"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer x.Close()
	for _, q := range []string{"main.c", ":3", "main.c:x", "main.c:0"} {
		if err := lookupLine(x, q); err == nil {
			t.Errorf("lookupLine(%q) should fail", q)
		}
	}
}
