package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cvdump/config"
	"cvdump/lineindex"
	"cvdump/objfile"
	"cvdump/state"
)

// destination for results when no output path was given
var stdout io.Writer = os.Stdout

// prepareRun performs steps common to all actions: logger, absolute source
// path, code page for archive names and object walker.
func prepareRun(ctx context.Context, cmd *cli.Command, name string) (*state.LocalEnv, *zap.Logger, string, *objfile.Walker, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, "", nil, err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named(name)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return nil, nil, "", nil, errors.New("no input source has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, nil, "", nil, err
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		if err := env.SetCodePage(cp); err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		} else {
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", env.CodePageName()))
		}
	}
	return env, log, src, newWalker(env, log), nil
}

func newWalker(env *state.LocalEnv, log *zap.Logger) *objfile.Walker {
	return &objfile.Walker{
		Extensions: env.Cfg.Input.Extensions,
		Prefixes:   env.Cfg.Input.ArchivePrefixes,
		CodePage:   env.CodePage,
		Log:        log,
	}
}

func logStats(log *zap.Logger, stats objfile.Stats, start time.Time) {
	log.Info("Processing completed", zap.Int("processed", stats.Processed), zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped), zap.Duration("elapsed", time.Since(start)))
}

// RunDump is "dump" command action.
func RunDump(ctx context.Context, cmd *cli.Command) (err error) {
	env, log, src, walker, err := prepareRun(ctx, cmd, "dump")
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	cfg := env.Cfg.Dump
	if name := cmd.String("format"); len(name) > 0 {
		format, err := config.ParseOutputFormat(name)
		if err != nil {
			log.Warn("Unknown output format requested, using configured one", zap.Stringer("format", cfg.Format), zap.Error(err))
		} else {
			cfg.Format = format
		}
	}
	env.Overwrite = cmd.Bool("overwrite")

	destination := dst
	if len(destination) == 0 {
		destination = "STDOUT"
	}
	log.Info("Processing starting", zap.String("source", src), zap.String("destination", destination), zap.Stringer("format", cfg.Format))
	start := time.Now()
	stats, err := walker.Walk(ctx, src, func(ctx context.Context, f *objfile.File) error {
		return dumpObject(env, f, dst, cfg, log)
	})
	logStats(log, stats, start)
	return err
}

// dumpObject renders report for a single object and writes it to dst
// directory, or to stdout when dst is empty.
func dumpObject(env *state.LocalEnv, f *objfile.File, dst string, cfg config.DumpConfig, log *zap.Logger) error {
	d := NewDumper(f.Name, f.Format.String(), cfg)
	if err := NewTracer(d, log).Traverse(f.Records()); err != nil {
		return err
	}
	data, err := d.Report().Render(cfg.Format)
	if err != nil {
		return err
	}

	if len(dst) == 0 {
		if cfg.Format == config.OutputFormatYaml {
			data = append([]byte("---\n"), data...)
		}
		_, err = stdout.Write(data)
		return err
	}

	out := outputPath(f.Name, dst, cfg.Format)
	if err := writeOutput(out, data, env.Overwrite); err != nil {
		return err
	}
	log.Debug("Dump written", zap.String("object", f.Name), zap.String("file", out))
	if env.Rpt != nil {
		env.Rpt.StoreData(filepath.ToSlash(filepath.Join("dump", filepath.Base(out))), data)
	}
	return nil
}

// outputPath keeps relative structure of the object name under dst.
func outputPath(name, dst string, format config.OutputFormat) string {
	dir := dst
	if !filepath.IsAbs(name) {
		dir = filepath.Join(dst, filepath.Dir(name))
	}
	return filepath.Join(dir, config.CleanFileName(filepath.Base(name))+format.Ext())
}

func writeOutput(out string, data []byte, overwrite bool) error {
	if _, err := os.Stat(out); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s (use --overwrite)", out)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return os.WriteFile(out, data, 0o644)
}

// RunVerify is "verify" command action.
func RunVerify(ctx context.Context, cmd *cli.Command) error {
	env, log, src, walker, err := prepareRun(ctx, cmd, "verify")
	if err != nil {
		return err
	}

	cfg := env.Cfg.Verify
	if root := cmd.String("root"); len(root) > 0 {
		if cfg.SourceRoot, err = filepath.Abs(root); err != nil {
			return err
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("root", cfg.SourceRoot))
	start := time.Now()
	stats, err := walker.Walk(ctx, src, func(ctx context.Context, f *objfile.File) error {
		return verifyObject(f, cfg, log)
	})
	logStats(log, stats, start)
	return err
}

func verifyObject(f *objfile.File, cfg config.VerifyConfig, log *zap.Logger) error {
	v := NewChecksumVerifier(cfg, log.With(zap.String("object", f.Name)))
	err := NewTracer(v, log).Traverse(f.Records())
	for _, r := range v.Results() {
		fmt.Fprintf(stdout, "%s\t%-11s %-6s %s\n", f.Name, r.Status, r.Kind, r.File)
	}
	return err
}

// RunIndex is "index" command action. Source is optional when only lookup
// or listing is requested.
func RunIndex(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	db := env.Cfg.Index.Database
	if name := cmd.String("db"); len(name) > 0 {
		db = name
	}
	lookup, list := cmd.String("lookup"), cmd.Bool("list")
	if cmd.Args().Len() == 0 && len(lookup) == 0 && !list {
		return errors.New("no input source, lookup or listing has been specified")
	}

	x, err := lineindex.Open(db, env.Log.Named("lineindex"))
	if err != nil {
		return err
	}
	defer func() {
		if er := x.Close(); er != nil {
			err = errors.Join(err, er)
		}
	}()

	if cmd.Args().Len() > 0 {
		_, log, src, walker, err := prepareRun(ctx, cmd, "index")
		if err != nil {
			return err
		}
		log.Info("Processing starting", zap.String("source", src), zap.String("database", db))
		start := time.Now()
		stats, err := walker.Walk(ctx, src, func(ctx context.Context, f *objfile.File) error {
			return indexObject(x, f, log)
		})
		logStats(log, stats, start)
		if err != nil {
			return err
		}
		env.Rpt.Store("lineindex/"+filepath.Base(db), db)
	}

	if list {
		if err := listModules(x); err != nil {
			return err
		}
	}
	if len(lookup) > 0 {
		return lookupLine(x, lookup)
	}
	return nil
}

// listModules prints indexed modules.
func listModules(x *lineindex.Index) error {
	mods, err := x.Modules()
	if err != nil {
		return err
	}
	for _, m := range mods {
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", m.Name, m.ID, m.IndexedAt.Local().Format(time.DateTime))
	}
	return nil
}

func indexObject(x *lineindex.Index, f *objfile.File, log *zap.Logger) error {
	w := x.Visitor(f.Name)
	if err := NewTracer(w, log).Traverse(f.Records()); err != nil {
		return err
	}
	log.Debug("Object indexed", zap.String("object", f.Name), zap.Stringer("id", w.ID()))
	return nil
}

// lookupLine prints code locations for "file:line" query.
func lookupLine(x *lineindex.Index, query string) error {
	i := strings.LastIndexByte(query, ':')
	if i <= 0 {
		return fmt.Errorf("bad lookup %q, expected FILE:LINE", query)
	}
	line, err := strconv.Atoi(query[i+1:])
	if err != nil || line <= 0 {
		return fmt.Errorf("bad line number in lookup %q", query)
	}
	locs, err := x.Lookup(query[:i], line)
	if err != nil {
		return err
	}
	for _, l := range locs {
		stmt := ""
		if l.Statement {
			stmt = " stmt"
		}
		fmt.Fprintf(stdout, "%s\t%s:%d-%d\t%04x:%08x%s\n", l.Module, l.File, l.LineStart, l.LineEnd, l.Segment, l.CodeOffset, stmt)
	}
	return nil
}
