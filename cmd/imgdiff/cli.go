package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/boostgo/imgdiff"
	"github.com/boostgo/imgdiff/internal/config"
	"github.com/boostgo/imgdiff/internal/logger"
	"github.com/boostgo/imgdiff/internal/serve"
)

const (
	exitOK      = 0
	exitChanges = 1
	exitError   = 2
)

// globalOptions apply to every command
type globalOptions struct {
	Config   string `short:"c" long:"config" description:"YAML config file"`
	LogLevel string `long:"log-level" description:"log level (debug, info, warn, error)"`
}

// DiffOptions override the comparison settings of the config file
type DiffOptions struct {
	Tolerance      *float64 `short:"t" long:"tolerance" description:"maximum share of changed pixels in percent for an image to stay unchanged"`
	PixelThreshold *uint8   `long:"pixel-threshold" description:"per-pixel difference (0-255) a pixel must exceed to count as changed"`
	Workers        *int     `short:"j" long:"workers" description:"number of image pairs compared concurrently"`
	Exclude        []string `short:"x" long:"exclude" description:"glob of relative paths to skip (repeatable)"`
	IgnoreHidden   bool     `long:"ignore-hidden" description:"skip dot files and directories"`
}

type compareCommand struct {
	DiffOptions

	Args struct {
		Expected string `positional-arg-name:"EXPECTED" required:"yes"`
		Actual   string `positional-arg-name:"ACTUAL" required:"yes"`
		Output   string `positional-arg-name:"OUTPUT" required:"yes"`
	} `positional-args:"yes"`
}

type verifyCommand struct {
	Applied bool `long:"applied" description:"check the expected tree after a fix instead of before"`

	Args struct {
		Output   string `positional-arg-name:"OUTPUT" required:"yes"`
		Expected string `positional-arg-name:"EXPECTED" required:"yes"`
	} `positional-args:"yes"`
}

type fixCommand struct {
	DryRun bool `short:"n" long:"dry-run" description:"log what would change without touching the expected tree"`
	Prune  bool `long:"prune" description:"remove directories left empty by deletions"`

	Args struct {
		Output   string `positional-arg-name:"OUTPUT" required:"yes"`
		Expected string `positional-arg-name:"EXPECTED" required:"yes"`
	} `positional-args:"yes"`
}

type serveCommand struct {
	DiffOptions

	Addr     string        `short:"a" long:"addr" description:"listen address (default :8000)"`
	Debounce time.Duration `long:"debounce" description:"quiet period after a file event before rerunning (default 300ms)"`

	Args struct {
		Expected string `positional-arg-name:"EXPECTED" required:"yes"`
		Actual   string `positional-arg-name:"ACTUAL" required:"yes"`
	} `positional-args:"yes"`
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	cfg    *config.Config

	global  globalOptions
	compare compareCommand
	verify  verifyCommand
	fix     fixCommand
	serve   serveCommand
}

// run parses args, runs one command and returns the process exit code:
// 0 when nothing changed, 1 when changes were found or verification failed,
// 2 on any error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}

	parser := flags.NewParser(&c.global, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "imgdiff"

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"compare", "Compare two image trees", "Compare images in EXPECTED and ACTUAL and write a report to OUTPUT, which must be missing or empty.", &c.compare},
		{"verify", "Verify a report", "Check that the report in OUTPUT still matches its stored files and the EXPECTED tree.", &c.verify},
		{"fix", "Apply a report", "Promote the actual images recorded in OUTPUT onto EXPECTED after verifying the report.", &c.fix},
		{"serve", "Serve a live report", "Compare EXPECTED and ACTUAL into a temporary directory, serve it over HTTP and rerun on changes.", &c.serve},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(stdout, err)
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if err := c.setup(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if parser.Active == nil {
		return exitError
	}

	switch parser.Active.Name {
	case "compare":
		return c.runCompare(ctx)
	case "verify":
		return c.runVerify()
	case "fix":
		return c.runFix()
	case "serve":
		return c.runServe(ctx)
	}

	return exitError
}

func (c *cli) setup() error {
	cfg, err := config.LoadFile(c.global.Config)
	if err != nil {
		return err
	}

	if c.global.LogLevel != "" {
		cfg.LogLevel = c.global.LogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	cfg.ApplyLogLevel()
	c.cfg = cfg
	c.log = logger.New(c.stderr)
	return nil
}

func (c *cli) applyDiffOptions(opts DiffOptions) error {
	if opts.Tolerance != nil {
		c.cfg.Tolerance = *opts.Tolerance
	}
	if opts.PixelThreshold != nil {
		c.cfg.PixelThreshold = *opts.PixelThreshold
	}
	if opts.Workers != nil && *opts.Workers > 0 {
		c.cfg.Workers = *opts.Workers
	}
	if len(opts.Exclude) > 0 {
		c.cfg.Exclude = append(c.cfg.Exclude, opts.Exclude...)
	}
	if opts.IgnoreHidden {
		c.cfg.IgnoreHidden = true
	}

	return c.cfg.Validate()
}

// fail logs err with the context data of the outermost errorx error
func (c *cli) fail(err error) int {
	attrs := []any{"error", err}

	var withData interface{ Data() any }
	if errors.As(err, &withData) && withData.Data() != nil {
		attrs = append(attrs, "context", withData.Data())
	}

	c.log.Error("command failed", attrs...)
	return exitError
}

func (c *cli) runCompare(ctx context.Context) int {
	if err := c.applyDiffOptions(c.compare.DiffOptions); err != nil {
		return c.fail(err)
	}

	options, err := c.cfg.CompareOptions(c.log)
	if err != nil {
		return c.fail(err)
	}

	args := c.compare.Args
	report, err := imgdiff.CompareAndWrite(ctx, args.Expected, args.Actual, args.Output, options...)
	if err != nil {
		return c.fail(err)
	}

	fmt.Fprintln(c.stdout, imgdiff.FormatReport(report, args.Output))

	if report.HasChanges {
		return exitChanges
	}
	return exitOK
}

func (c *cli) runVerify() int {
	args := c.verify.Args

	report, err := imgdiff.LoadReport(args.Output)
	if err != nil {
		return c.fail(err)
	}

	var issues []imgdiff.Issue
	if c.verify.Applied {
		issues = imgdiff.VerifyApplied(report, args.Expected)
	} else {
		issues = imgdiff.VerifyReport(report, args.Output, args.Expected)
	}

	if len(issues) > 0 {
		c.printIssues(issues)
		return exitChanges
	}

	fmt.Fprintln(c.stdout, "Verification successful. No errors found.")
	return exitOK
}

func (c *cli) printIssues(issues []imgdiff.Issue) {
	for _, issue := range issues {
		fmt.Fprintln(c.stderr, issue)
	}
	fmt.Fprintf(c.stderr, "Verification failed with %d error(s).\n", len(issues))
}

func (c *cli) runFix() int {
	args := c.fix.Args

	options := []imgdiff.FixOption{
		imgdiff.WithDryRun(c.fix.DryRun),
		imgdiff.WithFixLogger(c.log),
	}
	if c.fix.Prune {
		options = append(options, imgdiff.WithPruneEmptyDirs())
	}

	result, err := imgdiff.Fix(args.Output, args.Expected, options...)
	if err != nil {
		if result != nil && result.State == imgdiff.StateVerificationFailed {
			c.printIssues(result.Issues)
			return exitChanges
		}
		return c.fail(err)
	}

	verb := "Applied"
	if result.State == imgdiff.StateDryRunReported {
		verb = "Would apply"
	}
	fmt.Fprintf(c.stdout, "%s %d change(s) to %s.\n", verb, len(result.Actions), args.Expected)

	return exitOK
}

func (c *cli) runServe(ctx context.Context) int {
	if err := c.applyDiffOptions(c.serve.DiffOptions); err != nil {
		return c.fail(err)
	}

	addr := c.cfg.Serve.Addr
	if c.serve.Addr != "" {
		addr = c.serve.Addr
	}
	debounce := c.cfg.Serve.Debounce
	if c.serve.Debounce > 0 {
		debounce = c.serve.Debounce
	}

	options, err := c.cfg.CompareOptions(c.log)
	if err != nil {
		return c.fail(err)
	}

	tmp, err := os.MkdirTemp("", "imgdiff-serve-")
	if err != nil {
		return c.fail(err)
	}
	defer os.RemoveAll(tmp)

	server := serve.New(c.serve.Args.Expected, c.serve.Args.Actual, filepath.Join(tmp, "report"),
		serve.WithDebounce(debounce),
		serve.WithLogger(c.log),
		serve.WithCompareOptions(options...),
	)
	defer server.Close()

	fmt.Fprintf(c.stdout, "Serving report from %s at %s\n", server.ReportDir(), addr)
	fmt.Fprintf(c.stdout, "Visit /run to force a comparison update\n")

	if err := server.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return c.fail(err)
	}

	return exitOK
}
