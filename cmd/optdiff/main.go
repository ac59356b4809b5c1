package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/optdiff/passdump"
	"github.com/slowlang/optdiff/passdump/irfilter"
	"github.com/slowlang/optdiff/passdump/render"
	"github.com/slowlang/optdiff/passdump/textdiff"
)

func main() {
	app := &cli.Command{
		Name:        "optdiff",
		Description: "optdiff shows how LLVM optimization passes change the IR of every function",
		Action:      run,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("skip-unchanged,s", false, "hide passes that don't modify the IR"),
			cli.NewFlag("function,f", "", "only show passes of the function"),
			cli.NewFlag("pass,P", "", "only show passes with names containing the string"),
			cli.NewFlag("extended-regex,E", false, "treat --function and --pass as regular expressions"),
			cli.NewFlag("list,l", false, "list functions and exit"),
			cli.NewFlag("demangle,d", false, "demangle C++ symbols"),
			cli.NewFlag("pager,p", autoPager, "pager command, $OPTDIFF_PAGER or delta, riff, less by default, empty to disable"),
			cli.NewFlag("passthrough", false, "copy the compiler output preceding the first dump to stderr"),
			cli.NewFlag("context,U", textdiff.DefaultContext, "unchanged lines around each change"),
			cli.NewFlag("full-module", false, "dumps were made with -print-module-scope"),
			cli.NewFlag("no-filter", false, "keep debug info, metadata and attributes"),
			cli.NewFlag("color", "auto", "colorize output: auto, always, never"),
			cli.NewFlag("jobs,j", 0, "diff workers, 0 for one per cpu"),
			cli.NewFlag("log", false, "log to stderr"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func run(c *cli.Command) (err error) {
	if !c.Bool("log") {
		tlog.DefaultLogger = tlog.New(io.Discard)
	}

	tlog.SetVerbosity(c.String("verbosity"))

	signal.Ignore(syscall.SIGPIPE)

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	text, err := readInput(c.Args)
	if err != nil {
		return err
	}

	if c.Bool("list") {
		for _, name := range passdump.Functions(text, c.Bool("demangle")) {
			_, err = fmt.Fprintf(os.Stdout, "%s\n", name)
			if err != nil {
				return output(err)
			}
		}

		return nil
	}

	opts := passdump.DefaultOptions()

	opts.SkipUnchanged = c.Bool("skip-unchanged")
	opts.Function = c.String("function")
	opts.Pass = c.String("pass")
	opts.Regex = c.Bool("extended-regex")
	opts.Demangle = c.Bool("demangle")
	opts.Style.Demangle = c.Bool("demangle")
	opts.Context = c.Int("context")
	opts.FullModule = c.Bool("full-module")
	opts.Jobs = c.Int("jobs")

	if c.Bool("no-filter") {
		opts.Filter = &irfilter.Options{}
	}

	if opts.Context < 0 {
		return errors.New("negative context: %v", opts.Context)
	}

	out, r, err := passdump.Diff(ctx, text, opts)
	if err != nil {
		var nf render.FunctionNotFoundError
		if errors.As(err, &nf) {
			return errors.Wrap(err, "use --list to see all functions")
		}

		return err
	}

	if c.Bool("passthrough") {
		_, _ = io.WriteString(os.Stderr, r.Prefix)
	}

	for _, d := range r.Diags {
		if errors.Is(d, passdump.ErrEmptyInput) {
			if h := hint(text); h != "" {
				return errors.Wrap(d, "%v", h)
			}

			return d
		}

		fmt.Fprintf(os.Stderr, "optdiff: %v\n", d)
	}

	if h := hint(text); h != "" {
		fmt.Fprintf(os.Stderr, "optdiff: %v\n", h)
	}

	if r.Malformed != 0 {
		tlog.Printw("malformed markers ignored", "count", r.Malformed)
	}

	pager := choosePager(c.String("pager"), os.LookupEnv, lookPath)
	paged := pager != "" && isTerminal(os.Stdout)

	color, err := colorMode(c.String("color"), isTerminal(os.Stdout), pager, paged)
	if err != nil {
		return err
	}

	if color {
		out = newPalette(os.Stdout, c.String("color") == "always").colorize(out)
	}

	if !paged {
		_, err = os.Stdout.Write(out)

		return output(err)
	}

	p, err := openPager(ctx, pager)
	if err != nil {
		return errors.Wrap(err, "pager")
	}

	_, err = p.Write(out)

	if cerr := p.Close(); err == nil {
		err = cerr
	}

	return output(err)
}

func readInput(args []string) (string, error) {
	if len(args) > 1 {
		return "", errors.New("one input file expected, got %d", len(args))
	}

	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}

		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrap(err, "read file")
	}

	return string(data), nil
}

func hint(text string) string {
	switch {
	case !strings.Contains(text, "IR Dump Before"):
		return "did you forget to add `-mllvm -print-before-all`?"
	case !strings.Contains(text, "IR Dump After"):
		return "did you forget to add `-mllvm -print-after-all`?"
	}

	return ""
}

// output treats a closed reader as the end of the job.
func output(err error) error {
	if errors.Is(err, syscall.EPIPE) {
		os.Exit(1)
	}

	return err
}
