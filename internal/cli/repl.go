package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"billtrack/internal/api"
	"billtrack/internal/core"
	applog "billtrack/internal/log"
	"billtrack/internal/rowsync"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// Reporter downloads the PDF report.
type Reporter interface {
	Report(ctx context.Context, req *api.ReportRequest) (api.Report, error)
}

// Activity reports the number of requests in flight.
type Activity interface {
	Watch(fn func(active int)) (cancel func())
}

// REPL is the interactive front end over a row store.
type REPL struct {
	store      *rowsync.Store
	reports    Reporter
	activity   Activity
	reportPath string
	logger     *applog.Logger

	in        *bufio.Scanner
	out       io.Writer
	printlnFn func(a ...any)
	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte) error
}

// Options configures a REPL. Nil readers and writers default to stdin and
// stdout.
type Options struct {
	Reports    Reporter
	Activity   Activity
	ReportPath string
	In         io.Reader
	Out        io.Writer
	Logger     *applog.Logger
}

func NewREPL(store *rowsync.Store, opts Options) *REPL {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.ReportPath == "" {
		opts.ReportPath = "external_report.pdf"
	}
	r := &REPL{
		store:      store,
		reports:    opts.Reports,
		activity:   opts.Activity,
		reportPath: opts.ReportPath,
		logger:     opts.Logger.WithComponent(applog.ComponentCLI),
		in:         bufio.NewScanner(opts.In),
		out:        opts.Out,
		readFile:   os.ReadFile,
		writeFile:  func(p string, b []byte) error { return os.WriteFile(p, b, 0o644) },
	}
	r.printlnFn = func(a ...any) { fmt.Fprintln(r.out, a...) }
	return r
}

func (r *REPL) println(a ...any) { r.printlnFn(a...) }

func (r *REPL) printf(format string, a ...any) { r.printlnFn(fmt.Sprintf(format, a...)) }

// Run loads the rows and reads commands until exit, end of input or ctx
// cancellation.
func (r *REPL) Run(ctx context.Context) error {
	if r.activity != nil {
		busy := false
		cancel := r.activity.Watch(func(active int) {
			switch {
			case active > 0 && !busy:
				busy = true
				r.println("... working")
			case active == 0:
				busy = false
			}
		})
		defer cancel()
	}

	if err := r.store.Load(ctx); err != nil {
		r.printf("Could not load rows: %s", api.ServerMessage(err))
	} else {
		r.printf("Loaded %d rows. Type 'help' for commands.", r.store.Len())
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, ok := r.prompt("> ")
		if !ok {
			return r.in.Err()
		}
		if line == "" {
			continue
		}
		quit, err := r.Execute(ctx, line)
		if err != nil {
			r.printf("Error: %s", describe(err))
		}
		if quit {
			return nil
		}
	}
}

func (r *REPL) prompt(label string) (string, bool) {
	fmt.Fprint(r.out, label)
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

// describe turns an error into the text shown to the user: the server's
// {error} message when there is one, each validation failure otherwise.
func describe(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) {
		return api.ServerMessage(err)
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// Execute runs one command line and reports whether the REPL should stop.
func (r *REPL) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, fmt.Errorf("%w: empty command (try 'help')", ErrUsage)
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		r.help()
		return false, nil
	}

	c, ok := commands[cmd]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	if len(args) < c.minArgs {
		return false, fmt.Errorf("%w: %s", ErrUsage, c.usage)
	}
	return false, c.run(r, ctx, args)
}

func (r *REPL) help() {
	r.println("Commands:")
	for _, name := range commandOrder {
		r.printf("  %-32s %s", commands[name].usage, commands[name].summary)
	}
	r.printf("  %-32s %s", "help", "show this list")
	r.printf("  %-32s %s", "exit", "leave")
}

// rowAt resolves a 1-based display position.
func (r *REPL) rowAt(arg string) (core.Row, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return core.Row{}, fmt.Errorf("row number expected, got %q", arg)
	}
	return r.store.At(pos)
}
