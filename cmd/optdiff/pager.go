package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	pagerWriter struct {
		io.WriteCloser

		cmd *exec.Cmd
	}
)

const autoPager = "auto"

var knownPagers = []string{"delta", "riff", "less -R"}

// choosePager resolves the pager command. Empty result means no paging.
func choosePager(flag string, env func(string) (string, bool), look func(string) error) string {
	if flag != autoPager {
		return strings.TrimSpace(flag)
	}

	if p, ok := env("OPTDIFF_PAGER"); ok {
		return strings.TrimSpace(p)
	}

	for _, p := range knownPagers {
		if look(strings.Fields(p)[0]) == nil {
			return p
		}
	}

	return ""
}

// highlights reports whether the pager colors diffs on its own.
func highlights(pager string) bool {
	f := strings.Fields(pager)
	if len(f) == 0 {
		return false
	}

	switch filepath.Base(f[0]) {
	case "delta", "riff", "diff-so-fancy":
		return true
	}

	return false
}

func openPager(ctx context.Context, command string) (io.WriteCloser, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if _, ok := os.LookupEnv("LESS"); !ok {
		cmd.Env = append(os.Environ(), "LESS=FRX")
	}

	w, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}

	err = cmd.Start()
	if err != nil {
		return nil, errors.Wrap(err, "start %v", command)
	}

	tlog.SpanFromContext(ctx).Printw("pager started", "cmd", command, "pid", cmd.Process.Pid)

	return &pagerWriter{
		WriteCloser: w,
		cmd:         cmd,
	}, nil
}

func (p *pagerWriter) Close() error {
	err := p.WriteCloser.Close()

	werr := p.cmd.Wait()
	if err == nil && werr != nil {
		err = errors.Wrap(werr, "pager exited")
	}

	return err
}

func lookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
