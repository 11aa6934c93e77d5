/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command nbjit-debug is an interactive REPL for inspecting a compiled
// handler's bytecode framing and CFG shape, the debug-tooling analogue
// of scm/prompt.go's Repl: a prompt, a small command set, one recover
// wrapping the whole dispatch so a bad command prints an error instead
// of killing the session. It is test/dev tooling, never the production
// host packaging spec.md excludes.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/nbjit/bytecode"
	"github.com/launix-de/nbjit/cfgdump"
)

const (
	newPrompt = "\033[32mnbjit>\033[0m "
	resultFmt = "\033[31m=\033[0m "
)

// session holds the one bytecode segment currently loaded, mirroring
// Repl's single-environment state.
type session struct {
	path    string
	segment *bytecode.Segment
	watcher *fsnotify.Watcher
}

func (s *session) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	seg, err := bytecode.Read(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	s.path = path
	s.segment = seg
	return nil
}

func (s *session) info(w io.Writer) {
	seg := s.segment
	fmt.Fprintf(w, "name: %s\n", seg.Name)
	fmt.Fprintf(w, "locals: %d  max stack: %d  code bytes: %d\n", seg.LocalsSize, seg.MaxStack, len(seg.Code))
	for _, kind := range []bytecode.SectionKind{bytecode.SectionInit, bytecode.SectionPush, bytecode.SectionPull} {
		if off, ok := seg.Entry(kind); ok {
			fmt.Fprintf(w, "entry %s: offset %d\n", kind, off)
		}
	}
	for _, e := range seg.Exports {
		fmt.Fprintf(w, "export %s @ %d\n", e.Name, e.Offset)
	}
}

func (s *session) lines(w io.Writer) {
	for _, l := range s.segment.LineMap {
		fmt.Fprintf(w, "ip %d -> line %d\n", l.IP, l.Line)
	}
}

// watch starts an fsnotify watch on the currently loaded path,
// reloading and printing a summary on every write event — the
// "watch-and-recompile a bytecode file" behavior the debug CLI's
// DOMAIN STACK entry names, scaled down to "watch-and-reload" since
// this module's CFG construction starts from an already-built
// mir.Func, not from re-decoding bytecode bytes (see bytecode
// package's own doc comment on that boundary).
func (s *session) watch(w io.Writer) error {
	if s.watcher != nil {
		return fmt.Errorf("already watching %s", s.path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Write == fsnotify.Write {
					if err := s.load(s.path); err != nil {
						fmt.Fprintf(w, "reload failed: %v\n", err)
						continue
					}
					fmt.Fprintf(w, "\nreloaded %s\n", s.path)
					s.info(w)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(w, "watch error: %v\n", err)
			}
		}
	}()
	return nil
}

func (s *session) stopWatch() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

func dispatch(s *session, w io.Writer, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "load":
		if len(fields) != 2 {
			fmt.Fprintln(w, "usage: load <path>")
			return
		}
		if err := s.load(fields[1]); err != nil {
			fmt.Fprintln(w, err)
			return
		}
		fmt.Fprint(w, resultFmt)
		s.info(w)
	case "info":
		if s.segment == nil {
			fmt.Fprintln(w, "no segment loaded; try: load <path>")
			return
		}
		fmt.Fprint(w, resultFmt)
		s.info(w)
	case "lines":
		if s.segment == nil {
			fmt.Fprintln(w, "no segment loaded; try: load <path>")
			return
		}
		fmt.Fprint(w, resultFmt)
		s.lines(w)
	case "dot":
		fmt.Fprint(w, resultFmt)
		_ = cfgdump.WriteDot(w, sampleFunc())
	case "domtree":
		fmt.Fprint(w, resultFmt)
		_ = cfgdump.WriteDomInfo(w, sampleFunc())
	case "watch":
		if s.segment == nil {
			fmt.Fprintln(w, "no segment loaded; try: load <path>")
			return
		}
		if err := s.watch(w); err != nil {
			fmt.Fprintln(w, err)
			return
		}
		fmt.Fprintf(w, "watching %s for changes\n", s.path)
	case "help":
		fmt.Fprintln(w, "commands: load <path>, info, lines, dot, domtree, watch, help, quit")
	default:
		fmt.Fprintf(w, "unknown command %q; try help\n", fields[0])
	}
}

func repl() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".nbjit-debug-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	s := &session{}
	defer s.stopWatch()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if strings.TrimSpace(line) == "quit" {
			break
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r)
				}
			}()
			dispatch(s, os.Stdout, line)
		}()
	}
}

func main() {
	repl()
}
