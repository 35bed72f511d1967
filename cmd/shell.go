// cmd/shell.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell [cas]",
	Short: "Interactive shell over a mounted .cas image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newShell(cmd.OutOrStdout())
		if len(args) == 1 {
			s.process("mount " + args[0])
		}
		return s.run()
	},
}

type shellCommand struct {
	Name             string
	Description      string
	MinArgs, MaxArgs int // MaxArgs -1 means unlimited
	NeedsMount       bool
	LocalFiles       bool // arguments complete as host paths
	Code             func(s *shell, args []string) error
}

// shell keeps the mounted container between commands.
type shell struct {
	out      io.Writer
	mounted  string
	commands map[string]*shellCommand
	quit     bool
}

func newShell(out io.Writer) *shell {
	s := &shell{out: out}
	s.commands = map[string]*shellCommand{
		"mount": {
			Name: "mount", Description: "Mount a .cas file (created on first add if missing)",
			MinArgs: 1, MaxArgs: 1, LocalFiles: true,
			Code: func(s *shell, args []string) error {
				s.mounted = args[0]
				if _, err := os.Stat(args[0]); err != nil {
					fmt.Fprintf(s.out, "Mounted %s (new)\n", args[0])
					return nil
				}
				if _, _, err := readEntries(args[0]); err != nil {
					s.mounted = ""
					return err
				}
				fmt.Fprintf(s.out, "Mounted %s\n", args[0])
				return nil
			},
		},
		"unmount": {
			Name: "unmount", Description: "Unmount the current .cas file",
			NeedsMount: true,
			Code: func(s *shell, args []string) error {
				s.mounted = ""
				return nil
			},
		},
		"ls": {
			Name: "ls", Description: "List the files on the mounted tape",
			NeedsMount: true,
			Code: func(s *shell, args []string) error {
				return runList(s.out, s.mounted)
			},
		},
		"add": {
			Name: "add", Description: "Append host files to the mounted tape",
			MinArgs: 1, MaxArgs: -1, NeedsMount: true, LocalFiles: true,
			Code: func(s *shell, args []string) error {
				return runAdd(s.out, s.mounted, args, addAlign)
			},
		},
		"extract": {
			Name: "extract", Description: "Extract every file to a directory (default .)",
			MaxArgs: 1, NeedsMount: true, LocalFiles: true,
			Code: func(s *shell, args []string) error {
				dir := "."
				if len(args) == 1 {
					dir = args[0]
				}
				return runExtract(s.out, s.mounted, dir)
			},
		},
		"export": {
			Name: "export", Description: "Write the tape as a wav file",
			MaxArgs: 1, NeedsMount: true, LocalFiles: true,
			Code: func(s *shell, args []string) error {
				output := ""
				if len(args) == 1 {
					output = args[0]
				}
				opts := exportOptions{format: string(FormatWAV), baud: exportOpts.baud, rate: exportOpts.rate}
				return runExport(context.Background(), s.out, s.mounted, output, opts)
			},
		},
		"help": {
			Name: "help", Description: "Show the commands",
			Code: func(s *shell, args []string) error {
				keys := make([]string, 0, len(s.commands))
				for k := range s.commands {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(s.out, "%-10s %s\n", k, s.commands[k].Description)
				}
				return nil
			},
		},
		"quit": {
			Name: "quit", Description: "Leave the shell",
			Code: func(s *shell, args []string) error {
				s.quit = true
				return nil
			},
		},
	}
	return s
}

func (s *shell) prompt() string {
	if s.mounted == "" {
		return "cas:<no mount>> "
	}
	return fmt.Sprintf("cas:%s> ", filepath.Base(s.mounted))
}

// process runs one command line. errors are printed, not returned, so a
// failing command never ends the session.
func (s *shell) process(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}
	verb := strings.ToLower(args[0])
	args = args[1:]

	command, ok := s.commands[verb]
	if !ok {
		fmt.Fprintf(s.out, "Unrecognized command: %s\n", verb)
		return
	}
	if len(args) < command.MinArgs {
		fmt.Fprintf(s.out, "%s expects at least %d arguments\n", verb, command.MinArgs)
		return
	}
	if command.MaxArgs != -1 && len(args) > command.MaxArgs {
		fmt.Fprintf(s.out, "%s expects at most %d arguments\n", verb, command.MaxArgs)
		return
	}
	if command.NeedsMount && s.mounted == "" {
		fmt.Fprintf(s.out, "%s only works on a mounted tape\n", verb)
		return
	}
	if err := command.Code(s, args); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

// Do completes command names, then host paths for commands that take them.
func (s *shell) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields := strings.Fields(text)

	var items []string
	prefix := ""
	switch {
	case len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(text, " ")):
		if len(fields) == 1 {
			prefix = fields[0]
		}
		for k := range s.commands {
			items = append(items, k)
		}
	default:
		command, ok := s.commands[strings.ToLower(fields[0])]
		if !ok || !command.LocalFiles {
			return nil, 0
		}
		if !strings.HasSuffix(text, " ") {
			prefix = fields[len(fields)-1]
		}
		items, _ = filepath.Glob(prefix + "*")
	}

	sort.Strings(items)
	var out [][]rune
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			out = append(out, []rune(item[len(prefix):]))
		}
	}
	return out, len([]rune(prefix))
}

func (s *shell) run() error {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".caspack_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       s.prompt(),
		HistoryFile:  history,
		AutoComplete: s,
		Stdout:       s.out,
	})
	if err != nil {
		return fmt.Errorf("error starting shell: %w", err)
	}
	defer rl.Close()

	for !s.quit {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}
		s.process(line)
		rl.SetPrompt(s.prompt())
	}
	return nil
}
