package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cjeanneret/camctl/internal/debug"
)

const shellHelp = `Commands:
  list [-usb]  connect  wait  disconnect  status
  get NAME  set NAME VALUE  choices NAME  config  summary  af on|off
  capture [-o FILE]  preview [-o FILE]
  timelapse [-count N] [-interval D] [-o DIR]
  help  quit`

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("list", readline.PcItem("-usb")),
	readline.PcItem("connect"),
	readline.PcItem("wait"),
	readline.PcItem("disconnect"),
	readline.PcItem("status"),
	readline.PcItem("get"),
	readline.PcItem("set"),
	readline.PcItem("choices"),
	readline.PcItem("config"),
	readline.PcItem("summary"),
	readline.PcItem("af", readline.PcItem("on"), readline.PcItem("off")),
	readline.PcItem("capture", readline.PcItem("-o")),
	readline.PcItem("preview", readline.PcItem("-o")),
	readline.PcItem("timelapse", readline.PcItem("-count"), readline.PcItem("-interval"), readline.PcItem("-o")),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)

// shell runs an interactive prompt until EOF, quit or ctx ends.
func (a *app) shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "camctl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Route output through readline so log lines do not break the prompt.
	a.out = rl.Stdout()
	debug.SetOutput(rl.Stderr())
	defer debug.SetOutput(os.Stdout)

	fmt.Fprintln(a.out, shellHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out, "Exiting...")
				return nil
			}
			return err
		}
		if quit := a.exec(ctx, line); quit {
			fmt.Fprintln(a.out, "Exiting...")
			return nil
		}
	}
}

// exec runs one shell line and reports whether the shell should exit.
// Command errors are printed, never returned.
func (a *app) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]
	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(a.out, shellHelp)
		return false
	case "shell", "serve":
		fmt.Fprintf(a.out, "%s is not available inside the shell\n", cmd)
		return false
	}
	if err := a.run(ctx, cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(a.out, "Usage: %v (type 'help' for commands)\n", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		} else {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
	return false
}
