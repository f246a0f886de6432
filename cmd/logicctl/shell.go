package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/nitrogenlogic/logicclient"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	shellPrompt     = "logic> "
	historyFileName = ".logicctl_history"
	historySize     = 500
	maxDataPreview  = 64
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Send raw commands interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *logicclient.Client) error {
			le := newLineEditor(cmd.InOrStdin(), cmd.OutOrStdout())
			defer le.Close()
			return runShell(ctx, c, le, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// lineEditor reads commands with history on a terminal and plain lines
// otherwise.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineEditor(in io.Reader, out io.Writer) *lineEditor {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		home, _ := os.UserHomeDir()
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:       shellPrompt,
			HistoryFile:  filepath.Join(home, historyFileName),
			HistoryLimit: historySize,
		})
		if err == nil {
			return &lineEditor{rl: rl, out: out}
		}
		logger.Warn().Err(err).Msg("readline unavailable, using plain input")
	}
	return &lineEditor{scanner: bufio.NewScanner(in), out: out}
}

// ReadLine returns the next line, or io.EOF at end of input or on interrupt.
func (le *lineEditor) ReadLine() (string, error) {
	if le.rl != nil {
		line, err := le.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return line, err
	}

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

func (le *lineEditor) Close() {
	if le.rl != nil {
		_ = le.rl.Close()
	}
}

func runShell(ctx context.Context, c *logicclient.Client, le *lineEditor, out io.Writer) error {
	for {
		line, err := le.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		if name == "quit" || name == "exit" || name == logicclient.CmdBye {
			return nil
		}

		var args []any
		if rest = strings.TrimSpace(rest); rest != "" {
			for _, arg := range strings.Split(rest, ",") {
				args = append(args, strings.TrimSpace(arg))
			}
		}

		cmd := c.Do(name, args...)
		if err := cmd.Wait(ctx); err != nil && logicclient.ShouldCloseConnection(err) {
			return err
		}
		printResult(out, cmd)
	}
}

func printResult(out io.Writer, cmd *logicclient.Command) {
	switch cmd.Status() {
	case logicclient.StatusSucceeded:
		fmt.Fprintf(out, "OK - %s\n", cmd.Message())
		for _, line := range cmd.Lines() {
			fmt.Fprintln(out, line)
		}
		if data := cmd.Data(); len(data) > 0 {
			fmt.Fprintf(out, "%d bytes % x", len(data), data[:min(len(data), maxDataPreview)])
			if len(data) > maxDataPreview {
				fmt.Fprint(out, " ...")
			}
			fmt.Fprintln(out)
		}
	default:
		fmt.Fprintf(out, "%s: %v\n", cmd.Status(), cmd.Err())
	}
}
