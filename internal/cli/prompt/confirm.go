// Package prompt implements the interactive confirmation used at the
// oversized-pull gate.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/statbank/pkg/query"
	"golang.org/x/term"
)

const suffix = " (y/N) "

// Yes reports whether an answer approves.
func Yes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// LineConfirmer reads y/N answers line by line from a reader.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a confirmer reading answers from in and
// writing prompts to out.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm writes the prompt and reads one answer. End of input declines.
func (c *LineConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _ = fmt.Fprint(c.out, prompt+suffix)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		_, _ = fmt.Fprintln(c.out)
	}
	return Yes(line), nil
}

// ReadlineConfirmer asks through a readline instance, typically the one
// owned by the interactive shell.
type ReadlineConfirmer struct {
	rl *readline.Instance
}

// NewReadlineConfirmer wraps rl.
func NewReadlineConfirmer(rl *readline.Instance) *ReadlineConfirmer {
	return &ReadlineConfirmer{rl: rl}
}

// Confirm prints the prompt and reads one answer. Ctrl-C and Ctrl-D decline.
func (c *ReadlineConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lines := strings.Split(prompt, "\n")
	for _, l := range lines[:len(lines)-1] {
		_, _ = fmt.Fprintln(c.rl.Stdout(), l)
	}

	answer, err := c.readAnswer(lines[len(lines)-1] + suffix)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return Yes(answer), nil
}

func (c *ReadlineConfirmer) readAnswer(prompt string) (string, error) {
	old := c.rl.Config.Prompt
	c.rl.SetPrompt(prompt)
	defer c.rl.SetPrompt(old)
	return c.rl.Readline()
}

// For returns a confirmer reading from in, or nil when in is a file that
// is not a terminal. A nil confirmer makes oversized pulls fail with
// query.ErrUserAborted unless they are auto-accepted.
func For(in io.Reader, out io.Writer) query.Confirmer {
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return NewLineConfirmer(in, out)
}
