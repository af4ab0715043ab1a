package uribeacon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// AutoPrompter answers every question with answer.
type AutoPrompter bool

func (a AutoPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	return bool(a), ctx.Err()
}

type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter asks questions on out and reads y/N answers from in.
func NewTerminalPrompter(in io.Reader, out io.Writer) Prompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (t *terminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprintf(t.out, "%s [y/N] ", question); err != nil {
		return false, errors.Wrap(err, "prompt")
	}

	type answer struct {
		s   string
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		s, err := t.in.ReadString('\n')
		ch <- answer{s, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, errors.Wrap(a.err, "read answer")
		}
		switch strings.ToLower(strings.TrimSpace(a.s)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
