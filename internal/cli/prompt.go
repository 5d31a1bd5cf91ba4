package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"osenaabo-go/internal/session"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Prompter answers yes/no questions from the terminal. A preset answer (from
// --yes or --no) skips the question. Without a terminal and without a preset
// every question is declined.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
	Preset      *bool

	once   sync.Once
	reader *bufio.Reader
}

var _ session.Confirmer = (*Prompter)(nil)

// NewPrompter returns a prompter on stdin, writing questions to out.
func NewPrompter(out io.Writer, preset *bool) *Prompter {
	return &Prompter{
		In:          os.Stdin,
		Out:         out,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		Preset:      preset,
	}
}

// Confirm asks prompt and waits for y or n.
func (p *Prompter) Confirm(prompt string) bool {
	if p.Preset != nil {
		fmt.Fprintf(p.Out, "%s\n> %s\n", prompt, answer(*p.Preset))
		return *p.Preset
	}
	if !p.Interactive {
		fmt.Fprintf(p.Out, "%s\n> no (not a terminal, pass --yes to accept)\n", prompt)
		return false
	}
	p.once.Do(func() { p.reader = bufio.NewReader(p.In) })

	for {
		fmt.Fprintf(p.Out, "%s [y/N]: ", prompt)
		line, err := p.reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		}
		if err != nil {
			return false
		}
	}
}

func answer(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// presetFromFlags turns --yes/--no into a preset answer.
func presetFromFlags(yes, no bool) (*bool, error) {
	switch {
	case yes && no:
		return nil, fmt.Errorf("--yes and --no are mutually exclusive")
	case yes:
		v := true
		return &v, nil
	case no:
		v := false
		return &v, nil
	}
	return nil, nil
}
