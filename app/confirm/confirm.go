package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Confirmer answers yes/no questions before destructive operations.
type Confirmer interface {
	Confirm(question string) bool
}

// Prompt asks on a terminal. When input is not a terminal (CI, pipes) every
// question is answered yes.
type Prompt struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

func NewPrompt() *Prompt {
	return &Prompt{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

func NewPromptWithIO(in io.Reader, out io.Writer, interactive bool) *Prompt {
	return &Prompt{in: in, out: out, interactive: interactive}
}

func (p *Prompt) Confirm(question string) bool {
	if !p.interactive {
		fmt.Fprintf(p.out, "%s [Y/n] auto-confirmed: Y\n", question)
		return true
	}

	fmt.Fprintf(p.out, "%s [Y/n] ", question)

	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

// Static always gives the same answer; used for --yes.
type Static bool

func (s Static) Confirm(string) bool {
	return bool(s)
}
