package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// terminalConsent answers trust and settings prompts from an interactive
// terminal, in the shape the lifecycle manager expects.
type terminalConsent struct {
	in  *bufio.Scanner
	out io.Writer
}

func newTerminalConsent(in io.Reader, out io.Writer) *terminalConsent {
	return &terminalConsent{in: bufio.NewScanner(in), out: out}
}

func (c *terminalConsent) RequestConsent(description string) bool {
	fmt.Fprintf(c.out, "? %s (y/N) ", description)
	if !c.in.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(c.in.Text()))
	return answer == "y" || answer == "yes"
}

func (c *terminalConsent) RequestSetting(prompt string) (string, error) {
	fmt.Fprintf(c.out, "? %s: ", prompt)
	if !c.in.Scan() {
		return "", c.in.Err()
	}
	return strings.TrimSpace(c.in.Text()), nil
}
