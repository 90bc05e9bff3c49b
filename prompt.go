package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// prompter is how the agent talks to the user.
type prompter interface {
	// Ask shows question and returns the answer without its line ending.
	Ask(question string) (string, error)
	// Show prints one informational line.
	Show(line string)
}

type terminalPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// fd is checked with term.IsTerminal on the first Ask; a nil logger
	// skips the check.
	fd       int
	logger   *log.Logger
	checkTTY sync.Once
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		fd:     int(os.Stdin.Fd()),
		logger: log.Default(),
	}
}

func (p *terminalPrompter) Ask(question string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.checkTTY.Do(func() {
		if p.logger != nil && !term.IsTerminal(p.fd) {
			p.logger.Printf("stdin is not a terminal, pairing prompts will read piped input")
		}
	})

	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *terminalPrompter) Show(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}
