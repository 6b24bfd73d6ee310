package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"bankledger/internal/core"
)

// Prompter reads answers line by line. Passwords are read without echo
// when the input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	tty *os.File
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = f
	}
	return p
}

// Line prints label and returns the next line without its line ending.
// It returns io.EOF once the input is exhausted.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password is Line without echo on terminals.
func (p *Prompter) Password(label string) (string, error) {
	if p.tty == nil {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(int(p.tty.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Amount asks until the answer is a positive amount.
func (p *Prompter) Amount(label string) (decimal.Decimal, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return decimal.Zero, err
		}
		amount, err := core.ParseAmount(s)
		if err == nil {
			return amount, nil
		}
		fmt.Fprintln(p.out, "Invalid amount! Enter a positive number such as 12.50.")
	}
}

// Balance asks until the answer is a non-negative amount.
func (p *Prompter) Balance(label string) (decimal.Decimal, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return decimal.Zero, err
		}
		amount, err := core.ParseBalance(s)
		if err == nil {
			return amount, nil
		}
		fmt.Fprintln(p.out, "Invalid amount! Enter zero or a positive number.")
	}
}
