package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped out in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

var readers = map[io.Reader]*bufio.Reader{}

// lineReader returns one buffered reader per input so prompts issued by
// different steps of a command never lose each other's buffered input.
func lineReader(in io.Reader) *bufio.Reader {
	r, ok := readers[in]
	if !ok {
		r = bufio.NewReader(in)
		readers[in] = r
	}
	return r
}

func readLine(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPassword reads a password without echo when the input is a terminal and
// falls back to a plain line otherwise.
func getPassword(in io.Reader, w io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return readLine(lineReader(in), "Password: ", w)
	}

	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
