package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// test seams over the terminal
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// GetToken prints a prompt to w and reads a token. On a terminal the token is
// read without echo; otherwise a single line is read from reader.
//
// The raw read buffer is zeroed before returning. The returned string is an
// immutable copy and stays in memory until it is garbage collected.
func GetToken(reader *bufio.Reader, fd int, w io.Writer) (string, error) {
	if !isTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if _, err := fmt.Fprint(w, "Enter token: "); err != nil {
		return "", err
	}
	buf, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	defer common.WipeByteArray(buf)
	return string(buf), nil
}

func stdinFd() int { return int(os.Stdin.Fd()) }
