package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/JonMunkholm/dados/internal/core"
)

// secretEnv names the variable holding the caller's secret.
const secretEnv = "DADOS_SECRET"

// readSecret returns fromEnv when set. Otherwise it prompts on prompt and
// reads one line from in, without echo when in is a terminal.
func readSecret(fromEnv string, in io.Reader, prompt io.Writer) (string, error) {
	if fromEnv != "" {
		return fromEnv, nil
	}

	fmt.Fprint(prompt, "Secret: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("no secret given: set %s or type it at the prompt", secretEnv)
	}
	return secret, nil
}

// exitCode maps an error kind to a process exit status.
func exitCode(err error) int {
	var (
		authErr  *core.AuthorizationError
		parseErr *core.ParseError
		connErr  *core.ConnectionError
		delivErr *core.DeliveryError
	)
	switch {
	case errors.As(err, &authErr):
		return 3
	case errors.As(err, &parseErr):
		return 4
	case errors.As(err, &connErr):
		return 5
	case errors.As(err, &delivErr):
		return 6
	}
	return 1
}
