package main

import (
	"errors"
	"fmt"
	"os"

	"wsrestore/internal/config"

	"golang.org/x/term"
)

// promptPassphrase returns WSRESTORE_PASSPHRASE when set and otherwise asks
// on the terminal.
func promptPassphrase() (string, error) {
	if p, ok := os.LookupEnv(config.EnvPassphrase); ok {
		return p, nil
	}
	return readPassword("Passphrase: ")
}

// promptNewPassphrase asks twice so a typo does not lock the key away.
func promptNewPassphrase() (string, error) {
	if p, ok := os.LookupEnv(config.EnvPassphrase); ok {
		return p, nil
	}
	p, err := readPassword("New passphrase: ")
	if err != nil {
		return "", err
	}
	again, err := readPassword("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if p != again {
		return "", errors.New("passphrases do not match")
	}
	return p, nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set %s", config.EnvPassphrase)
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
