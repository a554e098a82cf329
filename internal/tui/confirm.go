// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotInteractive is returned by Confirm when stdin is not a terminal.
var ErrNotInteractive = errors.New("confirmation needs an interactive terminal")

var (
	// isInputTerminal reports whether stdin is a terminal.
	isInputTerminal = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}

	runConfirm = func(title, description string, value *bool) error {
		confirm := huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Install").
			Negative("Cancel").
			Value(value)
		return huh.NewForm(huh.NewGroup(confirm)).
			WithTheme(huh.ThemeCharm()).
			WithAccessible(os.Getenv("ACCESSIBLE") != "").
			Run()
	}
)

// IsInteractive reports whether prompts and the browser can read keys.
func IsInteractive() bool {
	return isInputTerminal()
}

// Confirm asks a yes/no question. Aborting the prompt counts as no. Without
// a terminal it returns false and ErrNotInteractive.
func Confirm(title, description string) (bool, error) {
	if !isInputTerminal() {
		return false, ErrNotInteractive
	}
	answer := false
	if err := runConfirm(title, description, &answer); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirm: %w", err)
	}
	return answer, nil
}
