// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
)

// stubPrompt swaps the terminal check and the form runner. Tests using it
// must not run in parallel.
func stubPrompt(t *testing.T, terminal bool, run func(title, description string, value *bool) error) {
	t.Helper()
	origTerminal, origRun := isInputTerminal, runConfirm
	t.Cleanup(func() { isInputTerminal, runConfirm = origTerminal, origRun })
	isInputTerminal = func() bool { return terminal }
	runConfirm = run
}

func TestConfirm(t *testing.T) {
	boom := errors.New("tty gone")

	tests := []struct {
		name     string
		terminal bool
		run      func(string, string, *bool) error
		want     bool
		wantErr  error
	}{
		{
			name:     "no terminal",
			terminal: false,
			run: func(string, string, *bool) error {
				t.Error("form should not run without a terminal")
				return nil
			},
			wantErr: ErrNotInteractive,
		},
		{
			name:     "accepted",
			terminal: true,
			run: func(_, _ string, v *bool) error {
				*v = true
				return nil
			},
			want: true,
		},
		{
			name:     "declined",
			terminal: true,
			run:      func(string, string, *bool) error { return nil },
		},
		{
			name:     "aborted counts as no",
			terminal: true,
			run: func(_, _ string, v *bool) error {
				*v = true
				return huh.ErrUserAborted
			},
		},
		{
			name:     "form failure",
			terminal: true,
			run:      func(string, string, *bool) error { return boom },
			wantErr:  boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPrompt(t, tt.terminal, tt.run)

			got, err := Confirm("Install hdr/release v1.1.0?", "Files are unpacked into /sd")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Confirm() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if IsInteractive() != tt.terminal {
				t.Errorf("IsInteractive() = %v, want %v", IsInteractive(), tt.terminal)
			}
		})
	}
}
