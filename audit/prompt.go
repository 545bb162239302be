package audit

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// Prompter is the interactive surface the reconciliation workflow
// needs. Kept minimal so tests can script it.
type Prompter interface {
	// Select presents labeled choices and returns the chosen index.
	Select(label string, options []string) (int, error)
	// Confirm asks a yes/no question with a default answer.
	Confirm(question string, def bool) (bool, error)
}

// TerminalPrompter implements Prompter on a real terminal.
type TerminalPrompter struct{}

var _ Prompter = TerminalPrompter{}

func (TerminalPrompter) Select(label string, options []string) (int, error) {
	prompt := promptui.Select{
		Label: label,
		Items: options,
		Size:  12,
	}
	idx, _, err := prompt.Run()
	return idx, err
}

func (TerminalPrompter) Confirm(question string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
		Default:   d,
	}
	_, err := prompt.Run()
	if err != nil {
		// promptui reports a "no" answer as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
