package cmd

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

type interactivePrompter interface {
	confirm(prompt string, defaultValue bool) (bool, error)
	requiredSecret(prompt string) (string, error)
}

type huhPrompter struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newHuhPrompter(stdin io.Reader, stdout, stderr io.Writer) interactivePrompter {
	return &huhPrompter{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

func (h *huhPrompter) runField(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithInput(h.stdin).
		WithOutput(h.stdout)
	return form.Run()
}

func (h *huhPrompter) confirm(prompt string, defaultValue bool) (bool, error) {
	value := defaultValue
	field := huh.NewConfirm().
		Title(prompt).
		Value(&value)
	if err := h.runField(field); err != nil {
		return false, err
	}
	return value, nil
}

func (h *huhPrompter) requiredSecret(prompt string) (string, error) {
	var value string
	field := huh.NewInput().
		Title(prompt).
		Prompt("> ").
		Value(&value).
		EchoMode(huh.EchoModePassword).
		Validate(func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("input required")
			}
			return nil
		})
	if err := h.runField(field); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
