package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

func promptPassword(email string) (string, error) {
	var pw string
	input := huh.NewInput().
		Title("Password for " + email).
		Description("Set HELPTREE_AUTH_PASSWORD to skip this prompt.").
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("password is required")
			}
			return nil
		})
	err := huh.NewForm(huh.NewGroup(input)).WithTheme(huh.ThemeDracula()).Run()
	return pw, err
}
