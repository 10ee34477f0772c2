package cmd

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// confirm asks a yes/no question. Anything but an explicit yes is a no.
func confirm(question string) bool {
	p := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}
	_, err := p.Run()
	return err == nil
}

func askLabel(question string) (string, error) {
	p := promptui.Prompt{
		Label: question,
		Validate: func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				return errors.New("label cannot be empty")
			}
			if strings.ContainsAny(s, `/\`) {
				return errors.New("label cannot contain path separators")
			}
			return nil
		},
	}
	label, err := p.Run()
	if err != nil {
		return "", errors.New("input cancelled")
	}
	return strings.TrimSpace(label), nil
}
