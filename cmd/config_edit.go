package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/brogergvhs/noveld/internal/config"

	"github.com/spf13/cobra"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Open the active or named profile in $EDITOR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 0 {
			var err error
			label, err = config.CurrentLabel()
			if err != nil {
				return fmt.Errorf("failed to get current config label: %w", err)
			}
		} else {
			label = args[0]
		}

		path, err := config.ConfigPathByLabel(label)
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		editor := os.Getenv("VISUAL")
		if editor == "" {
			editor = os.Getenv("EDITOR")
		}
		if editor == "" {
			editor = "vi"
		}

		run := exec.Command(editor, path)
		run.Stdin = os.Stdin
		run.Stdout = os.Stdout
		run.Stderr = os.Stderr

		if err := run.Run(); err != nil {
			return fmt.Errorf("failed to open %s: %w", editor, err)
		}

		if _, err := config.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s no longer parses: %v\n", path, err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
