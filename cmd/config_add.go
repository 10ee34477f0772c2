package cmd

import (
	"fmt"

	"github.com/brogergvhs/noveld/internal/config"

	"github.com/spf13/cobra"
)

var flagAddFrom string

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new site profile, optionally copied from an existing YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			var err error
			if label, err = askLabel("Label for the new profile"); err != nil {
				return err
			}
		}

		if flagAddFrom != "" {
			if _, err := config.LoadFile(flagAddFrom); err != nil {
				return fmt.Errorf("%s is not a valid profile: %w", flagAddFrom, err)
			}
			if err := config.AddConfig(label, flagAddFrom); err != nil {
				return err
			}
			fmt.Printf("Imported %s as profile %q\n", flagAddFrom, label)
			return nil
		}

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return err
		}

		fmt.Printf("Created new profile: %s\n", path)
		fmt.Printf("Fill in the selectors with `noveld config edit %s` or `noveld detect`.\n", label)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&flagAddFrom, "from", "", "copy an existing YAML profile instead of starting from defaults")
	configCmd.AddCommand(configAddCmd)
}
