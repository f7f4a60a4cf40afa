package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/pkg/settings"
)

// settingsCommand creates the "settings" command.
func (c *CLI) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prefs := c.newPreferences(ctx)
			defer prefs.Store().Close()
			snap, err := prefs.Snapshot(ctx)
			if err != nil {
				return err
			}
			for _, k := range settings.Keys() {
				v := StyleValue.Render(strconv.FormatBool(snap[k]))
				if snap[k] != settings.Default(k) {
					v += StyleDim.Render(" (changed)")
				}
				fmt.Printf("%-18s %s\n", k, v)
			}
			if fs, ok := prefs.Store().(*settings.FileStore); ok {
				printDetail("File: %s", fs.Path())
			}
			return nil
		},
	}
	cmd.AddCommand(c.settingsGetCommand())
	cmd.AddCommand(c.settingsSetCommand())
	cmd.AddCommand(c.settingsResetCommand())
	return cmd
}

func validKey(key string) error {
	if !settings.IsKnown(key) {
		return fmt.Errorf("unknown setting %q (known: %v)", key, settings.Keys())
	}
	return nil
}

func (c *CLI) settingsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one preference",
		Args:      cobra.ExactArgs(1),
		ValidArgs: settings.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validKey(args[0]); err != nil {
				return err
			}
			ctx := cmd.Context()
			prefs := c.newPreferences(ctx)
			defer prefs.Store().Close()
			v, err := prefs.Bool(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func (c *CLI) settingsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <true|false>",
		Short:     "Change one preference",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validKey(args[0]); err != nil {
				return err
			}
			v, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid value %q: want true or false", args[1])
			}
			ctx := cmd.Context()
			prefs := c.newPreferences(ctx)
			defer prefs.Store().Close()
			if err := prefs.SetBool(ctx, args[0], v); err != nil {
				return err
			}
			printSuccess("%s = %t", args[0], v)
			return nil
		},
	}
}

func (c *CLI) settingsResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [key]",
		Short: "Restore defaults for one or all preferences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prefs := c.newPreferences(ctx)
			defer prefs.Store().Close()
			if len(args) == 0 {
				if err := prefs.ResetAll(ctx); err != nil {
					return err
				}
				printSuccess("All settings reset")
				return nil
			}
			if err := validKey(args[0]); err != nil {
				return err
			}
			if err := prefs.Reset(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("%s reset to %t", args[0], settings.Default(args[0]))
			return nil
		},
	}
}
