package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func settingsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change system settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := a.settings.ListSettings(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tDESCRIPTION")
			for _, s := range settings {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.Value, s.Description)
			}
			return tw.Flush()
		},
	})

	var description string
	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Create or update a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.settings.SetSetting(cmd.Context(), args[0], args[1], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", s.Key, s.Value)
			return nil
		},
	}
	set.Flags().StringVar(&description, "description", "", "setting description")
	cmd.AddCommand(set)
	return cmd
}
