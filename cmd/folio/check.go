package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the content documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := a.newLoader().Load(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if model.Profile != nil {
				fmt.Fprintf(w, "profile:    %s\n", model.Profile.Name)
			}
			fmt.Fprintf(w, "skills:     %d groups\n", len(model.Skills))
			fmt.Fprintf(w, "experience: %d entries\n", len(model.Experience))
			fmt.Fprintf(w, "education:  %d entries\n", len(model.Education))
			fmt.Fprintf(w, "projects:   %d (filters: %v)\n", len(model.Projects), model.Tags())
			fmt.Fprintf(w, "contact:    %d channels\n", len(model.Contact))
			return nil
		},
	}
}
