package main

import (
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = a.cfg.MaxResults
			}
			list, err := a.dir.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if a.out.json {
				return a.out.printJSON(viewContacts(list))
			}
			if len(list) == 0 {
				a.out.ok("No contacts")
				return nil
			}
			for _, c := range list {
				a.out.contactLine(c)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum contacts to list (default max_results from config)")
	return cmd
}
