package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/contacttidy/dedupe"
)

type mergeOutput struct {
	Merged        contactView       `json:"merged"`
	Sources       []string          `json:"sources"`
	Deleted       []string          `json:"deleted"`
	DeleteResults []writeResultView `json:"delete_results,omitempty"`
}

func newMergeCmd(a *app) *cobra.Command {
	var keepSources bool

	cmd := &cobra.Command{
		Use:   "merge TARGET SOURCE...",
		Short: "Merge contacts into a target contact",
		Long: `Merge one or more source contacts into a target contact.

Emails, phone numbers and addresses of the sources are added to the target
without repeats. The target keeps its own names and organizations. Sources
are deleted afterwards unless --keep-sources is set.

Examples:
  contacttidy merge people/c1 people/c2 people/c3
  contacttidy merge people/c1 people/c2 --keep-sources`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.engine().MergeByID(cmd.Context(), args[0], args[1:], dedupe.MergeOptions{
				DeleteSources: !keepSources,
			})
			if err != nil {
				return err
			}

			failed := len(result.DeleteResults) - len(result.Deleted)
			if a.out.json {
				if err := a.out.printJSON(mergeOutput{
					Merged:        viewContact(result.Merged),
					Sources:       args[1:],
					Deleted:       result.Deleted,
					DeleteResults: viewWriteResults(result.DeleteResults),
				}); err != nil {
					return err
				}
			} else {
				a.out.ok("Merged %d contact(s) into %s", len(result.Sources), result.Merged.ResourceID)
				a.out.contactLine(result.Merged)
				if len(result.Deleted) > 0 {
					fmt.Fprintf(a.out.w, "  deleted: %d\n", len(result.Deleted))
				}
				for _, r := range result.DeleteResults {
					if !r.Succeeded {
						a.out.fail("could not delete %s: %v", r.ResourceID, r.Err)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d merged source(s) could not be deleted", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepSources, "keep-sources", false, "do not delete the source contacts")
	return cmd
}
