package main

import (
	"github.com/spf13/cobra"

	"github.com/spachava753/contacttidy/dedupe"
)

// matchFlags are shared by duplicates and auto-merge.
type matchFlags struct {
	criteria   []string
	threshold  int
	maxResults int
}

func (f *matchFlags) register(cmd *cobra.Command, thresholdHelp string) {
	cmd.Flags().StringSliceVar(&f.criteria, "criteria", nil, "match phases to run: email, phone, name (default all)")
	cmd.Flags().IntVar(&f.threshold, "threshold", -1, thresholdHelp)
	cmd.Flags().IntVar(&f.maxResults, "max-results", 0, "maximum contacts to compare (default from config)")
}

// resolve merges flags over config values.
func (f *matchFlags) resolve(a *app, defaultThreshold int) ([]dedupe.MatchKind, int, int, error) {
	criteria := a.cfg.Criteria
	if len(f.criteria) > 0 {
		criteria = f.criteria
	}
	kinds, err := dedupe.ParseKinds(criteria...)
	if err != nil {
		return nil, 0, 0, err
	}

	threshold := defaultThreshold
	if f.threshold >= 0 {
		threshold = min(f.threshold, 100)
	}
	maxResults := a.cfg.MaxResults
	if f.maxResults > 0 {
		maxResults = f.maxResults
	}
	return kinds, threshold, maxResults, nil
}

type duplicatesOutput struct {
	Considered int         `json:"considered"`
	Groups     []groupView `json:"groups"`
}

func newDuplicatesCmd(a *app) *cobra.Command {
	var flags matchFlags

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List likely duplicate contacts",
		Long: `List groups of contacts that look like the same person.

Contacts are grouped by identical primary email, identical primary phone
number (at least seven digits) and similar names. Each pair of contacts is
reported at most once, by the first phase that finds it.

Examples:
  # Report every kind of duplicate with the configured name threshold
  contacttidy duplicates

  # Only exact email and phone matches, as JSON
  contacttidy duplicates --criteria email,phone --json

  # Looser name matching
  contacttidy duplicates --threshold 70`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, threshold, maxResults, err := flags.resolve(a, a.cfg.Threshold)
			if err != nil {
				return err
			}

			result, err := a.engine().Detect(cmd.Context(), dedupe.DetectOptions{
				Criteria:   kinds,
				Threshold:  threshold,
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}

			if a.out.json {
				return a.out.printJSON(duplicatesOutput{Considered: result.Considered, Groups: viewGroups(result.Groups)})
			}
			if len(result.Groups) == 0 {
				a.out.ok("No duplicates found (%d contacts checked)", result.Considered)
				return nil
			}
			a.out.warn("Found %d duplicate group(s) among %d contacts:\n", len(result.Groups), result.Considered)
			for _, group := range result.Groups {
				a.out.group(group)
			}
			return nil
		},
	}
	flags.register(cmd, "minimum name similarity 0-100 (default from config)")
	return cmd
}
