package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spachava753/contacttidy/dedupe"
	"github.com/spachava753/contacttidy/gmail"
)

type groupOutcomeView struct {
	Kind    dedupe.MatchKind `json:"kind"`
	Target  string           `json:"target"`
	Sources []string         `json:"sources"`
	Success bool             `json:"success"`
	Skipped bool             `json:"skipped,omitempty"`
	Error   string           `json:"error,omitempty"`
	Deleted []string         `json:"deleted,omitempty"`
}

type autoMergeOutput struct {
	DryRun         bool               `json:"dry_run"`
	Considered     int                `json:"considered"`
	OperationCount int                `json:"operation_count"`
	Failed         int                `json:"failed"`
	Groups         []groupView        `json:"groups"`
	PerGroup       []groupOutcomeView `json:"per_group,omitempty"`
}

func newAutoMergeCmd(a *app) *cobra.Command {
	var (
		flags    matchFlags
		dryRun   bool
		reportTo []string
	)

	cmd := &cobra.Command{
		Use:   "auto-merge",
		Short: "Merge every duplicate group without review",
		Long: `Find duplicate groups and merge each into its first contact.

A failed group is reported and never stops the run. Use --dry-run to see how
many merges would happen without changing anything. With --report-to (or
report_to in the config file) a summary is emailed through Gmail, using
GMAIL_ADDRESS and GMAIL_APP_PASSWORD.

Examples:
  # Preview
  contacttidy auto-merge --dry-run

  # Merge exact matches only and mail a report
  contacttidy auto-merge --criteria email,phone --report-to me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kinds, threshold, maxResults, err := flags.resolve(a, a.cfg.AutoMergeThreshold)
			if err != nil {
				return err
			}

			outcome, err := a.engine().AutoMergeDirectory(ctx, maxResults, dedupe.AutoMergeOptions{
				Criteria:  kinds,
				Threshold: threshold,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}

			if err := a.printAutoMerge(outcome, dryRun); err != nil {
				return err
			}

			recipients := a.cfg.ReportTo
			if len(reportTo) > 0 {
				recipients = reportTo
			}
			if len(recipients) > 0 {
				creds, err := gmail.LoadCredentialsFrom(a.cfg.Getenv)
				if err != nil {
					return err
				}
				sent, err := gmail.SendReport(ctx, creds, gmail.ReportInput{
					To:      recipients,
					Outcome: outcome,
					DryRun:  dryRun,
				})
				if err != nil {
					return err
				}
				a.logger.Info("sent auto-merge report", zap.Strings("to", recipients), zap.String("message_id", sent.MessageID))
			}

			if failed := outcome.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d merge(s) failed", failed, outcome.OperationCount)
			}
			return nil
		},
	}
	flags.register(cmd, "minimum name similarity 0-100 (default auto_merge_threshold from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count merges without changing contacts")
	cmd.Flags().StringSliceVar(&reportTo, "report-to", nil, "email a summary to these addresses")
	return cmd
}

func (a *app) printAutoMerge(outcome dedupe.AutoMergeOutcome, dryRun bool) error {
	if a.out.json {
		out := autoMergeOutput{
			DryRun:         dryRun,
			Considered:     outcome.Considered,
			OperationCount: outcome.OperationCount,
			Failed:         outcome.Failed(),
			Groups:         viewGroups(outcome.Groups),
		}
		for _, g := range outcome.PerGroup {
			out.PerGroup = append(out.PerGroup, groupOutcomeView(g))
		}
		return a.out.printJSON(out)
	}

	if outcome.OperationCount == 0 {
		a.out.ok("No duplicates found (%d contacts checked)", outcome.Considered)
		return nil
	}
	if dryRun {
		a.out.warn("Dry run: %d merge(s) would be performed among %d contacts:\n", outcome.OperationCount, outcome.Considered)
		for _, group := range outcome.Groups {
			a.out.group(group)
		}
		return nil
	}

	for _, g := range outcome.PerGroup {
		if g.Skipped {
			fmt.Fprintf(a.out.w, "  %s: %s already merged\n", g.Kind, g.Target)
			continue
		}
		if g.Success {
			a.out.ok("%s: merged %d into %s", g.Kind, len(g.Sources), g.Target)
			continue
		}
		a.out.fail("%s: merging into %s failed: %s", g.Kind, g.Target, g.Error)
	}
	fmt.Fprintf(a.out.w, "\n%d merge(s), %d failed\n", outcome.OperationCount, outcome.Failed())
	return nil
}
