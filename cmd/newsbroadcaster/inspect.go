package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"NewsBroadcaster/internal/app"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/usecase"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var articleID int64
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the summary, translation and quality score of an article without sending",
		RunE: func(cmd *cobra.Command, args []string) error {
			if articleID <= 0 {
				return errors.New("--article is required")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				preview, err := a.Pipeline().Preview(ctx, articleID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Article #%d: %s\n", preview.Article.ID, preview.Article.Title)
				printPreview(cmd.OutOrStdout(), preview)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&articleID, "article", 0, "article id to preview")
	return cmd
}

func newQualityCmd(opts *rootOptions) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "quality [text]",
		Short: "Translate English text twice and score how well the translations agree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				text = strings.Join(args, " ")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				preview, err := a.Pipeline().CheckQuality(ctx, text)
				if err != nil {
					return err
				}
				printPreview(cmd.OutOrStdout(), preview)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "English text to check")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the delivery log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				stats, err := a.Stats(ctx)
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status [message-id]",
		Short: "Look up the carrier delivery status of a message, or list the latest ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					report, err := a.LookupStatus(ctx, args[0])
					if err != nil {
						return err
					}
					printStatus(out, report)
					return nil
				}

				reports, err := a.RecentStatuses(ctx, limit)
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					fmt.Fprintln(out, "No messages in the carrier log")
				}
				for _, report := range reports {
					printStatus(out, report)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "how many recent messages to list when no id is given")
	return cmd
}

func printStatus(out io.Writer, report domain.StatusReport) {
	state := color.YellowString("%s", report.Group)
	if report.Delivered() {
		state = color.GreenString("%s", report.Group)
	}
	fmt.Fprintf(out, "Message %s to %s: %s\n", report.MessageID, report.To, state)
	if report.Description != "" {
		fmt.Fprintf(out, "  %s\n", report.Description)
	}
	if report.SentAt != "" {
		fmt.Fprintf(out, "  sent %s, done %s\n", report.SentAt, report.DoneAt)
	}
}

func newModemStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modem-status",
		Short: "Probe the SIM800C bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				status, available := a.ModemStatus(ctx)
				out := cmd.OutOrStdout()
				if len(available) > 0 {
					fmt.Fprintf(out, "Serial ports: %s\n", strings.Join(available, ", "))
				}
				if status.Connected {
					fmt.Fprintln(out, color.GreenString("Modem connected"))
				} else {
					fmt.Fprintln(out, color.RedString("Modem not connected"))
				}
				if status.Response != "" {
					fmt.Fprintln(out, status.Response)
				}
				if status.Error != "" {
					return errors.New(status.Error)
				}
				return nil
			})
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled announcements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func printPreview(w io.Writer, p usecase.Preview) {
	fmt.Fprintf(w, "Summary (%d chars): %s\n", utf8.RuneCountInString(p.Summary), p.Summary)
	fmt.Fprintf(w, "Translation (%d chars): %s\n", utf8.RuneCountInString(p.Translation.Text), p.Translation.Text)
	if p.Translation.Trimmed {
		fmt.Fprintln(w, color.YellowString("  trimmed to fit one SMS"))
	}
	fmt.Fprintf(w, "Reference: %s\n", p.Reference.Text)
	fmt.Fprintf(w, "Quality: %s\n", qualityColor(p.Quality))
}

func qualityColor(q domain.QualityScore) string {
	text := fmt.Sprintf("%.2f (%s)", q.Value, q.Label)
	switch q.Label {
	case domain.QualityExcellent, domain.QualityGood:
		return color.GreenString("%s", text)
	case domain.QualityFair:
		return color.YellowString("%s", text)
	default:
		return color.RedString("%s", text)
	}
}

func printStats(w io.Writer, s domain.DeliveryStats) {
	fmt.Fprintf(w, "Total messages:    %d\n", s.Total)
	fmt.Fprintf(w, "Sent:              %d\n", s.Sent)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failed)
	fmt.Fprintf(w, "Recipients:        %d\n", s.UniqueRecipients)
	fmt.Fprintf(w, "Articles:          %d\n", s.UniqueArticles)
	fmt.Fprintf(w, "Success rate:      %.1f%%\n", s.SuccessRate())
}
