package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"NewsBroadcaster/internal/app"
	"NewsBroadcaster/internal/usecase"
)

func newBroadcastCmd(opts *rootOptions) *cobra.Command {
	var (
		articleID int64
		aud       audience
	)
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Summarize, translate and send one article",
		RunE: func(cmd *cobra.Command, args []string) error {
			if articleID <= 0 {
				return errors.New("--article is required")
			}
			selector, err := aud.selector()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				kind, err := aud.kind(a.DefaultGateway())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Broadcasting article #%d via %s\n", articleID, kind)
				report, err := a.Pipeline().BroadcastArticle(ctx, articleID, selector, kind, progressPrinter(out))
				printReport(out, report)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&articleID, "article", 0, "article id to broadcast")
	aud.bind(cmd)
	return cmd
}

func newAnnounceCmd(opts *rootOptions) *cobra.Command {
	var (
		message string
		aud     audience
	)
	cmd := &cobra.Command{
		Use:   "announce [message]",
		Short: "Send a custom announcement of at most 160 characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				message = strings.Join(args, " ")
			}
			selector, err := aud.selector()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application) error {
				kind, err := aud.kind(a.DefaultGateway())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				report, err := a.Pipeline().Announce(ctx, message, selector, kind, progressPrinter(out))
				printReport(out, report)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "announcement text")
	aud.bind(cmd)
	return cmd
}

func progressPrinter(w io.Writer) usecase.Progress {
	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	return func(d usecase.Delivery) {
		if d.Result.Success {
			fmt.Fprintf(w, "[%d/%d] %s %s (%s)\n", d.Index+1, d.Total, ok("sent"), d.Recipient.Name, d.Result.ID)
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s %s: %s\n", d.Index+1, d.Total, fail("failed"), d.Recipient.Name, d.Result.Error)
	}
}

func printReport(w io.Writer, report usecase.Report) {
	if report.Result.Total() == 0 {
		fmt.Fprintf(w, "Nothing sent (stage %s)\n", report.Stage)
		return
	}
	summary := fmt.Sprintf("Sent: %d, Failed: %d", report.Result.Sent, report.Result.Failed)
	if report.Result.Failed == 0 {
		summary = color.GreenString("%s", summary)
	} else {
		summary = color.YellowString("%s", summary)
	}
	fmt.Fprintln(w, summary)
	if report.Quality != nil {
		fmt.Fprintf(w, "Quality: %.2f (%s)\n", report.Quality.Value, report.Quality.Label)
	}
	if errs := report.Result.ErrorSummary(); errs != "" {
		fmt.Fprintln(w, "Errors:")
		fmt.Fprintln(w, errs)
	}
}
