package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"NewsBroadcaster/internal/app"
	"NewsBroadcaster/internal/config"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newsbroadcaster",
		Short:         "Distill news articles into SMS alerts and broadcast them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $NEWS_BROADCASTER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	root.AddCommand(
		newBroadcastCmd(opts),
		newAnnounceCmd(opts),
		newPreviewCmd(opts),
		newQualityCmd(opts),
		newStatsCmd(opts),
		newStatusCmd(opts),
		newModemStatusCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// withApp loads the configuration, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.Application) error) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close application: %w", cerr))
		}
	}()

	return fn(ctx, application)
}

// audience holds the recipient and gateway flags shared by broadcast commands.
type audience struct {
	all        bool
	recipient  int64
	recipients []int64
	gateway    string
}

func (a *audience) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.all, "all", false, "send to every active recipient (default)")
	cmd.Flags().Int64Var(&a.recipient, "recipient", 0, "send to one recipient id, even if inactive")
	cmd.Flags().Int64SliceVar(&a.recipients, "recipients", nil, "send to these recipient ids")
	cmd.Flags().StringVar(&a.gateway, "gateway", "", "gateway: "+gateway.KindList("|")+" (default from config)")
}

func (a *audience) selector() (domain.RecipientSelector, error) {
	chosen := 0
	if a.all {
		chosen++
	}
	if a.recipient > 0 {
		chosen++
	}
	if len(a.recipients) > 0 {
		chosen++
	}
	if chosen > 1 {
		return domain.RecipientSelector{}, errors.New("use only one of --all, --recipient and --recipients")
	}

	switch {
	case a.recipient > 0:
		return domain.RecipientByID(a.recipient), nil
	case len(a.recipients) > 0:
		return domain.RecipientsByIDs(a.recipients...), nil
	default:
		return domain.AllRecipients(), nil
	}
}

func (a *audience) kind(fallback gateway.Kind) (gateway.Kind, error) {
	if a.gateway == "" {
		return fallback, nil
	}
	return gateway.ParseKind(a.gateway)
}
