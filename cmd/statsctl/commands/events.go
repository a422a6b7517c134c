package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"transstats/internal/amqp"
)

type eventsOptions struct {
	format string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rt *Runtime) *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow load-completed events published by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvents(cmd, rt, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", FormatTable, "output format (table|json)")

	return cmd
}

func runEvents(cmd *cobra.Command, rt *Runtime, opts *eventsOptions) error {
	if err := validateFormat(opts.format, FormatTable, FormatJSON); err != nil {
		return err
	}
	cfg, err := rt.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set")
	}
	rt.logger(cmd)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	err = client.ConsumeLoadCompleted(ctx, func(msg *amqp.LoadCompletedMessage) error {
		if opts.format == FormatJSON {
			return json.NewEncoder(out).Encode(msg)
		}
		_, err := fmt.Fprintln(out, formatEvent(msg))
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func formatEvent(msg *amqp.LoadCompletedMessage) string {
	s := msg.Summary
	return fmt.Sprintf("%s generation %d: %d/%d months, %d channels, %s translations (toJP %s, toEN %s) in %s",
		msg.Timestamp.Format("2006-01-02 15:04:05"),
		s.Generation,
		s.Succeeded, s.Requested,
		len(s.Channels),
		humanize.Comma(s.GrandTotal.Total()),
		humanize.Comma(s.GrandTotal.ToJP),
		humanize.Comma(s.GrandTotal.ToEN),
		s.Duration)
}
