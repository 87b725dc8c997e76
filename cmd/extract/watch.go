package main

import (
	"context"
	"errors"
	"sort"

	"voicetask/internal/bootstrap"
	"voicetask/pkg/events"
	pktNats "voicetask/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchFilter string

func init() {
	watchCmd.Flags().StringVar(&watchFilter, "filter", pktNats.SubjectPrefix+">", "NATS subject filter")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print task and note events as they are published",
	Long: `Follow the events stream on NATS (NATS_URL must be set) and print every
new event until interrupted.

Examples:
  # Only extraction results
  extract watch --filter 'events.TASKS_EXTRACTED'`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	return withContainer(cmd, func(c *bootstrap.Container) error {
		if c.NatsConn == nil {
			err := errors.New("NATS is not configured or unreachable (set NATS_URL)")
			color.Red("%s", err)
			return err
		}

		sub := pktNats.NewSubscriber(c.NatsConn)
		stop, err := sub.Subscribe(cmd.Context(), watchFilter, "", printEvent)
		if err != nil {
			color.Red("Failed to subscribe: %v", err)
			return err
		}
		defer stop()

		color.Cyan("Watching %s (Ctrl+C to stop)", watchFilter)
		<-cmd.Context().Done()
		return nil
	})
}

func printEvent(_ context.Context, event events.Event) error {
	c := color.New(color.FgGreen)
	if event.EventType() == events.ExtractionFailed {
		c = color.New(color.FgRed)
	}
	_, _ = c.Printf("%s %s", event.Timestamp().Format("15:04:05"), event.EventType())

	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = color.New(color.FgHiBlack).Printf(" %s=%v", k, payload[k])
	}
	_, _ = c.Println()
	return nil
}
