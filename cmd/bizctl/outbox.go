package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"freelanceos/pkg/mq"
	"freelanceos/pkg/outbox"
)

func outboxCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay outbox events",
	}

	// replayService opens the broker only for commands that publish.
	replayService := func() (*outbox.ReplayService, func(), error) {
		publisher, err := mq.NewPublisher(e.cfg.MQ.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting broker: %w", err)
		}
		return outbox.NewReplayService(outbox.NewRepository(e.pool), publisher, e.log), publisher.Close, nil
	}

	var id int64
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Republish one event by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id <= 0 {
				return fmt.Errorf("--id is required")
			}
			svc, closeFn, err := replayService()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := svc.ReplayEvent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", id)
			return nil
		},
	}
	replay.Flags().Int64Var(&id, "id", 0, "outbox event id")

	var limit int
	replayFailed := &cobra.Command{
		Use:   "replay-failed",
		Short: "Republish failed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := replayService()
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := svc.ReplayFailedEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d event(s)\n", n)
			return nil
		},
	}
	replayFailed.Flags().IntVar(&limit, "limit", 100, "max events to replay")

	var listLimit int
	list := &cobra.Command{
		Use:   "failed",
		Short: "List failed events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := outbox.NewRepository(e.pool).GetFailedEvents(cmd.Context(), listLimit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	list.Flags().IntVar(&listLimit, "limit", 100, "max events to list")

	cmd.AddCommand(replay, replayFailed, list)
	return cmd
}
