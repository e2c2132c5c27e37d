package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dots-Uzbekistan/Lexora/internal/config"
	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/events"
	pktNats "github.com/Dots-Uzbekistan/Lexora/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		return errors.New("NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventColor := color.New(color.FgCyan, color.Bold)
	err = sub.Subscribe(ctx, subjectFlag, durableFlag, func(_ context.Context, e events.Event) error {
		data, _ := json.Marshal(e.Payload())
		eventColor.Printf("%s ", e.Timestamp().Format("15:04:05"))
		color.Yellow("%s %s", e.EventType(), data)
		return nil
	})
	if err != nil {
		return err
	}

	color.Green("watching %s", subjectFlag)
	<-ctx.Done()
	return nil
}
