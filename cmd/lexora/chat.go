package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/Dots-Uzbekistan/Lexora/internal/bootstrap"
	"github.com/Dots-Uzbekistan/Lexora/internal/config"
	"github.com/Dots-Uzbekistan/Lexora/internal/dto"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type chatFunc func(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)

func runResearch(cmd *cobra.Command, _ []string) error {
	c, err := bootstrap.NewContainer(config.Load())
	if err != nil {
		return err
	}
	defer c.Close()

	color.Cyan("Lexora research. Ask a legal question; type /workflow to inspect progress, /quit to leave.")
	return repl(cmd.Context(), c.ResearchService.Chat, func(ctx context.Context, id string) {
		wf, err := c.ResearchService.Workflow(ctx, id)
		if err != nil {
			color.Red("workflow: %v", err)
			return
		}
		color.Yellow("cycle %d, stages %s, pending approval: %v %s",
			wf.Cycle, strings.Join(wf.CompletedStages, " > "), wf.PendingApproval, wf.ApprovalKind)
	})
}

func runConsult(cmd *cobra.Command, _ []string) error {
	c, err := bootstrap.NewContainer(config.Load())
	if err != nil {
		return err
	}
	defer c.Close()

	color.Cyan("Lexora consultation. Ask a legal question; /quit to leave.")
	return repl(cmd.Context(), c.ConsultationService.Chat, nil)
}

// repl sends one user message per line and prints the assistant replies.
func repl(parent context.Context, chat chatFunc, inspect func(ctx context.Context, id string)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	sessionID := sessionFlag
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	color.White("session %s", sessionID)

	prompt := color.New(color.FgGreen, color.Bold)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		prompt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/workflow" && inspect != nil:
			inspect(ctx, sessionID)
			continue
		}

		res, err := chat(ctx, &dto.ChatRequest{
			SessionID: sessionID,
			Messages:  []dto.MessageDto{{Role: "user", Content: line}},
		})
		if err != nil {
			color.Red("error: %v", err)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, m := range res.Messages {
			fmt.Println()
			fmt.Println(m.Content)
		}
		if res.InterruptType != "" {
			color.Yellow("\n[waiting for %s]", res.InterruptType)
		}
	}
}
