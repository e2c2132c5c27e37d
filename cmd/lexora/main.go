package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	sessionFlag string
	subjectFlag string
	durableFlag string

	rootCmd = &cobra.Command{
		Use:   "lexora",
		Short: "Terminal client for the Lexora legal assistant",
		Long: `lexora talks to the research and consultation services in process,
using the same configuration as the REST server, and can tail the
workflow events published to NATS.`,
	}

	researchCmd = &cobra.Command{
		Use:   "research",
		Short: "Interactive research session with source approval",
		RunE:  runResearch,
	}

	consultCmd = &cobra.Command{
		Use:   "consult",
		Short: "Interactive quick consultation",
		RunE:  runConsult,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print research workflow events from NATS",
		RunE:  runWatch,
	}
)

func init() {
	researchCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "resume an existing session id")
	consultCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "resume an existing session id")
	watchCmd.Flags().StringVar(&subjectFlag, "subject", "lexora.events.>", "subject filter")
	watchCmd.Flags().StringVar(&durableFlag, "durable", "", "durable consumer name, empty for new events only")

	rootCmd.AddCommand(researchCmd, consultCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
