// Command play is a terminal client for the Z Saga story API.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
	"github.com/zhouzirui/z-saga/backend/internal/tui"
)

func main() {
	server := flag.String("server", envOr("ZSAGA_SERVER", "http://localhost:8000"), "story API base URL")
	maxChoices := flag.Int("choices", story.DefaultChoices, "number of choices before the ending")
	flag.Parse()

	if *maxChoices < story.MinChoices || *maxChoices > story.MaxChoices {
		fmt.Fprintf(os.Stderr, "choices must be between %d and %d\n", story.MinChoices, story.MaxChoices)
		os.Exit(2)
	}

	p := tea.NewProgram(
		tui.NewApp(tui.NewClient(*server, nil), *maxChoices),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running player: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
