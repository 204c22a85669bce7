package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iotracing/hue-wrapper/internal/client"
	"github.com/iotracing/hue-wrapper/internal/tui"
)

func main() {
	serverURL := flag.String("server", envOr("HUE_WRAPPER_URL", client.DefaultURL), "hue-wrapper service URL")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	flag.Parse()

	// Create and run the application
	model := tui.NewModel(client.New(*serverURL, *timeout))
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
