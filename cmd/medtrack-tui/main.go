package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/medtrackpro/medtrack/internal/tui"
)

var serverURL = flag.String("server", "http://localhost:8080", "MedTrack server URL")

func main() {
	flag.Parse()

	client := tui.NewClient(*serverURL)
	if err := client.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *serverURL, err)
		os.Exit(1)
	}
	defer client.Disconnect()

	p := tea.NewProgram(tui.NewModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
