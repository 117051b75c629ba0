package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/server"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting flightwatch v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	live := config.NewLive(cfg)
	live.Watch()

	// Create and start server
	srv := server.New(live)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"    ______ _ _       _     _                  _       _     ",
		"   |  ____| (_)     | |   | |                | |     | |    ",
		"   | |__  | |_  __ _| |__ | |___      ____ _ | |_ ___| |__  ",
		"   |  __| | | |/ _` | '_ \\| __\\ \\ /\\ / / _` || __/ __| '_ \\ ",
		"   | |    | | | (_| | | | | |_ \\ V  V / (_| || || (__| | | |",
		"   |_|    |_|_|\\__, |_| |_|\\__| \\_/\\_/ \\__,_| \\__\\___|_| |_|",
		"                __/ |                                       ",
		"               |___/  ..................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
