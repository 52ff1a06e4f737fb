// Package main es el punto de entrada de Ticket Bridge.
// Ticket Bridge recibe pedidos vía WebSocket, los imprime en una impresora
// térmica Bluetooth y delega en la cola del backend cuando no hay enlace.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/judwhite/go-svc"

	"github.com/adcondev/ticket-bridge/internal/daemon"
)

func main() {
	// Parse flags
	consoleMode := flag.Bool("console", false, "Run in console mode (not as service)")
	configFile := flag.String("config", "", "Path to ticket-bridge.{toml,yaml,json}")
	flag.Parse()

	if *configFile != "" {
		_ = os.Setenv(daemon.ConfigFileEnv, *configFile)
	}

	prg := &daemon.Program{}

	if *consoleMode || isInteractive() {
		runConsole(prg)
		return
	}

	// Run as a service
	if err := svc.Run(prg, syscall.SIGINT, syscall.SIGTERM); err != nil {
		log.Fatal(err)
	}
}

// runConsole runs the program in console mode
func runConsole(prg *daemon.Program) {
	if err := prg.Init(nil); err != nil {
		log.Fatalf("Init failed: %v", err)
	}
	if err := prg.Start(); err != nil {
		log.Fatalf("Start failed: %v", err)
	}

	log.Println("Ticket Bridge running in console mode, press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	if err := prg.Stop(); err != nil {
		log.Printf("Stop failed: %v", err)
	}
}

// isInteractive checks if running from a terminal (not as service)
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	// If stdin is a character device (terminal), we're interactive
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
