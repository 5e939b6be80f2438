package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"pillarpuller/host/config"
	"pillarpuller/host/console"
	"pillarpuller/host/device"
	"pillarpuller/host/export"
	"pillarpuller/host/serial"
	"pillarpuller/host/telemetry"
	"pillarpuller/protocol"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("pillar-host", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	listPorts := fs.Bool("list-ports", false, "list available serial ports and exit")
	showVersion := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("pillar-host (protocol %s)\n", protocol.Version)
		return nil
	}

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		logger.Info("loaded config", "file", cfg.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buffer := telemetry.New(cfg.BufferOptions())
	dev := device.New(buffer, logger)

	portCfg := cfg.SerialPort()
	if err := dev.ConnectWithConfig(ctx, portCfg); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer dev.Close()

	go telemetry.NewStatusLogger(buffer, logger, cfg.StatusInterval).Run(ctx)

	con := &console.Console{
		Commander: dev,
		Session:   buffer,
		Saver: &export.Exporter{
			Dir:      cfg.Export.Dir,
			Pattern:  cfg.Export.Pattern,
			Plot:     cfg.Export.Plot,
			Metadata: cfg.Export.Metadata,
			Port:     portCfg.Device,
			Baud:     portCfg.Baud,
		},
		Stats:  dev.ReaderStats,
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: logger,
	}

	fmt.Println("Pillar Puller Host")
	fmt.Println("==================")
	fmt.Printf("Recording from %s at %d baud (display: %d points, every %d sample)\n",
		portCfg.Device, portCfg.Baud, buffer.MaxPoints(), buffer.DecimationFactor())
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- con.Run(ctx)
	}()

	select {
	case err := <-consoleDone:
		return err
	case <-ctx.Done():
		fmt.Println()
		logger.Info("shutting down")
		return nil
	case <-dev.Done():
		// The link went away; the recorded session is still exportable
		// from the console until the operator quits.
		if err := dev.Wait(ctx); err != nil {
			logger.Error("device link lost", "error", err)
		} else {
			logger.Warn("device stream ended")
		}
	}

	select {
	case err := <-consoleDone:
		return err
	case <-ctx.Done():
		return nil
	}
}
