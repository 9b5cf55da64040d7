package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kazuhito-m/nes-emulator-study/internal/app"
	"github.com/kazuhito-m/nes-emulator-study/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file (or pass it as the first argument)")
		configFile = flag.String("config", "", "Path to configuration file (default "+app.GetDefaultConfigPath()+" when present)")
		frontend   = flag.String("frontend", "", "Frontend: ebitengine, headless or terminal")
		frames     = flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
		dumpFrames = flag.String("dump", "", "Comma separated frame numbers to save as PPM (headless)")
		wavFile    = flag.String("wav", "", "Record APU output to this WAV file")
		traceFile  = flag.String("trace", "", "Write a nestest-style instruction log to this file")
		traceLimit = flag.Uint64("trace-limit", 0, "Maximum trace lines (0 for no limit)")
		memvizFile = flag.String("memviz", "", "Write a Graphviz snapshot of the machine state at exit")
		stats      = flag.Bool("statsview", false, "Serve live runtime charts while running")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVer {
		fmt.Println(version.GetBuildInfo())
		return
	}

	if *romFile == "" && flag.NArg() > 0 {
		*romFile = flag.Arg(0)
	}
	if *romFile == "" {
		printUsage()
		os.Exit(2)
	}

	config := app.NewConfig()
	configPath := *configFile
	if configPath == "" {
		if _, err := os.Stat(app.GetDefaultConfigPath()); err == nil {
			configPath = app.GetDefaultConfigPath()
		}
	}
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
			config = app.NewConfig()
		}
	}

	// flags given on the command line win over the file
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "frontend":
			config.Video.Backend = *frontend
		case "frames":
			config.Emulation.MaxFrames = *frames
		case "dump":
			n, err := parseFrameList(*dumpFrames)
			if err != nil {
				flagErr = fmt.Errorf("-dump: %w", err)
			}
			config.Debug.DumpFrames = n
		case "wav":
			config.Audio.WavPath = *wavFile
		case "trace":
			config.Debug.TracePath = *traceFile
		case "trace-limit":
			config.Debug.TraceLimit = *traceLimit
		case "memviz":
			config.Debug.MemvizPath = *memvizFile
		case "statsview":
			config.Debug.Statsview = *stats
		case "debug":
			config.Debug.EnableLogging = *debug
		}
	})
	if flagErr != nil {
		log.Fatal(flagErr)
	}

	application, err := app.NewApplication(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.LoadROM(*romFile); err != nil {
		application.Cleanup()
		log.Fatalf("Failed to load ROM: %v", err)
	}

	setupGracefulShutdown(application)

	runErr := application.Run()
	cleanupErr := application.Cleanup()

	if config.Debug.EnableLogging {
		fmt.Printf("Frames: %d, session time: %v, average FPS: %.1f\n",
			application.GetFrameCount(), application.GetUptime(), application.GetFPS())
	}

	if err := errors.Join(runErr, cleanupErr); err != nil {
		log.Fatal(err)
	}
}

// setupGracefulShutdown stops the frame loop on SIGINT/SIGTERM so the
// recorders are flushed by Cleanup.
func setupGracefulShutdown(application *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nInterrupt received, shutting down...")
		application.Stop()
	}()
}

func parseFrameList(s string) ([]int, error) {
	var frames []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad frame number %q", field)
		}
		frames = append(frames, n)
	}
	return frames, nil
}

func printUsage() {
	fmt.Println("nesemu - NES emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nesemu [options] <rom.nes>")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  nesemu game.nes                                 # window with sound")
	fmt.Println("  nesemu -frontend terminal game.nes              # play in the terminal")
	fmt.Println("  nesemu -frontend headless -frames 120 -dump 60,120 game.nes")
	fmt.Println("  nesemu -frontend headless -frames 60 -trace cpu.log nestest.nes")
	fmt.Println()
	fmt.Println("CONTROLS (default):")
	fmt.Println("  Player 1: Arrows/WASD, J = A, K = B, Enter = Start, Space = Select")
	fmt.Println("  Player 2: 1-4 = Up/Down/Left/Right, 5 = A, 6 = B, 7 = Start, 8 = Select")
	fmt.Println("  Escape = quit, F5 = reset, P = pause")
}
