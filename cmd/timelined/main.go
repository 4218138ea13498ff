package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"

	"timelined/ringbuf"
	"timelined/timeline"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("timelined v%s\n", version)
	fmt.Println("Timeline state daemon for a transport remote, MIDI surface and audio engine")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  timelined [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Owns the arrangement timeline (zoom, playhead, loop, punch, tempo, sections)")
	fmt.Println("  with bounded undo/redo. Inputs arrive from Linux input devices, a raw MIDI")
	fmt.Println("  device, a Unix socket and HTTP; state is streamed to websocket clients and")
	fmt.Println("  transport facts are forwarded to the audio engine over a websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to a YAML (or .toml) config file")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for the transport remote (empty disables)")
	fmt.Println()
	fmt.Println("  -engine-ws-url string")
	fmt.Println("        Audio engine websocket URL (empty runs a local transport clock)")
	fmt.Println()
	fmt.Println("  -engine-timeout-ms int")
	fmt.Printf("        Engine websocket write timeout in ms (default %d)\n", defaultReadTimeoutMS)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/timelined.sock\")")
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Println("        HTTP/websocket listener port, 0 disables (default 3010)")
	fmt.Println()
	fmt.Println("  -midi-device string")
	fmt.Println("        Raw MIDI device, e.g. /dev/snd/midiC1D0 (empty disables)")
	fmt.Println()
	fmt.Println("  -midi-channel int")
	fmt.Println("        MIDI channel 1-16 for note preview, 0 for omni (default 0)")
	fmt.Println()
	fmt.Println("  -clips string")
	fmt.Println("        YAML clip seed file")
	fmt.Println()
	fmt.Println("  -bpm float")
	fmt.Printf("        Initial project tempo (default %.0f)\n", timeline.DefaultBPM)
	fmt.Println()
	fmt.Println("  -max-undo int")
	fmt.Printf("        Undo history depth (default %d)\n", timeline.DefaultMaxUndo)
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Daemon tick frequency in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Local clock, IPC and websocket only")
	fmt.Println("  timelined")
	fmt.Println()
	fmt.Println("  # Remote and engine")
	fmt.Println("  timelined -input-device /dev/input/event4 -engine-ws-url ws://127.0.0.1:9000")
	fmt.Println()
	fmt.Println("  # Send events")
	fmt.Println("  timeline-ctl play")
	fmt.Println("  timeline-ctl tempo 96")
	fmt.Println()
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML (or .toml) config file")

		inputDevice     = flag.String("input-device", "", "Linux input event device for the transport remote")
		engineWsURL     = flag.String("engine-ws-url", "", "Audio engine websocket URL (empty runs a local transport clock)")
		engineTimeoutMS = flag.Int("engine-timeout-ms", defaultReadTimeoutMS, "Engine websocket write timeout in ms")
		ipcSocketPath   = flag.String("ipc-socket", "/tmp/timelined.sock", "Unix domain socket path for IPC")
		httpPort        = flag.Int("http-port", 3010, "HTTP/websocket listener port (0 disables)")
		midiDevice      = flag.String("midi-device", "", "Raw MIDI device path")
		midiChannel     = flag.Int("midi-channel", 0, "MIDI channel 1-16 for note preview, 0 for omni")
		clipsFile       = flag.String("clips", "", "YAML clip seed file")
		initialBPM      = flag.Float64("bpm", timeline.DefaultBPM, "Initial project tempo")
		maxUndo         = flag.Int("max-undo", timeline.DefaultMaxUndo, "Undo history depth")
		updateHz        = flag.Int("update-hz", defaultUpdateHz, "Daemon tick frequency in Hz")
		logLevelStr     = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion     = flag.Bool("version", false, "Print version and exit")
		showHelp        = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags set explicitly override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			o.InputDevice = inputDevice
		case "engine-ws-url":
			o.EngineWsURL = engineWsURL
		case "engine-timeout-ms":
			o.EngineTimeoutMS = engineTimeoutMS
		case "ipc-socket":
			o.IPCSocketPath = ipcSocketPath
		case "http-port":
			o.HTTPPort = httpPort
		case "midi-device":
			o.MIDIDevice = midiDevice
		case "midi-channel":
			o.MIDIChannel = midiChannel
		case "clips":
			o.ClipsFile = clipsFile
		case "bpm":
			o.InitialBPM = initialBPM
		case "max-undo":
			o.MaxUndo = maxUndo
		case "update-hz":
			o.UpdateHz = updateHz
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("timelined stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// run wires every component and supervises them until ctx is canceled or
// one of them fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	var seed []timeline.Clip
	if cfg.Clips.File != "" {
		clips, err := LoadClipFile(cfg.Clips.File)
		if err != nil {
			return err
		}
		seed = clips
		logger.Info("loaded clips", "file", cfg.Clips.File, "count", len(clips))
	}

	broadcasts := newBroadcastQueue(0, logger)
	clips := newClipStore(seed, clipChangedPublisher(broadcasts))

	initial := cfg.InitialState()
	ctrl := timeline.NewController(cfg.TimelineSettings(), timeline.Options{
		Clips:   clips,
		Logger:  logger.With("component", "timeline"),
		MaxUndo: cfg.Timeline.MaxUndo,
		Initial: &initial,
	})

	ctrl.Subscribe(&stateBroadcaster{
		out:    broadcasts,
		depths: func() (int, int) { return ctrl.UndoDepth(), ctrl.RedoDepth() },
	})

	bridge := newEngineBridge(cfg.Engine.QueueSize, logger)
	ctrl.AddEngineListener(bridge)

	inputs := make(chan Input, 64)
	positions := ringbuf.New[float64](defaultPositionQueue)
	notes := ringbuf.New[midiNoteEvent](cfg.MIDI.NoteQueue)

	g, ctx := errgroup.WithContext(ctx)

	// Audio engine
	var sender EngineSender
	if cfg.Engine.WsURL != "" {
		client, err := NewEngineClient(ctx, cfg.Engine.WsURL, cfg.Engine.TimeoutMS, logger)
		if err != nil {
			return fmt.Errorf("connect to audio engine: %w", err)
		}
		defer client.Close()
		sender = client
		g.Go(func() error { return client.ReadLoop(ctx, positions) })
	} else {
		logger.Info("no engine configured; running local transport clock")
	}
	g.Go(func() error {
		runEngineWorker(ctx, bridge.queue, sender, logger)
		return nil
	})

	// Daemon brain
	g.Go(func() error {
		runDaemon(ctx, inputs, daemonDeps{
			Controller: ctrl,
			Clips:      clips,
			Positions:  positions,
			Notes:      notes,
			Broadcasts: broadcasts,
			Config: ReducerConfig{
				Shuttle:    cfg.ToShuttleConfig(),
				Jog:        cfg.ToJogConfig(),
				LocalClock: cfg.Engine.WsURL == "",
			},
			UpdateHz: cfg.Daemon.UpdateHz,
			Logger:   logger,
		})
		return nil
	})

	// IPC
	g.Go(func() error {
		return runIPCServer(ctx, ExpandPath(cfg.IPC.SocketPath), inputs, logger)
	})

	// HTTP + state websocket
	if cfg.HTTP.Port > 0 {
		server := NewServer(logger, inputs, cfg.ToServerConfig())
		g.Go(func() error {
			server.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(ctx, server.Hub(), broadcasts.C(), logger)
			return nil
		})
		mux := newHTTPMux(server, cfg.HTTP.WsPath, inputs, logger)
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.HTTP.Port, mux, logger)
		})
	} else {
		// Keep the queue drained so publishers never see it full.
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-broadcasts.C():
				}
			}
		})
	}

	// Transport remote
	if len(cfg.Input.Devices) > 0 {
		files := make([]*os.File, 0, len(cfg.Input.Devices))
		for _, dev := range cfg.Input.Devices {
			f, err := os.Open(dev)
			if err != nil {
				for _, open := range files {
					open.Close()
				}
				return fmt.Errorf("open input device %s: %w (run as root or add user to 'input' group)", dev, err)
			}
			files = append(files, f)
		}
		defer func() {
			for _, f := range files {
				f.Close()
			}
		}()

		events := make(chan inputEvent, 64)
		g.Go(func() error {
			return readInputEventsEpoll(ctx, files, events)
		})
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-events:
					for _, in := range translateInputEvent(ev) {
						select {
						case inputs <- in:
						case <-ctx.Done():
							return nil
						}
					}
				}
			}
		})
	}

	// MIDI control surface
	if cfg.MIDI.Device != "" {
		h := &midiHandler{channel: cfg.MIDI.Channel, inputs: inputs, notes: notes, logger: logger}
		g.Go(func() error {
			return readMIDIDevice(ctx, cfg.MIDI.Device, func(msg midi.Message) { h.handle(msg) })
		})
	}

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"engine_ws", cfg.Engine.WsURL,
		"input_devices", cfg.Input.Devices,
		"midi_device", cfg.MIDI.Device,
		"update_rate_hz", cfg.Daemon.UpdateHz)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
