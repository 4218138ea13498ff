package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"timelined/timeline"
)

// Config is the top-level configuration for the timelined daemon.
//
// YAML is the primary format. A file ending in .toml is decoded with the same
// structs. Defaults and validation live here so the rest of the daemon can
// assume a well-formed config.
type Config struct {
	Timeline TimelineConfig `yaml:"timeline" toml:"timeline"`
	Engine   EngineConfig   `yaml:"engine" toml:"engine"`
	IPC      IPCConfig      `yaml:"ipc" toml:"ipc"`
	HTTP     HTTPConfig     `yaml:"http" toml:"http"`
	Input    InputConfig    `yaml:"input" toml:"input"`
	MIDI     MIDIConfig     `yaml:"midi" toml:"midi"`
	Clips    ClipsConfig    `yaml:"clips" toml:"clips"`
	Daemon   DaemonConfig   `yaml:"daemon" toml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

type TimelineConfig struct {
	DefaultLengthSec float64 `yaml:"default_length_sec" toml:"default_length_sec"`
	ZoomViewSec      float64 `yaml:"zoom_view_sec" toml:"zoom_view_sec"`
	MinZoom          float64 `yaml:"min_zoom" toml:"min_zoom"`
	MaxZoom          float64 `yaml:"max_zoom" toml:"max_zoom"`
	MaxUndo          int     `yaml:"max_undo" toml:"max_undo"`
	InitialBPM       float64 `yaml:"initial_bpm" toml:"initial_bpm"`
	TimeSignature    [2]int  `yaml:"time_signature,flow" toml:"time_signature"`
}

// EngineConfig describes the audio engine bridge. An empty ws_url runs the
// daemon without an engine; the transport is then clocked locally.
type EngineConfig struct {
	WsURL     string `yaml:"ws_url" toml:"ws_url"`
	TimeoutMS int    `yaml:"timeout_ms" toml:"timeout_ms"`
	QueueSize int    `yaml:"queue_size" toml:"queue_size"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path" toml:"socket_path"`
}

// HTTPConfig configures the state websocket and REST listener. Port 0 disables it.
type HTTPConfig struct {
	Port   int    `yaml:"port" toml:"port"`
	WsPath string `yaml:"ws_path" toml:"ws_path"`

	// WsReadOnly makes the websocket ignore inbound events. Topic
	// subscriptions are still honoured.
	WsReadOnly bool `yaml:"ws_read_only,omitempty" toml:"ws_read_only,omitempty"`

	// WsSendBuffer is the per-client outbound frame queue.
	WsSendBuffer int `yaml:"ws_send_buffer,omitempty" toml:"ws_send_buffer,omitempty"`
}

type InputConfig struct {
	Devices []string          `yaml:"devices,omitempty" toml:"devices,omitempty"`
	Jog     JogFileConfig     `yaml:"jog" toml:"jog"`
	Shuttle ShuttleFileConfig `yaml:"shuttle" toml:"shuttle"`
}

// JogFileConfig is the jog wheel configuration as represented in the file.
type JogFileConfig struct {
	BeatsPerStep       float64 `yaml:"beats_per_step" toml:"beats_per_step"`
	VelocityWindowMS   int     `yaml:"velocity_window_ms" toml:"velocity_window_ms"`
	VelocityMultiplier float64 `yaml:"velocity_multiplier" toml:"velocity_multiplier"`
	VelocityThreshold  int     `yaml:"velocity_threshold" toml:"velocity_threshold"`
}

// ShuttleFileConfig is the held FF/REW configuration. Speeds are timeline
// seconds per wall-clock second.
type ShuttleFileConfig struct {
	MaxSpeed      float64 `yaml:"max_speed" toml:"max_speed"`
	AccelTimeSec  float64 `yaml:"accel_time_sec" toml:"accel_time_sec"`
	DecayTauSec   float64 `yaml:"decay_tau_sec" toml:"decay_tau_sec"`
	HoldTimeoutMS int     `yaml:"hold_timeout_ms" toml:"hold_timeout_ms"`
}

// MIDIConfig configures the raw MIDI control surface. An empty device disables
// it; channel 0 accepts notes on every channel.
type MIDIConfig struct {
	Device    string `yaml:"device" toml:"device"`
	Channel   int    `yaml:"channel" toml:"channel"`
	NoteQueue int    `yaml:"note_queue" toml:"note_queue"`
}

type ClipsConfig struct {
	File string `yaml:"file" toml:"file"`
}

type DaemonConfig struct {
	UpdateHz int `yaml:"update_hz" toml:"update_hz"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // text (default) or json
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Timeline: TimelineConfig{
			DefaultLengthSec: timeline.DefaultTimelineLength,
			ZoomViewSec:      timeline.DefaultZoomViewDuration,
			MinZoom:          timeline.DefaultMinZoomLevel,
			MaxZoom:          timeline.DefaultMaxZoomLevel,
			MaxUndo:          timeline.DefaultMaxUndo,
			InitialBPM:       timeline.DefaultBPM,
			TimeSignature:    [2]int{4, 4},
		},
		Engine: EngineConfig{
			WsURL:     "",
			TimeoutMS: defaultReadTimeoutMS,
			QueueSize: defaultEngineQueue,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/timelined.sock",
		},
		HTTP: HTTPConfig{
			Port:   3010,
			WsPath: "/ws",
		},
		Input: InputConfig{
			Jog: JogFileConfig{
				BeatsPerStep:       defaultJogBeatsPerStep,
				VelocityWindowMS:   defaultJogVelocityWindowMS,
				VelocityMultiplier: defaultJogVelocityMultiplier,
				VelocityThreshold:  defaultJogVelocityThreshold,
			},
			Shuttle: ShuttleFileConfig{
				MaxSpeed:      defaultShuttleMaxSpeed,
				AccelTimeSec:  defaultShuttleAccelTime,
				DecayTauSec:   defaultShuttleDecayTau,
				HoldTimeoutMS: defaultShuttleHoldMS,
			},
		},
		MIDI: MIDIConfig{
			NoteQueue: defaultNoteQueue,
		},
		Daemon: DaemonConfig{
			UpdateHz: defaultUpdateHz,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(LogFormatText),
		},
	}
}

// LoadConfigFile reads and parses a config file on top of DefaultConfig.
//
// Unknown fields are rejected in both formats to catch typos. A YAML file
// must hold exactly one document.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return decodeTOMLConfig(b)
	}
	return decodeYAMLConfig(b)
}

func decodeYAMLConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

func decodeTOMLConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config toml: %w", err)
	}
	return cfg, nil
}

// FlagOverrides holds command-line overrides applied on top of a loaded
// config. Each non-nil pointer is applied, even when it holds a zero value.
type FlagOverrides struct {
	InputDevice *string

	EngineWsURL     *string
	EngineTimeoutMS *int

	IPCSocketPath *string
	HTTPPort      *int

	MIDIDevice  *string
	MIDIChannel *int

	ClipsFile *string

	InitialBPM *float64
	MaxUndo    *int
	UpdateHz   *int

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}

	if o.EngineWsURL != nil {
		cfg.Engine.WsURL = *o.EngineWsURL
	}
	if o.EngineTimeoutMS != nil {
		cfg.Engine.TimeoutMS = *o.EngineTimeoutMS
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}

	if o.MIDIDevice != nil {
		cfg.MIDI.Device = *o.MIDIDevice
	}
	if o.MIDIChannel != nil {
		cfg.MIDI.Channel = *o.MIDIChannel
	}

	if o.ClipsFile != nil {
		cfg.Clips.File = *o.ClipsFile
	}

	if o.InitialBPM != nil {
		cfg.Timeline.InitialBPM = *o.InitialBPM
	}
	if o.MaxUndo != nil {
		cfg.Timeline.MaxUndo = *o.MaxUndo
	}
	if o.UpdateHz != nil {
		cfg.Daemon.UpdateHz = *o.UpdateHz
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides have been applied.
func (c *Config) Validate() error {
	// Timeline
	if c.Timeline.DefaultLengthSec < timeline.MinTimelineLength {
		return fmt.Errorf("timeline.default_length_sec must be >= %g", timeline.MinTimelineLength)
	}
	if c.Timeline.ZoomViewSec <= 0 {
		return errors.New("timeline.zoom_view_sec must be > 0")
	}
	if c.Timeline.MinZoom <= 0 {
		return errors.New("timeline.min_zoom must be > 0")
	}
	if c.Timeline.MaxZoom < c.Timeline.MinZoom {
		return errors.New("timeline.min_zoom must be <= timeline.max_zoom")
	}
	if c.Timeline.MaxUndo < 0 {
		return errors.New("timeline.max_undo must be >= 0")
	}
	if c.Timeline.InitialBPM < timeline.MinBPM || c.Timeline.InitialBPM > timeline.MaxBPM {
		return fmt.Errorf("timeline.initial_bpm must be between %g and %g", timeline.MinBPM, timeline.MaxBPM)
	}
	for i, v := range c.Timeline.TimeSignature {
		if v < timeline.MinTimeSignature || v > timeline.MaxTimeSignature {
			return fmt.Errorf("timeline.time_signature[%d] must be between %d and %d", i, timeline.MinTimeSignature, timeline.MaxTimeSignature)
		}
	}

	// Engine
	if c.Engine.WsURL != "" && c.Engine.TimeoutMS <= 0 {
		return errors.New("engine.timeout_ms must be > 0")
	}
	if c.Engine.QueueSize <= 0 {
		return errors.New("engine.queue_size must be > 0")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535")
	}
	if c.HTTP.Port > 0 && !strings.HasPrefix(c.HTTP.WsPath, "/") {
		return errors.New("http.ws_path must start with /")
	}
	if c.HTTP.WsSendBuffer < 0 {
		return errors.New("http.ws_send_buffer must be >= 0")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.Jog.BeatsPerStep <= 0 {
		return errors.New("input.jog.beats_per_step must be > 0")
	}
	if c.Input.Jog.VelocityWindowMS < 0 {
		return errors.New("input.jog.velocity_window_ms must be >= 0")
	}
	if c.Input.Jog.VelocityMultiplier < 1 {
		return errors.New("input.jog.velocity_multiplier must be >= 1")
	}
	if c.Input.Shuttle.MaxSpeed < 0 {
		return errors.New("input.shuttle.max_speed must be >= 0")
	}
	if c.Input.Shuttle.AccelTimeSec < 0 {
		return errors.New("input.shuttle.accel_time_sec must be >= 0")
	}
	if c.Input.Shuttle.HoldTimeoutMS < 0 {
		return errors.New("input.shuttle.hold_timeout_ms must be >= 0")
	}

	// MIDI
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 16 {
		return errors.New("midi.channel must be between 0 (omni) and 16")
	}
	if c.MIDI.Device != "" && c.MIDI.NoteQueue <= 0 {
		return errors.New("midi.note_queue must be > 0")
	}

	// Daemon
	if c.Daemon.UpdateHz <= 0 || c.Daemon.UpdateHz > 1000 {
		return errors.New("daemon.update_hz must be between 1 and 1000")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := parseLogFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}

	return nil
}

// TimelineSettings returns the timeline.Config view of the file config.
func (c *Config) TimelineSettings() timeline.Settings {
	return timeline.Settings{
		TimelineLength:   c.Timeline.DefaultLengthSec,
		ZoomViewDuration: c.Timeline.ZoomViewSec,
		MinZoom:          c.Timeline.MinZoom,
		MaxZoom:          c.Timeline.MaxZoom,
	}
}

// InitialState builds the starting timeline with the configured tempo.
func (c *Config) InitialState() timeline.State {
	st := timeline.NewState(c.TimelineSettings())
	st.Tempo.BPM = c.Timeline.InitialBPM
	st.Tempo.Numerator = c.Timeline.TimeSignature[0]
	st.Tempo.Denominator = c.Timeline.TimeSignature[1]
	st.Playhead.EditPositionBeats = st.SecondsToBeats(st.Playhead.EditPosition)
	return st
}

// ToShuttleConfig converts the file config into the shuttle controller config.
func (c *Config) ToShuttleConfig() ShuttleConfig {
	cfg := ShuttleConfig{
		MaxSpeed:    c.Input.Shuttle.MaxSpeed,
		AccelTime:   c.Input.Shuttle.AccelTimeSec,
		DecayTau:    c.Input.Shuttle.DecayTauSec,
		HoldTimeout: time.Duration(c.Input.Shuttle.HoldTimeoutMS) * time.Millisecond,
	}
	if c.Daemon.UpdateHz > 0 {
		// Integrate at most about two ticks per step.
		cfg.MaxDt = 2.0 / float64(c.Daemon.UpdateHz)
	}
	return cfg
}

// ToJogConfig converts the file config into the jog policy config.
// ToServerConfig returns the state websocket settings.
func (c *Config) ToServerConfig() ServerConfig {
	return ServerConfig{
		Hub:      HubConfig{SendBuf: c.HTTP.WsSendBuffer},
		ReadOnly: c.HTTP.WsReadOnly,
	}
}

func (c *Config) ToJogConfig() JogConfig {
	return JogConfig{
		BeatsPerStep:       c.Input.Jog.BeatsPerStep,
		VelocityWindow:     time.Duration(c.Input.Jog.VelocityWindowMS) * time.Millisecond,
		VelocityMultiplier: c.Input.Jog.VelocityMultiplier,
		VelocityThreshold:  c.Input.Jog.VelocityThreshold,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
