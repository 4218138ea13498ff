package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_UNDO         = 131
	KEY_REDO         = 182
	KEY_NEXTSONG     = 163
	KEY_PLAYPAUSE    = 164
	KEY_PREVIOUSSONG = 165
	KEY_STOPCD       = 166
	KEY_RECORD       = 167
	KEY_REWIND       = 168
	KEY_PLAYCD       = 200
	KEY_PAUSECD      = 201
	KEY_FASTFORWARD  = 208

	// Jog wheel relative axis codes
	REL_DIAL  = 0x07
	REL_WHEEL = 0x08
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultUpdateHz      = 30  // Tick frequency (Hz)
	defaultReadTimeoutMS = 500 // Engine websocket dial/write timeout (ms)
	defaultEngineQueue   = 256 // Pending engine messages before drops

	// Shuttle (held FF/REW) dynamics, in timeline seconds per wall second.
	defaultShuttleMaxSpeed  = 16.0
	defaultShuttleAccelTime = 1.5
	defaultShuttleDecayTau  = 0.15
	defaultShuttleHoldMS    = 600

	// Jog wheel defaults
	defaultJogBeatsPerStep       = 0.25
	defaultJogVelocityWindowMS   = 200
	defaultJogVelocityMultiplier = 4.0
	defaultJogVelocityThreshold  = 3

	// SPSC queue capacities
	defaultPositionQueue = 64
	defaultNoteQueue     = 256
)
