package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"timelined/timeline"
)

// ============================================================================
// timeline-ctl - Command-line IPC Client
// ============================================================================
// This tool sends timeline events to the timelined daemon via IPC.
//
// Usage:
//   timeline-ctl play
//   timeline-ctl tempo 96
//   timeline-ctl loop 8 16
//   timeline-ctl undo
//   timeline-ctl state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/timelined.sock)
// ============================================================================

const defaultSocketPath = "/tmp/timelined.sock"

// envelope is the line-delimited wire form, shared with the daemon.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response. State is set only for
// "state" requests.
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	State  json.RawMessage `json:"state,omitempty"`
}

func main() {
	socketPath := defaultSocketPath

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	line, err := buildCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	resp, err := send(socketPath, line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.State) > 0 {
		var out bytes.Buffer
		if err := json.Indent(&out, resp.State, "", "  "); err != nil {
			fmt.Printf("%s\n", resp.State)
			return
		}
		fmt.Println(out.String())
		return
	}
	fmt.Println("ok")
}

// buildCommand turns command-line words into one JSON envelope.
func buildCommand(args []string) ([]byte, error) {
	cmd, rest := args[0], args[1:]

	switch cmd {
	// Queries
	case "state":
		return json.Marshal(envelope{Type: "state"})
	case "ping":
		return json.Marshal(envelope{Type: "ping"})

	// Daemon-level inputs
	case "undo":
		return json.Marshal(envelope{Type: "undo"})
	case "redo":
		return json.Marshal(envelope{Type: "redo"})
	case "toggle":
		return json.Marshal(envelope{Type: "transport_toggle"})
	case "next", "prev":
		dir := 1
		if cmd == "prev" {
			dir = -1
		}
		return daemonInput("jump_section", map[string]int{"direction": dir})
	case "jog":
		steps, err := intArgs(cmd, rest, 1)
		if err != nil {
			return nil, err
		}
		return daemonInput("jog_turn", map[string]int{"steps": steps[0]})

	// Transport
	case "play":
		return timeline.MarshalEvent(timeline.StartPlayback{})
	case "stop":
		return timeline.MarshalEvent(timeline.StopPlayback{})
	case "pause":
		return timeline.MarshalEvent(timeline.PausePlayback{})
	case "record":
		return timeline.MarshalEvent(timeline.StartRecord{})
	case "seek":
		v, err := floatArgs(cmd, rest, 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetEditPosition{Position: v[0]})
	case "nudge":
		v, err := floatArgs(cmd, rest, 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.MovePlayheadByDelta{Delta: v[0]})

	// Tempo
	case "tempo":
		v, err := floatArgs(cmd, rest, 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetTempo{BPM: v[0]})
	case "sig":
		v, err := intArgs(cmd, rest, 2)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetTimeSignature{Numerator: v[0], Denominator: v[1]})

	// Loop and punch
	case "loop":
		v, err := floatArgs(cmd, rest, 2)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetLoopRegion{Start: v[0], End: v[1]})
	case "clear-loop":
		return timeline.MarshalEvent(timeline.ClearLoopRegion{})
	case "loop-on", "loop-off":
		return timeline.MarshalEvent(timeline.SetLoopEnabled{Enabled: cmd == "loop-on"})
	case "punch":
		v, err := floatArgs(cmd, rest, 2)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetPunchRegion{Start: v[0], End: v[1]})
	case "clear-punch":
		return timeline.MarshalEvent(timeline.ClearPunchRegion{})

	// View
	case "zoom":
		v, err := floatArgs(cmd, rest, 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SetZoom{PixelsPerBeat: v[0]})
	case "fit":
		v, err := floatArgs(cmd, rest, 2)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.ZoomToFit{Start: v[0], End: v[1], PaddingPercent: timeline.DefaultFitPadding})
	case "reset-zoom":
		return timeline.MarshalEvent(timeline.ResetZoom{})

	// Sections
	case "section":
		return buildSectionCommand(rest)

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

func buildSectionCommand(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("section requires add, remove or select")
	}
	switch args[0] {
	case "add":
		if len(args) != 4 {
			return nil, fmt.Errorf("section add requires <name> <start> <end>")
		}
		v, err := floatArgs("section add", args[2:], 2)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.AddSection{Name: args[1], Start: v[0], End: v[1], Colour: timeline.DefaultSectionColour})
	case "remove":
		v, err := intArgs("section remove", args[1:], 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.RemoveSection{Index: v[0]})
	case "select":
		v, err := intArgs("section select", args[1:], 1)
		if err != nil {
			return nil, err
		}
		return timeline.MarshalEvent(timeline.SelectSection{Index: v[0]})
	default:
		return nil, fmt.Errorf("unknown section command: %s", args[0])
	}
}

func daemonInput(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return json.Marshal(envelope{Type: typ, Data: raw})
}

func floatArgs(cmd string, args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numeric argument(s)", cmd, n)
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", cmd, a)
		}
		out[i] = v
	}
	return out, nil
}

func intArgs(cmd string, args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d integer argument(s)", cmd, n)
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", cmd, a)
		}
		out[i] = v
	}
	return out, nil
}

func send(socketPath string, line []byte) (IPCResponse, error) {
	var response IPCResponse

	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return response, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return response, fmt.Errorf("send event: %w", err)
	}

	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return response, fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return response, fmt.Errorf("daemon error: %s", response.Error)
	}
	return response, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `timeline-ctl - Control the timelined daemon via IPC

Usage:
  timeline-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Transport:
  play | stop | pause | record | toggle
  seek <sec>                  Move the edit position
  nudge <sec>                 Move the edit position by a delta
  next | prev                 Jump to the next/previous section start
  jog <steps>                 Turn the jog wheel by detents

Tempo:
  tempo <bpm>
  sig <numerator> <denominator>

Loop and punch:
  loop <start> <end> | clear-loop | loop-on | loop-off
  punch <start> <end> | clear-punch

View:
  zoom <pixels-per-beat> | fit <start> <end> | reset-zoom

Sections:
  section add <name> <start> <end>
  section remove <index>
  section select <index>

History:
  undo | redo

Queries:
  state                       Print the current snapshot as JSON
  ping                        Check that the daemon is answering

Examples:
  timeline-ctl tempo 96
  timeline-ctl loop 8 16
  timeline-ctl -socket /run/timelined.sock play
`, defaultSocketPath)
}
