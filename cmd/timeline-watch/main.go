package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"timelined/timeline"
)

// timeline-watch follows the timelined state websocket and prints one line
// per frame.

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3010/ws", "timelined state websocket URL")
		raw   = flag.Bool("raw", false, "Print frames as received instead of summaries")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var w watcher
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			// Frames from the daemon keep the connection alive too.
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Printf("%s\n", message)
				continue
			}
			fmt.Println(w.format(message))
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

type frame struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// watcher keeps the last full state so playhead frames can be labelled in
// the project's display mode.
type watcher struct {
	last *timeline.State
}

func (w *watcher) format(message []byte) string {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		return fmt.Sprintf("[TEXT] %s", message)
	}

	switch f.Type {
	case "state_init":
		var snap struct {
			Timeline  timeline.State  `json:"timeline"`
			UndoDepth int             `json:"undo_depth"`
			RedoDepth int             `json:"redo_depth"`
			Clips     []timeline.Clip `json:"clips"`
		}
		if err := json.Unmarshal(f.Data, &snap); err != nil {
			break
		}
		w.last = &snap.Timeline
		return fmt.Sprintf("[INIT] %s undo=%d redo=%d clips=%d",
			summarize(snap.Timeline), snap.UndoDepth, snap.RedoDepth, len(snap.Clips))

	case "state_changed":
		var ch struct {
			Changes   []string       `json:"changes"`
			State     timeline.State `json:"state"`
			UndoDepth int            `json:"undo_depth"`
			RedoDepth int            `json:"redo_depth"`
		}
		if err := json.Unmarshal(f.Data, &ch); err != nil {
			break
		}
		w.last = &ch.State
		return fmt.Sprintf("[STATE] %s %s undo=%d redo=%d",
			strings.Join(ch.Changes, ","), summarize(ch.State), ch.UndoDepth, ch.RedoDepth)

	case "playhead_changed":
		var p timeline.PlayheadState
		if err := json.Unmarshal(f.Data, &p); err != nil {
			break
		}
		pos := fmt.Sprintf("%.3fs", p.Current())
		if w.last != nil {
			pos = w.last.FormatTimePosition(p.Current())
		}
		return fmt.Sprintf("[PLAYHEAD] %s playing=%t recording=%t", pos, p.Playing, p.Recording)

	case "clip_changed":
		var c timeline.Clip
		if err := json.Unmarshal(f.Data, &c); err != nil {
			break
		}
		return fmt.Sprintf("[CLIP] #%d %q start=%.3fs length=%.3fs beats=%.2f+%.2f",
			c.ID, c.Name, c.StartTime, c.Length, c.StartBeats, c.LengthBeats)

	case "note_preview":
		var n struct {
			Channel   uint8 `json:"channel"`
			Key       uint8 `json:"key"`
			Velocity  uint8 `json:"velocity"`
			On        bool  `json:"on"`
			Recording bool  `json:"recording"`
		}
		if err := json.Unmarshal(f.Data, &n); err != nil {
			break
		}
		state := "off"
		if n.On {
			state = "on"
		}
		return fmt.Sprintf("[NOTE] ch=%d key=%d vel=%d %s recording=%t", n.Channel+1, n.Key, n.Velocity, state, n.Recording)
	}

	return fmt.Sprintf("[%s] %s", strings.ToUpper(f.Type), f.Data)
}

func summarize(s timeline.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bpm=%g sig=%d/%d edit=%s",
		s.Tempo.BPM, s.Tempo.Numerator, s.Tempo.Denominator, s.FormatTimePosition(s.Playhead.EditPosition))
	if s.Loop.Valid() {
		fmt.Fprintf(&b, " loop=%s-%s", s.FormatTimePosition(s.Loop.Start), s.FormatTimePosition(s.Loop.End))
		if s.Loop.Enabled {
			b.WriteString("(on)")
		}
	}
	if s.Punch.Valid() {
		fmt.Fprintf(&b, " punch=%s-%s", s.FormatTimePosition(s.Punch.Start), s.FormatTimePosition(s.Punch.End))
	}
	if len(s.Sections) > 0 {
		fmt.Fprintf(&b, " sections=%d", len(s.Sections))
	}
	return b.String()
}
