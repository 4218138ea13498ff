package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"timelined/timeline"
)

// clipStore is the daemon's timeline.ClipStore. It is owned by the daemon
// goroutine: the Controller calls it during tempo changes and snapshots read
// it from the same loop, so it needs no locking.
type clipStore struct {
	clips    []timeline.Clip
	onChange func(timeline.Clip)
}

func newClipStore(clips []timeline.Clip, onChange func(timeline.Clip)) *clipStore {
	return &clipStore{clips: slices.Clone(clips), onChange: onChange}
}

// Clips implements timeline.ClipStore. The returned slice is a copy.
func (s *clipStore) Clips() []timeline.Clip {
	return slices.Clone(s.clips)
}

// Clip implements timeline.ClipStore. The returned pointer aliases the store.
func (s *clipStore) Clip(id timeline.ClipID) *timeline.Clip {
	for i := range s.clips {
		if s.clips[i].ID == id {
			return &s.clips[i]
		}
	}
	return nil
}

// ForceNotifyClipChanged implements timeline.ClipStore.
func (s *clipStore) ForceNotifyClipChanged(id timeline.ClipID) {
	c := s.Clip(id)
	if c == nil || s.onChange == nil {
		return
	}
	s.onChange(*c)
}

// clipFile is the on-disk clip seed. Beat fields are optional; absent ones
// are derived from the project tempo on the first tempo change.
type clipFile struct {
	Clips []clipFileEntry `yaml:"clips"`
}

type clipFileEntry struct {
	ID          timeline.ClipID   `yaml:"id"`
	Name        string            `yaml:"name"`
	Track       int               `yaml:"track"`
	Kind        timeline.ClipKind `yaml:"kind"`
	AutoTempo   bool              `yaml:"auto_tempo"`
	StartTime   float64           `yaml:"start_time"`
	Length      float64           `yaml:"length"`
	StartBeats  *float64          `yaml:"start_beats"`
	LengthBeats *float64          `yaml:"length_beats"`
}

// LoadClipFile reads a YAML clip seed file.
func LoadClipFile(path string) ([]timeline.Clip, error) {
	if path == "" {
		return nil, errors.New("clip file path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("read clip file: %w", err)
	}
	return decodeClips(b)
}

func decodeClips(b []byte) ([]timeline.Clip, error) {
	var f clipFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode clip yaml: %w", err)
	}

	seen := make(map[timeline.ClipID]bool, len(f.Clips))
	clips := make([]timeline.Clip, 0, len(f.Clips))
	for i, e := range f.Clips {
		if seen[e.ID] {
			return nil, fmt.Errorf("clips[%d]: duplicate id %d", i, e.ID)
		}
		seen[e.ID] = true

		switch e.Kind {
		case "":
			e.Kind = timeline.ClipAudio
		case timeline.ClipAudio, timeline.ClipMIDI:
		default:
			return nil, fmt.Errorf("clips[%d]: kind must be %q or %q", i, timeline.ClipAudio, timeline.ClipMIDI)
		}
		if e.StartTime < 0 || e.Length < 0 {
			return nil, fmt.Errorf("clips[%d]: start_time and length must be >= 0", i)
		}

		c := timeline.Clip{
			ID:          e.ID,
			Name:        e.Name,
			Track:       e.Track,
			Kind:        e.Kind,
			AutoTempo:   e.AutoTempo,
			StartTime:   e.StartTime,
			Length:      e.Length,
			StartBeats:  -1,
			LengthBeats: -1,
		}
		if e.StartBeats != nil {
			c.StartBeats = *e.StartBeats
		}
		if e.LengthBeats != nil {
			c.LengthBeats = *e.LengthBeats
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// clipChangedPublisher adapts a broadcastQueue to clipStore notifications.
func clipChangedPublisher(q *broadcastQueue) func(timeline.Clip) {
	return func(c timeline.Clip) {
		q.Publish(BroadcastClipChanged{Clip: c, At: time.Now().UTC()})
	}
}
