package timeline

// ClipID identifies a clip in a ClipStore.
type ClipID int

// ClipKind distinguishes audio from MIDI clips.
type ClipKind string

const (
	ClipAudio ClipKind = "audio"
	ClipMIDI  ClipKind = "midi"
)

// Clip is an arrangement clip as seen by the timeline. Negative StartBeats and
// non-positive LengthBeats mean the beat fields have not been derived yet.
type Clip struct {
	ID          ClipID   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Track       int      `json:"track" yaml:"track"`
	Kind        ClipKind `json:"kind" yaml:"kind"`
	AutoTempo   bool     `json:"auto_tempo" yaml:"auto_tempo"`
	StartTime   float64  `json:"start_time" yaml:"start_time"`
	Length      float64  `json:"length" yaml:"length"`
	StartBeats  float64  `json:"start_beats" yaml:"start_beats"`
	LengthBeats float64  `json:"length_beats" yaml:"length_beats"`
}

// TempoLocked reports whether the clip follows tempo changes.
func (c Clip) TempoLocked() bool { return c.Kind == ClipAudio && c.AutoTempo }

// ClipStore is the clip collection the timeline re-syncs on tempo changes.
// Clip returns a handle the caller may modify in place, or nil.
type ClipStore interface {
	Clips() []Clip
	Clip(id ClipID) *Clip
	ForceNotifyClipChanged(id ClipID)
}

// ResyncClips recomputes the seconds-domain start and length of every
// tempo-locked clip from its beat fields, deriving missing beat fields from
// oldBPM first. It sends no notifications and returns the touched IDs.
func ResyncClips(store ClipStore, oldBPM, newBPM float64) []ClipID {
	if store == nil {
		return nil
	}
	var touched []ClipID
	for _, snap := range store.Clips() {
		if !snap.TempoLocked() {
			continue
		}
		c := store.Clip(snap.ID)
		if c == nil {
			continue
		}
		if c.StartBeats < 0 {
			c.StartBeats = SecondsToBeats(c.StartTime, oldBPM)
		}
		if c.LengthBeats <= 0 {
			c.LengthBeats = SecondsToBeats(c.Length, oldBPM)
		}
		c.StartTime = BeatsToSeconds(c.StartBeats, newBPM)
		c.Length = BeatsToSeconds(c.LengthBeats, newBPM)
		touched = append(touched, c.ID)
	}
	return touched
}
