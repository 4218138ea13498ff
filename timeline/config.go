package timeline

// Config supplies project defaults and zoom limits. It is read when the
// Controller is built and again on every zoom clamp.
type Config interface {
	DefaultTimelineLength() float64
	DefaultZoomViewDuration() float64
	MinZoomLevel() float64
	MaxZoomLevel() float64
}

// Default configuration values.
const (
	DefaultTimelineLength   = 300.0
	DefaultZoomViewDuration = 60.0
	DefaultMinZoomLevel     = 0.01
	DefaultMaxZoomLevel     = 10000.0
)

// Settings is a plain Config. Zero fields fall back to the package defaults.
type Settings struct {
	TimelineLength   float64
	ZoomViewDuration float64
	MinZoom          float64
	MaxZoom          float64
}

// DefaultSettings returns Settings populated with the package defaults.
func DefaultSettings() Settings {
	return Settings{
		TimelineLength:   DefaultTimelineLength,
		ZoomViewDuration: DefaultZoomViewDuration,
		MinZoom:          DefaultMinZoomLevel,
		MaxZoom:          DefaultMaxZoomLevel,
	}
}

func (s Settings) DefaultTimelineLength() float64 {
	if s.TimelineLength <= 0 {
		return DefaultTimelineLength
	}
	return s.TimelineLength
}

func (s Settings) DefaultZoomViewDuration() float64 {
	if s.ZoomViewDuration <= 0 {
		return DefaultZoomViewDuration
	}
	return s.ZoomViewDuration
}

func (s Settings) MinZoomLevel() float64 {
	if s.MinZoom <= 0 {
		return DefaultMinZoomLevel
	}
	return s.MinZoom
}

func (s Settings) MaxZoomLevel() float64 {
	if s.MaxZoom <= 0 {
		return DefaultMaxZoomLevel
	}
	return s.MaxZoom
}
