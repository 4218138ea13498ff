package timeline

import "math"

// setScrollX stores a horizontal offset computed in float pixels. It is
// clamped to the scroll range before conversion so huge inputs cannot wrap.
func (r *reducer) setScrollX(x float64) {
	if math.IsNaN(x) {
		x = 0
	}
	r.s.Zoom.ScrollX = int(clampFloat(x, 0, float64(r.s.MaxScrollX())))
}

// clampTime limits t to the project.
func (r *reducer) clampTime(t float64) float64 { return clampFloat(t, 0, r.s.Length) }

func (r *reducer) commitZoom(prev ZoomState) {
	clampScroll(&r.s)
	if r.s.Zoom != prev {
		r.mark(ChangeZoom | ChangeScroll)
	}
}

func (r *reducer) setZoom(ppb float64) {
	if !finite(ppb) {
		return
	}
	prev := r.s.Zoom
	r.s.Zoom.PixelsPerBeat = clampZoom(r.s, ppb, r.cfg)
	r.commitZoom(prev)
}

func (r *reducer) setZoomCentered(ev SetZoomCentered) {
	if !finite(ev.PixelsPerBeat, ev.Center) {
		return
	}
	prev := r.s.Zoom
	z := clampZoom(r.s, ev.PixelsPerBeat, r.cfg)
	r.s.Zoom.PixelsPerBeat = z
	x := r.s.SecondsToBeats(r.clampTime(ev.Center))*z + float64(LeftPadding-r.s.Zoom.ViewportWidth/2)
	r.setScrollX(x)
	r.commitZoom(prev)
}

func (r *reducer) setZoomAnchored(ev SetZoomAnchored) {
	if !finite(ev.PixelsPerBeat, ev.AnchorTime) {
		return
	}
	prev := r.s.Zoom
	z := clampZoom(r.s, ev.PixelsPerBeat, r.cfg)
	r.s.Zoom.PixelsPerBeat = z
	x := r.s.SecondsToBeats(r.clampTime(ev.AnchorTime))*z + float64(LeftPadding) - float64(ev.AnchorX)
	r.setScrollX(x)
	r.commitZoom(prev)
}

func (r *reducer) zoomToFit(ev ZoomToFit) {
	if !finite(ev.Start, ev.End, ev.PaddingPercent) || ev.End <= ev.Start {
		return
	}
	vw := r.s.Zoom.ViewportWidth
	if vw <= 0 {
		return
	}
	durBeats := r.s.SecondsToBeats(ev.End - ev.Start)
	padBeats := durBeats * max(ev.PaddingPercent, 0)
	if durBeats <= 0 {
		return
	}

	prev := r.s.Zoom
	z := clampZoom(r.s, float64(vw)/(durBeats+2*padBeats), r.cfg)
	r.s.Zoom.PixelsPerBeat = z
	r.setScrollX((r.s.SecondsToBeats(ev.Start) - padBeats) * z)
	r.commitZoom(prev)
}

func (r *reducer) resetZoom() {
	vw := r.s.Zoom.ViewportWidth
	beats := r.s.SecondsToBeats(r.s.Length)
	if beats <= 0 || vw <= 0 {
		return
	}
	prev := r.s.Zoom
	r.s.Zoom.PixelsPerBeat = clampZoom(r.s, float64(vw-LeftPadding)/beats, r.cfg)
	r.s.Zoom.ScrollX = 0
	r.commitZoom(prev)
}

func (r *reducer) setScrollPosition(ev SetScrollPosition) {
	prev := r.s.Zoom
	r.s.Zoom.ScrollX = ev.X
	if ev.Y != nil {
		r.s.Zoom.ScrollY = *ev.Y
	}
	r.commitScroll(prev)
}

func (r *reducer) scrollBy(dx, dy int) {
	prev := r.s.Zoom
	r.s.Zoom.ScrollX = addSat(r.s.Zoom.ScrollX, dx)
	r.s.Zoom.ScrollY = addSat(r.s.Zoom.ScrollY, dy)
	r.commitScroll(prev)
}

func (r *reducer) scrollToTime(ev ScrollToTime) {
	if !finite(ev.Time) {
		return
	}
	prev := r.s.Zoom
	x := r.s.TimeToPixelLocal(r.clampTime(ev.Time))
	if ev.Center {
		x -= r.s.Zoom.ViewportWidth / 2
	}
	r.s.Zoom.ScrollX = x
	r.commitScroll(prev)
}

func (r *reducer) commitScroll(prev ZoomState) {
	clampScroll(&r.s)
	if r.s.Zoom != prev {
		r.mark(ChangeScroll)
	}
}

func (r *reducer) viewportResized(w, h int) {
	w, h = max(w, 0), max(h, 0)
	if w == r.s.Zoom.ViewportWidth && h == r.s.Zoom.ViewportHeight {
		return
	}
	r.s.Zoom.ViewportWidth = w
	r.s.Zoom.ViewportHeight = h
	clampScroll(&r.s)
	r.mark(ChangeZoom | ChangeScroll)
}
