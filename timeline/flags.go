package timeline

import "strings"

// ChangeFlags reports which parts of the State a dispatch touched.
type ChangeFlags uint32

const (
	ChangeNone      ChangeFlags = 0
	ChangeZoom      ChangeFlags = 1 << 0
	ChangeScroll    ChangeFlags = 1 << 1
	ChangePlayhead  ChangeFlags = 1 << 2
	ChangeSelection ChangeFlags = 1 << 3
	ChangeLoop      ChangeFlags = 1 << 4
	ChangeTempo     ChangeFlags = 1 << 5
	ChangeDisplay   ChangeFlags = 1 << 6
	ChangeSections  ChangeFlags = 1 << 7
	ChangeTimeline  ChangeFlags = 1 << 8
	ChangePunch     ChangeFlags = 1 << 9
	ChangeAll       ChangeFlags = 0xFFFFFFFF
)

var flagNames = []struct {
	flag ChangeFlags
	name string
}{
	{ChangeZoom, "zoom"},
	{ChangeScroll, "scroll"},
	{ChangePlayhead, "playhead"},
	{ChangeSelection, "selection"},
	{ChangeLoop, "loop"},
	{ChangeTempo, "tempo"},
	{ChangeDisplay, "display"},
	{ChangeSections, "sections"},
	{ChangeTimeline, "timeline"},
	{ChangePunch, "punch"},
}

// Has reports whether any bit of mask is set in f.
func (f ChangeFlags) Has(mask ChangeFlags) bool { return f&mask != 0 }

// Names returns the lower-case names of the set bits, in bit order.
func (f ChangeFlags) Names() []string {
	if f == ChangeNone {
		return nil
	}
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f ChangeFlags) String() string {
	switch f {
	case ChangeNone:
		return "none"
	case ChangeAll:
		return "all"
	}
	return strings.Join(f.Names(), "|")
}
