package doc

// StepMap records that OldSize positions starting at Start were replaced by
// NewSize positions.
type StepMap struct {
	Start   int
	OldSize int
	NewSize int
}

// MapResult is a mapped position plus whether the content it pointed at
// was replaced.
type MapResult struct {
	Pos     int
	Deleted bool
}

// MapResult maps pos through the step. assoc decides which side of an
// insertion at pos the result sticks to: negative keeps it before inserted
// content, positive moves it after.
func (m StepMap) MapResult(pos, assoc int) MapResult {
	end := m.Start + m.OldSize
	switch {
	case pos < m.Start:
		return MapResult{Pos: pos}
	case pos > end:
		return MapResult{Pos: pos + m.NewSize - m.OldSize}
	case m.OldSize == 0:
		// Pure insertion at pos.
		if assoc < 0 {
			return MapResult{Pos: pos}
		}
		return MapResult{Pos: pos + m.NewSize}
	case pos == m.Start:
		return MapResult{Pos: pos, Deleted: assoc >= 0}
	case pos == end:
		return MapResult{Pos: m.Start + m.NewSize, Deleted: assoc < 0}
	case assoc < 0:
		return MapResult{Pos: m.Start, Deleted: true}
	default:
		return MapResult{Pos: m.Start + m.NewSize, Deleted: true}
	}
}

// Mapping is an ordered list of step maps.
type Mapping []StepMap

// Map maps pos through every step.
func (m Mapping) Map(pos, assoc int) int {
	return m.MapResult(pos, assoc).Pos
}

// MapResult maps pos through every step. Deleted is set when any step
// replaced the content pos pointed at.
func (m Mapping) MapResult(pos, assoc int) MapResult {
	out := MapResult{Pos: pos}
	for _, step := range m {
		r := step.MapResult(out.Pos, assoc)
		out.Pos = r.Pos
		out.Deleted = out.Deleted || r.Deleted
	}
	return out
}
