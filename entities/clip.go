package entities

// ClipSpec is the requested sub-window of a source video plus the
// presentation metadata for the resulting short clip. Times are seconds
// from the start of the source.
type ClipSpec struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
	Hook      string  `json:"hook,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func (c ClipSpec) Duration() float64 {
	return c.EndTime - c.StartTime
}
