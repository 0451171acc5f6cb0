package subtitle

import "time"

// Kind is the subtitle dialect.
type Kind string

const (
	KindSRT Kind = "SRT"
	KindVTT Kind = "VTT"
)

// Span is a byte range [Start, End) of the source content.
type Span struct {
	Start int
	End   int
}

// Cue represents a single subtitle cue. Offsets refer to the parsed content so
// callers can rebuild the file around the body without touching ids or timing.
type Cue struct {
	Ordinal   int           // zero-based position in the file
	ID        string        // cue identifier line, empty when absent
	StartTime time.Duration // start time
	EndTime   time.Duration // end time
	Timing    string        // raw timing line, including VTT cue settings
	Text      string        // body lines joined by "\n"
	Body      Span          // raw body, excluding the final line terminator
	Newline   string        // line terminator used by the cue ("\n" or "\r\n")
	Line      int           // 1-based line number of the timing line
}

// HasBody reports whether the cue carries any text.
func (c Cue) HasBody() bool {
	return c.Body.End > c.Body.Start
}

// Note is a WebVTT NOTE comment block.
type Note struct {
	Text    string
	Body    Span
	Newline string
	Line    int
}

// File represents a parsed subtitle document.
type File struct {
	Kind  Kind
	Cues  []Cue
	Notes []Note
}
