package document

import (
	"sort"
	"strconv"

	"github.com/MimeLyc/doc-translator/internal/subtitle"
)

type subtitleHole struct {
	span    subtitle.Span
	unit    TextUnit
	newline string
}

func extractSubtitle(content string, opts Options) (*Skeleton, error) {
	file, err := subtitle.Parse(content)
	if err != nil {
		return nil, err
	}

	holes := make([]subtitleHole, 0, len(file.Cues))
	for _, cue := range file.Cues {
		if !cue.HasBody() || isBlank(cue.Text) {
			continue
		}
		extra := map[string]string{
			"kind":   string(file.Kind),
			"start":  subtitle.FormatTimestamp(cue.StartTime, file.Kind),
			"end":    subtitle.FormatTimestamp(cue.EndTime, file.Kind),
			"timing": cue.Timing,
		}
		if cue.ID != "" {
			extra["cue_id"] = cue.ID
		}
		holes = append(holes, subtitleHole{
			span:    cue.Body,
			unit:    TextUnit{Path: Path{strconv.Itoa(cue.Ordinal)}, SourceText: cue.Text, FormatExtra: extra},
			newline: cue.Newline,
		})
	}

	if !opts.excludeMetadata() {
		for i, note := range file.Notes {
			if isBlank(note.Text) {
				continue
			}
			holes = append(holes, subtitleHole{
				span: note.Body,
				unit: TextUnit{
					Path:        Path{"note", strconv.Itoa(i)},
					SourceText:  note.Text,
					FormatExtra: map[string]string{"kind": string(file.Kind), "note": "true"},
				},
				newline: note.Newline,
			})
		}
		sort.SliceStable(holes, func(i, j int) bool {
			return holes[i].span.Start < holes[j].span.Start
		})
	}

	b := newBuilder(content, opts)
	for _, h := range holes {
		if err := b.hole(h.span.Start, h.span.End, h.unit, piece{esc: escapeLines, newline: h.newline}); err != nil {
			return nil, err
		}
	}
	return b.finish(), nil
}
