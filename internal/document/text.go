package document

import (
	"strconv"
	"strings"
	"unicode"
)

func extractText(content string, opts Options) (*Skeleton, error) {
	b := newBuilder(content, opts)
	if !opts.SplitLines {
		start, end := trimmedSpan(content, 0, len(content))
		if start < end {
			unit := TextUnit{Path: Path{"0"}, SourceText: content[start:end]}
			if err := b.hole(start, end, unit, piece{}); err != nil {
				return nil, err
			}
		}
		return b.finish(), nil
	}

	pos := 0
	for idx := 0; pos <= len(content); idx++ {
		end := strings.IndexByte(content[pos:], '\n')
		if end < 0 {
			end = len(content)
		} else {
			end += pos
		}
		start, stop := trimmedSpan(content, pos, end)
		if start < stop {
			unit := TextUnit{
				Path:        Path{strconv.Itoa(idx)},
				SourceText:  content[start:stop],
				FormatExtra: map[string]string{"line": strconv.Itoa(idx + 1)},
			}
			if err := b.hole(start, stop, unit, piece{esc: escapeLine}); err != nil {
				return nil, err
			}
		}
		if end == len(content) {
			break
		}
		pos = end + 1
	}
	return b.finish(), nil
}

// trimmedSpan narrows [start, end) to exclude surrounding whitespace.
func trimmedSpan(content string, start, end int) (int, int) {
	trimmed := strings.TrimLeftFunc(content[start:end], unicode.IsSpace)
	start = end - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	return start, start + len(trimmed)
}
