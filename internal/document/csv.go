package document

import (
	"strconv"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

type csvField struct {
	start, end int // raw span, quotes included
	value      string
	quoted     bool
}

type csvRecord struct {
	fields []csvField
	line   int
}

// scanCSV splits content into records while keeping each field's raw span.
// Quoted fields may contain the delimiter, doubled quotes and line breaks.
func scanCSV(content, delim string) ([]csvRecord, error) {
	var records []csvRecord
	pos := 0
	line := 1
	for pos < len(content) {
		record := csvRecord{line: line}
		for {
			field := csvField{start: pos}
			if pos < len(content) && content[pos] == '"' {
				field.quoted = true
				startLine := line
				var sb strings.Builder
				i := pos + 1
				closed := false
				for i < len(content) {
					c := content[i]
					if c == '"' {
						if i+1 < len(content) && content[i+1] == '"' {
							sb.WriteByte('"')
							i += 2
							continue
						}
						closed = true
						i++
						break
					}
					if c == '\n' {
						line++
					}
					sb.WriteByte(c)
					i++
				}
				if !closed {
					return nil, csvParseError(startLine, "unterminated quoted field")
				}
				if i < len(content) && !strings.HasPrefix(content[i:], delim) && !atLineEnd(content, i) {
					return nil, csvParseError(line, "unexpected character after quoted field")
				}
				field.value = sb.String()
				field.end = i
				pos = i
			} else {
				i := pos
				for i < len(content) && !strings.HasPrefix(content[i:], delim) && !atLineEnd(content, i) {
					i++
				}
				field.value = content[pos:i]
				field.end = i
				pos = i
			}
			record.fields = append(record.fields, field)

			if pos < len(content) && strings.HasPrefix(content[pos:], delim) {
				pos += len(delim)
				continue
			}
			break
		}
		records = append(records, record)

		// consume the record terminator
		if strings.HasPrefix(content[pos:], "\r\n") {
			pos += 2
		} else if pos < len(content) {
			pos++
		}
		line++
	}
	return records, nil
}

func atLineEnd(content string, i int) bool {
	return content[i] == '\n' || strings.HasPrefix(content[i:], "\r\n")
}

func csvParseError(line int, msg string) error {
	return apperr.New(apperr.KindParse, "invalid CSV at line %d: %s", line, msg).
		WithContext("format", string(FormatCSV)).
		WithContext("line", line)
}

func extractCSV(content string, opts Options) (*Skeleton, error) {
	records, err := scanCSV(content, opts.Delimiter)
	if err != nil {
		return nil, err
	}

	var header []string
	if opts.SkipHeader && len(records) > 0 {
		for _, f := range records[0].fields {
			header = append(header, f.value)
		}
	}

	b := newBuilder(content, opts)
	for row, record := range records {
		if row == 0 && opts.SkipHeader {
			continue
		}
		for col, field := range record.fields {
			if isBlank(field.value) {
				continue
			}
			extra := map[string]string{
				"row":    strconv.Itoa(row),
				"column": strconv.Itoa(col),
			}
			if col < len(header) {
				extra["header"] = header[col]
			}
			unit := TextUnit{
				Path:        Path{strconv.Itoa(row), strconv.Itoa(col)},
				SourceText:  field.value,
				FormatExtra: extra,
			}
			if err := b.hole(field.start, field.end, unit, piece{esc: escapeCSV, quoted: field.quoted}); err != nil {
				return nil, err
			}
		}
	}
	return b.finish(), nil
}
