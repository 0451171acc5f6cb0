package document

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

type escape int

const (
	escapeNone escape = iota
	escapeJSON
	escapeCSV
	escapeLine  // single line: line breaks are folded into spaces
	escapeLines // multi-line body: no blank lines, file newline style
)

// piece is either a literal run of the original content or a hole for one unit.
type piece struct {
	literal string
	hole    bool
	unit    int
	raw     string
	esc     escape
	newline string
	quoted  bool
}

// Skeleton is the extracted document with every text leaf replaced by a hole.
// It is transient and only lives for one request.
type Skeleton struct {
	format Format
	opts   Options
	units  []TextUnit
	pieces []piece
}

func (s *Skeleton) Format() Format {
	return s.format
}

func (s *Skeleton) Units() []TextUnit {
	return append([]TextUnit(nil), s.units...)
}

// Replacements maps Path.Key() to replacement text.
type Replacements map[string]string

func (r Replacements) Set(path Path, text string) {
	r[path.Key()] = text
}

// Reinject rebuilds the content. Units without a replacement, or whose
// replacement equals their source text, are emitted byte-for-byte as parsed.
func (s *Skeleton) Reinject(replacements Replacements) (string, error) {
	var sb strings.Builder
	for _, p := range s.pieces {
		if !p.hole {
			sb.WriteString(p.literal)
			continue
		}
		unit := s.units[p.unit]
		text, ok := replacements[unit.Path.Key()]
		if !ok || text == unit.SourceText {
			sb.WriteString(p.raw)
			continue
		}
		encoded, err := s.encode(p, text)
		if err != nil {
			return "", err
		}
		sb.WriteString(encoded)
	}
	return sb.String(), nil
}

func (s *Skeleton) encode(p piece, text string) (string, error) {
	switch p.esc {
	case escapeJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(text); err != nil {
			return "", apperr.Wrap(err, apperr.KindValidation, "cannot encode replacement text")
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	case escapeCSV:
		text = strings.ReplaceAll(text, s.opts.Delimiter, s.opts.ReplacementDelimiter)
		if p.quoted || strings.ContainsAny(text, "\"\r\n") {
			return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`, nil
		}
		return text, nil
	case escapeLine:
		text = strings.ReplaceAll(text, "\r\n", "\n")
		return strings.Join(strings.Fields(strings.ReplaceAll(text, "\n", " ")), " "), nil
	case escapeLines:
		lines := make([]string, 0)
		for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			// a timing arrow would start a new cue in most players, so it
			// is defused and the line folded onto the one before it
			if strings.Contains(line, "-->") {
				line = strings.ReplaceAll(line, "-->", "->")
				if n := len(lines); n > 0 {
					lines[n-1] += " " + strings.TrimSpace(line)
					continue
				}
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			// an empty body would merge the cue with its neighbour
			return p.raw, nil
		}
		return strings.Join(lines, p.newline), nil
	default:
		return text, nil
	}
}

// builder assembles a skeleton while walking the original content left to right.
type builder struct {
	content string
	pos     int
	skel    *Skeleton
	seen    map[string]bool
}

func newBuilder(content string, opts Options) *builder {
	return &builder{
		content: content,
		skel:    &Skeleton{format: opts.Format, opts: opts},
		seen:    make(map[string]bool),
	}
}

// hole records content[start:end] as the raw form of unit.
func (b *builder) hole(start, end int, unit TextUnit, p piece) error {
	key := unit.Path.Key()
	if b.seen[key] {
		return apperr.New(apperr.KindParse, "duplicate text path %s", unit.Path).
			WithContext("format", string(b.skel.format))
	}
	b.seen[key] = true

	if start > b.pos {
		b.skel.pieces = append(b.skel.pieces, piece{literal: b.content[b.pos:start]})
	}
	p.hole = true
	p.unit = len(b.skel.units)
	p.raw = b.content[start:end]
	b.skel.pieces = append(b.skel.pieces, p)
	b.skel.units = append(b.skel.units, unit)
	b.pos = end
	return nil
}

func (b *builder) finish() *Skeleton {
	if b.pos < len(b.content) {
		b.skel.pieces = append(b.skel.pieces, piece{literal: b.content[b.pos:]})
		b.pos = len(b.content)
	}
	return b.skel
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// lineCol converts a byte offset into 1-based line and column numbers.
func lineCol(content string, offset int) (int, int) {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}
	before := content[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}
