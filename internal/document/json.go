package document

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

type jsonFrame struct {
	array     bool
	expectKey bool
	key       string // raw member name
	locator   string // member name, suffixed when the name repeats
	index     int
	names     map[string]int  // occurrences per raw name
	used      map[string]bool // locators already handed out
}

func (f *jsonFrame) locate() string {
	if f.array {
		return strconv.Itoa(f.index)
	}
	return f.locator
}

// member records the next member name and picks a locator no earlier
// member of this object holds, so a repeated "a" never lands on a literal
// "a#2" key or the other way round.
func (f *jsonFrame) member(name string) {
	f.names[name]++
	f.key = name
	f.locator = name
	for n := max(f.names[name], 2); f.used[f.locator]; n++ {
		f.locator = name + "#" + strconv.Itoa(n)
	}
	f.used[f.locator] = true
	f.expectKey = false
}

// done advances the frame past one member value.
func (f *jsonFrame) done() {
	if f.array {
		f.index++
		return
	}
	f.expectKey = true
}

type jsonExtractor struct {
	ignore map[string]bool
}

func newJSONExtractor(opts Options) *jsonExtractor {
	ignore := make(map[string]bool, len(opts.IgnoreKeys))
	for _, key := range opts.IgnoreKeys {
		ignore[key] = true
	}
	return &jsonExtractor{ignore: ignore}
}

// extract walks the token stream depth-first. Every string value becomes a
// hole covering its quoted literal, so untouched values keep their escapes.
func (e *jsonExtractor) extract(content string, opts Options) (*Skeleton, error) {
	if !json.Valid([]byte(content)) {
		return nil, jsonSyntaxError(content)
	}

	b := newBuilder(content, opts)
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var stack []*jsonFrame
	top := func() *jsonFrame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		prev := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, jsonSyntaxError(content)
		}

		frame := top()
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, &jsonFrame{expectKey: true, names: make(map[string]int), used: make(map[string]bool)})
			case '[':
				stack = append(stack, &jsonFrame{array: true})
			default:
				stack = stack[:len(stack)-1]
				if parent := top(); parent != nil {
					parent.done()
				}
			}
		case string:
			if frame != nil && !frame.array && frame.expectKey {
				frame.member(v)
				continue
			}
			if !isBlank(v) && !e.ignored(stack) {
				start := prev + strings.IndexByte(content[prev:], '"')
				end := int(dec.InputOffset())
				unit := TextUnit{Path: jsonPath(stack), SourceText: v}
				if err := b.hole(start, end, unit, piece{esc: escapeJSON}); err != nil {
					return nil, err
				}
			}
			if frame != nil {
				frame.done()
			}
		default:
			if frame != nil {
				frame.done()
			}
		}
	}

	return b.finish(), nil
}

func (e *jsonExtractor) ignored(stack []*jsonFrame) bool {
	if len(e.ignore) == 0 {
		return false
	}
	for _, f := range stack {
		if !f.array && e.ignore[f.key] {
			return true
		}
	}
	return false
}

func jsonPath(stack []*jsonFrame) Path {
	path := make(Path, 0, len(stack))
	for _, f := range stack {
		path = append(path, f.locate())
	}
	return path
}

func jsonSyntaxError(content string) error {
	var v any
	err := json.Unmarshal([]byte(content), &v)
	if err == nil {
		err = errors.New("invalid JSON")
	}
	offset := len(content)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = int(syntaxErr.Offset)
	}
	line, col := lineCol(content, offset)
	return apperr.Wrap(err, apperr.KindParse, "invalid JSON at line %d, column %d", line, col).
		WithContext("format", string(FormatJSON)).
		WithContext("line", line).
		WithContext("column", col)
}
