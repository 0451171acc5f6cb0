package document

import (
	"encoding/json"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

// Format selects the extractor/reinjector pair for a request.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatText     Format = "text"
	FormatSubtitle Format = "subtitle"
)

// Options carries the format selector plus format-specific switches.
type Options struct {
	Format Format `json:"format"`

	// JSON: string values under these keys are left untouched.
	IgnoreKeys []string `json:"ignore_keys,omitempty"`

	// CSV
	Delimiter            string `json:"delimiter,omitempty"`
	ReplacementDelimiter string `json:"replacement_delimiter,omitempty"`
	SkipHeader           bool   `json:"skip_header,omitempty"`

	// Text: one unit per line instead of one for the whole content.
	SplitLines bool `json:"split_lines,omitempty"`

	// Subtitle: nil means true. When false, WebVTT NOTE blocks are extracted too.
	ExcludeMetadata *bool `json:"exclude_metadata,omitempty"`
}

var defaultReplacementDelimiters = map[string]string{
	",":  "，",
	";":  "；",
	"\t": " ",
	"|":  "｜",
}

func (o Options) excludeMetadata() bool {
	return o.ExcludeMetadata == nil || *o.ExcludeMetadata
}

// Normalize fills defaults and validates the options for their format.
func (o Options) Normalize() (Options, error) {
	o.Format = Format(strings.ToLower(strings.TrimSpace(string(o.Format))))
	switch o.Format {
	case FormatJSON, FormatText, FormatSubtitle:
		return o, nil
	case FormatCSV:
	case "":
		return o, apperr.New(apperr.KindValidation, "format is required")
	default:
		return o, apperr.New(apperr.KindValidation, "unsupported format %q", o.Format)
	}

	if o.Delimiter == "" {
		o.Delimiter = ","
	}
	if strings.ContainsAny(o.Delimiter, "\"\r\n") {
		return o, apperr.New(apperr.KindValidation, "csv delimiter %q must not contain quotes or line breaks", o.Delimiter)
	}
	if o.ReplacementDelimiter == "" {
		repl, ok := defaultReplacementDelimiters[o.Delimiter]
		if !ok {
			return o, apperr.New(apperr.KindValidation, "replacement_delimiter is required for delimiter %q", o.Delimiter)
		}
		o.ReplacementDelimiter = repl
	}
	if strings.Contains(o.ReplacementDelimiter, o.Delimiter) {
		return o, apperr.New(apperr.KindValidation, "replacement_delimiter %q must not contain the delimiter %q", o.ReplacementDelimiter, o.Delimiter)
	}
	return o, nil
}

// Path is the ordered list of structural locators of a unit: object keys and
// array indexes for JSON, row/column for CSV, line or cue ordinals otherwise.
type Path []string

// Key returns an unambiguous string form of the path, usable as a map key.
func (p Path) Key() string {
	if p == nil {
		p = Path{}
	}
	b, _ := json.Marshal([]string(p))
	return string(b)
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// TextUnit is one translatable text leaf.
type TextUnit struct {
	Path        Path              `json:"path"`
	SourceText  string            `json:"source_text"`
	FormatExtra map[string]string `json:"format_extra,omitempty"`
}

// TranslatedUnit is the per-unit outcome of a translation request. On failure
// TranslatedText carries the source text and Success is false.
type TranslatedUnit struct {
	Path           Path   `json:"path"`
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"`
	Success        bool   `json:"success"`
	FromCache      bool   `json:"from_cache,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Document is the result of an extraction.
type Document struct {
	Units    []TextUnit
	Skeleton *Skeleton
}
