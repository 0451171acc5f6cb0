// Package document turns structured content into addressable text units and
// merges translated units back without disturbing the surrounding structure.
package document

import (
	"github.com/MimeLyc/doc-translator/internal/apperr"
)

type extractFunc func(content string, opts Options) (*Skeleton, error)

func extractorFor(opts Options) (extractFunc, error) {
	switch opts.Format {
	case FormatJSON:
		return newJSONExtractor(opts).extract, nil
	case FormatCSV:
		return extractCSV, nil
	case FormatText:
		return extractText, nil
	case FormatSubtitle:
		return extractSubtitle, nil
	default:
		return nil, apperr.New(apperr.KindValidation, "unsupported format %q", opts.Format)
	}
}

// Extract parses content into text units and a skeleton. Extraction is
// all-or-nothing: malformed content yields a Parse error and no units.
func Extract(content string, opts Options) (*Document, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	extract, err := extractorFor(opts)
	if err != nil {
		return nil, err
	}
	skel, err := extract(content, opts)
	if err != nil {
		return nil, err
	}
	return &Document{Units: skel.Units(), Skeleton: skel}, nil
}

// Parse returns only the text units of content.
func Parse(content string, opts Options) ([]TextUnit, error) {
	doc, err := Extract(content, opts)
	if err != nil {
		return nil, err
	}
	return doc.Units, nil
}

// Apply re-extracts content and reinjects the translated units. Units that
// failed, or whose path is not part of content, leave the original text.
func Apply(content string, units []TranslatedUnit, opts Options) (string, error) {
	doc, err := Extract(content, opts)
	if err != nil {
		return "", err
	}
	replacements := make(Replacements, len(units))
	for _, u := range units {
		if !u.Success {
			continue
		}
		replacements.Set(u.Path, u.TranslatedText)
	}
	return doc.Skeleton.Reinject(replacements)
}
