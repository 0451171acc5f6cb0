package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

const utf8BOM = "\ufeff"

// 00:02:16,612 --> 00:02:19,376 (SRT) or 02:16.612 --> 02:19.376 align:start (VTT)
var timingPattern = regexp.MustCompile(`^\s*((?:\d+:)?\d{1,2}:\d{2}[,.]\d{3})\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}[,.]\d{3})(?:\s+.*)?$`)

type rawLine struct {
	text    string // without terminator
	start   int
	end     int
	newline string
	number  int
}

// DetectKind returns KindVTT when content starts with the WEBVTT signature.
func DetectKind(content string) Kind {
	trimmed := strings.TrimLeft(strings.TrimPrefix(content, utf8BOM), " \t\r\n")
	if strings.HasPrefix(trimmed, "WEBVTT") {
		return KindVTT
	}
	return KindSRT
}

// Parse scans an SRT or WebVTT document. Malformed cues fail the whole parse.
func Parse(content string) (*File, error) {
	kind := DetectKind(content)
	file := &File{Kind: kind}

	blocks := splitBlocks(splitLines(content))
	for i, block := range blocks {
		first := strings.TrimSpace(block[0].text)
		if kind == KindVTT {
			if i == 0 {
				if !strings.HasPrefix(strings.TrimPrefix(first, utf8BOM), "WEBVTT") {
					return nil, parseError(block[0].number, "missing WEBVTT header")
				}
				continue
			}
			if isNoteHeader(first) {
				file.Notes = append(file.Notes, parseNote(content, block))
				continue
			}
			if strings.HasPrefix(first, "STYLE") || strings.HasPrefix(first, "REGION") {
				continue
			}
		}

		cue, err := parseCue(content, block, len(file.Cues))
		if err != nil {
			return nil, err
		}
		file.Cues = append(file.Cues, cue)
	}

	return file, nil
}

func parseCue(content string, block []rawLine, ordinal int) (Cue, error) {
	timingIdx := -1
	for i, line := range block {
		if strings.Contains(line.text, "-->") {
			timingIdx = i
			break
		}
	}
	if timingIdx < 0 {
		return Cue{}, parseError(block[0].number, "cue has no timing line")
	}
	if timingIdx > 1 {
		return Cue{}, parseError(block[0].number, "unexpected text before timing line")
	}

	timingLine := block[timingIdx]
	startTime, endTime, err := parseTiming(timingLine.text)
	if err != nil {
		return Cue{}, parseError(timingLine.number, err.Error())
	}

	cue := Cue{
		Ordinal:   ordinal,
		StartTime: startTime,
		EndTime:   endTime,
		Timing:    strings.TrimSpace(timingLine.text),
		Newline:   timingLine.newline,
		Line:      timingLine.number,
	}
	if cue.Newline == "" {
		cue.Newline = "\n"
	}
	if timingIdx == 1 {
		cue.ID = strings.TrimSpace(strings.TrimPrefix(block[0].text, utf8BOM))
	}

	body := block[timingIdx+1:]
	if len(body) > 0 {
		cue.Body = Span{Start: body[0].start, End: body[len(body)-1].end}
		cue.Text = joinText(content[cue.Body.Start:cue.Body.End])
	}
	return cue, nil
}

func parseNote(content string, block []rawLine) Note {
	note := Note{Line: block[0].number, Newline: block[0].newline}
	if note.Newline == "" {
		note.Newline = "\n"
	}

	header := block[0]
	rest := block[1:]
	switch {
	case len(strings.TrimSpace(header.text)) > len("NOTE"):
		// "NOTE some comment" keeps the text on the header line
		offset := strings.Index(header.text, "NOTE") + len("NOTE")
		for offset < len(header.text) && (header.text[offset] == ' ' || header.text[offset] == '\t') {
			offset++
		}
		note.Body = Span{Start: header.start + offset, End: block[len(block)-1].end}
	case len(rest) > 0:
		note.Body = Span{Start: rest[0].start, End: rest[len(rest)-1].end}
	default:
		return note
	}
	note.Text = joinText(content[note.Body.Start:note.Body.End])
	return note
}

func isNoteHeader(line string) bool {
	return line == "NOTE" || strings.HasPrefix(line, "NOTE ") || strings.HasPrefix(line, "NOTE\t")
}

func joinText(raw string) string {
	return strings.ReplaceAll(raw, "\r\n", "\n")
}

// splitLines splits content into lines, remembering offsets and terminators.
func splitLines(content string) []rawLine {
	var lines []rawLine
	pos := 0
	number := 1
	for pos < len(content) {
		idx := strings.IndexByte(content[pos:], '\n')
		line := rawLine{start: pos, number: number}
		if idx < 0 {
			line.end = len(content)
			pos = len(content)
		} else {
			line.end = pos + idx
			line.newline = "\n"
			pos += idx + 1
		}
		if line.end > line.start && content[line.end-1] == '\r' {
			line.end--
			line.newline = "\r" + line.newline
		}
		line.text = content[line.start:line.end]
		lines = append(lines, line)
		number++
	}
	return lines
}

// splitBlocks groups consecutive non-blank lines.
func splitBlocks(lines []rawLine) [][]rawLine {
	var blocks [][]rawLine
	var current []rawLine
	for _, line := range lines {
		if strings.TrimSpace(strings.TrimPrefix(line.text, utf8BOM)) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	matches := timingPattern.FindStringSubmatch(line)
	if len(matches) < 3 {
		return 0, 0, fmt.Errorf("invalid time format: %s", strings.TrimSpace(line))
	}

	startTime, err := parseTimestamp(matches[1])
	if err != nil {
		return 0, 0, err
	}
	endTime, err := parseTimestamp(matches[2])
	if err != nil {
		return 0, 0, err
	}
	return startTime, endTime, nil
}

// parseTimestamp accepts hh:mm:ss,mmm, hh:mm:ss.mmm and mm:ss.mmm.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.ReplaceAll(value, ",", ".")
	clock, millis, _ := strings.Cut(value, ".")
	parts := strings.Split(clock, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}

	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	s, errS := strconv.Atoi(parts[2])
	ms, errMS := strconv.Atoi(millis)
	if errH != nil || errM != nil || errS != nil || errMS != nil || m > 59 || s > 59 {
		return 0, fmt.Errorf("invalid timestamp: %s", value)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func parseError(line int, msg string) error {
	return apperr.New(apperr.KindParse, "invalid subtitle: %s", msg).
		WithContext("format", "subtitle").
		WithContext("line", line)
}
