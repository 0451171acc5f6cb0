package subtitle

import (
	"testing"
	"time"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SRT(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,500\nHello\nthere\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n"

	file, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, KindSRT, file.Kind)
	require.Len(t, file.Cues, 2)

	first := file.Cues[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, time.Second, first.StartTime)
	assert.Equal(t, 2500*time.Millisecond, first.EndTime)
	assert.Equal(t, "Hello\nthere", first.Text)
	assert.Equal(t, "Hello\nthere", content[first.Body.Start:first.Body.End])
	assert.Equal(t, 2, first.Line)

	assert.Equal(t, "World", file.Cues[1].Text)
	assert.Equal(t, 1, file.Cues[1].Ordinal)
}

func TestParse_SRTWithCRLFAndBOM(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHi\r\nyou\r\n\r\n"

	file, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, file.Cues, 1)
	assert.Equal(t, "1", file.Cues[0].ID)
	assert.Equal(t, "\r\n", file.Cues[0].Newline)
	assert.Equal(t, "Hi\nyou", file.Cues[0].Text)
	assert.Equal(t, "Hi\r\nyou", content[file.Cues[0].Body.Start:file.Cues[0].Body.End])
}

func TestParse_VTT(t *testing.T) {
	content := "WEBVTT - demo\n\nNOTE translator comment\n\nSTYLE\n::cue { color: red }\n\nintro\n00:01.000 --> 00:02.000 align:start\nWelcome\n\n00:00:03.000 --> 00:00:04.000\nBye\n"

	file, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, KindVTT, file.Kind)
	require.Len(t, file.Cues, 2)
	assert.Equal(t, "intro", file.Cues[0].ID)
	assert.Equal(t, time.Second, file.Cues[0].StartTime)
	assert.Equal(t, "00:01.000 --> 00:02.000 align:start", file.Cues[0].Timing)
	assert.Equal(t, "", file.Cues[1].ID)

	require.Len(t, file.Notes, 1)
	assert.Equal(t, "translator comment", file.Notes[0].Text)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{name: "missing timing", content: "1\nHello\n", line: 1},
		{name: "bad timestamp", content: "1\n00:00:01,000 --> 00:61:02,000\nHello\n", line: 2},
		{name: "stray block", content: "00:01.000 --> 00:02.000\nHi\n\nWEBVTT\n", line: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindParse))
			if tt.line > 0 {
				var appErr *apperr.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.line, appErr.Context["line"])
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	d := time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond
	assert.Equal(t, "01:02:03,045", FormatTimestamp(d, KindSRT))
	assert.Equal(t, "01:02:03.045", FormatTimestamp(d, KindVTT))
}
