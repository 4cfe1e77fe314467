package ws2md

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "every forwarded construct",
			input: "..remark\n.he Title\n.h4 Sub\n.fi part2.ws\n.lm 8\nindented\n.lm\n.pa\n\x0C\nplain\x02bold\x19both\x02\x19\n\x1A",
		},
		{
			name:  "ignored commands and control noise",
			input: "\x00\x01.oc on\nA\x00B\x09C\n.f2 footer\nx\x0C\n",
		},
		{
			name:  "styled text that starts with a dot",
			input: "\x02intro\n.not a command\n\x02.pa\n",
		},
		{
			name:  "dot text behind form feeds",
			input: "abc\x0C.pa\nx\x0C..c\n\x0C.fi a.ws\n",
		},
		{
			name:  "modifier state spans lines",
			input: "\x13under\nstill under\x13 done\n\n\x19\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			first, err := Classify([]byte(tc.input), ClassifyOptions{})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, first))

			second, err := Classify(buf.Bytes(), ClassifyOptions{})
			require.NoError(t, err, "re-encoded input %q", buf.String())
			require.Equal(t, stripPositions(first), stripPositions(second))

			// the minimal form is a fixed point
			var again bytes.Buffer
			require.NoError(t, Encode(&again, second))
			require.Equal(t, buf.String(), again.String())
		})
	}
}

func TestEncodeMinimalForm(t *testing.T) {
	events := []Event{
		{Kind: EventHeading, Level: 2, Text: "Head"},
		{Kind: EventDotCommand, Command: &DotCommand{Kind: DotLeftMargin, Margin: intPtr(3)}},
		{Kind: EventText, Runs: []Run{{Text: "a", Style: StylePlain}, {Text: "b", Style: StyleBold}}},
		{Kind: EventText, Runs: []Run{{Text: "c", Style: StylePlain}}},
		{Kind: EventEOF},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, events))
	require.Equal(t, ".h2 Head\n.lm 3\na\x02b\n\x02c\n\x1A", buf.String())
}

func TestEncodeRejectsBadEvents(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Encode(&buf, []Event{{Kind: EventHeading, Level: 9, Text: "x"}}))
	require.Error(t, Encode(&buf, []Event{{Kind: EventDotCommand}}))
}
