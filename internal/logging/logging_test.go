package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vnykmshr/boundchan/internal/testutil"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{"", logrus.InfoLevel, false},
		{"info", logrus.InfoLevel, false},
		{"DEBUG", logrus.DebugLevel, false},
		{"trace", logrus.TraceLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"loud", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				testutil.AssertError(t, err)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "info", FormatJSON)
	testutil.AssertNoError(t, err)

	logger.WithField("channel", "jobs").Info("drained")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	testutil.AssertEqual(t, len(lines), 1)

	var entry map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	testutil.AssertEqual(t, entry["msg"], interface{}("drained"))
	testutil.AssertEqual(t, entry["channel"], interface{}("jobs"))
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "debug", "")
	testutil.AssertNoError(t, err)

	logger.Debug("visible")
	testutil.AssertTrue(t, strings.Contains(buf.String(), "msg=visible"), "text output: "+buf.String())
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("info", "xml")
	testutil.AssertError(t, err)

	_, err = New("chatty", FormatText)
	testutil.AssertError(t, err)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nowhere")
	testutil.AssertEqual(t, logger.GetLevel(), logrus.PanicLevel)
}
