package workflowdebug

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
)

// DetailsKey is the entry field printed as indented JSON inside a frame.
const DetailsKey = "details"

// FramingFormatter surrounds entries whose message contains Marker with rule
// lines. Every other entry is rendered by Inner unchanged.
type FramingFormatter struct {
	Marker string
	Width  int
	Inner  logrus.Formatter
}

func (f *FramingFormatter) Format(e *logrus.Entry) ([]byte, error) {
	if f.Marker == "" || !strings.Contains(e.Message, f.Marker) {
		return f.Inner.Format(e)
	}

	details, hasDetails := e.Data[DetailsKey]

	// render the line without the details field; it gets its own block
	data := make(logrus.Fields, len(e.Data))
	for k, v := range e.Data {
		if k != DetailsKey {
			data[k] = v
		}
	}
	line, err := f.Inner.Format(&logrus.Entry{
		Logger:  e.Logger,
		Data:    data,
		Time:    e.Time,
		Level:   e.Level,
		Caller:  e.Caller,
		Message: e.Message,
		Context: e.Context,
	})
	if err != nil {
		return nil, err
	}

	rule := strings.Repeat("=", f.width()) + "\n"

	var buf bytes.Buffer
	buf.WriteString(rule)
	buf.Write(line)
	if hasDetails {
		b, err := json.MarshalIndent(details, "", "  ")
		if err != nil {
			return nil, err
		}
		buf.WriteString("Details: ")
		buf.Write(b)
		buf.WriteByte('\n')
	}
	buf.WriteString(rule)

	return buf.Bytes(), nil
}

func (f *FramingFormatter) width() int {
	if f.Width <= 0 {
		return 60
	}
	return f.Width
}
