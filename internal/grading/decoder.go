package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sitegrade/sitegrade/internal/grade"
)

// Frame is one newline-delimited unit of the grading stream. Result is the
// provider's best-effort serialization of the whole record-so-far, not a
// diff.
type Frame struct {
	Result grade.Report `json:"result"`
}

// ErrEmptyFrame marks a blank line between frames.
var ErrEmptyFrame = errors.New("empty frame")

// DecodeFrame parses one transport line. Callers route decode errors to a
// log sink and keep reading; a malformed frame is never fatal to the stream.
func DecodeFrame(line []byte) (Frame, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	var f Frame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
