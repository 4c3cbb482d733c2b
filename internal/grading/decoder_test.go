package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	t.Parallel()

	frame, err := DecodeFrame([]byte(`{"result":{"overall_score":82,"grade_letter":"A"}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Result.OverallScore)
	assert.Equal(t, 82, *frame.Result.OverallScore)
	assert.EqualValues(t, "A", *frame.Result.GradeLetter)
}

func TestDecodeFrameEmptyLine(t *testing.T) {
	t.Parallel()

	_, err := DecodeFrame([]byte("   \t"))
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestDecodeFrameMalformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeFrame([]byte(`{"result": {"overall_score": 8`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyFrame)
}

func TestDecodeFramePartialRecord(t *testing.T) {
	t.Parallel()

	// Intermediate frames may violate the final schema; the decoder accepts
	// them as long as they are well-formed JSON.
	frame, err := DecodeFrame([]byte(`{"result":{"summary":"looking good so far"}}`))
	require.NoError(t, err)
	assert.Nil(t, frame.Result.OverallScore)
	assert.Equal(t, "looking good so far", *frame.Result.Summary)
}
