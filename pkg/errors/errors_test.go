package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{New(ErrFileNotFound, "reference-loader", "events.csv.gz"), ExitFileNotFound},
		{fmt.Errorf("wrapped: %w", New(ErrParse, "", "x")), ExitParse},
		{New(ErrKeyNotFound, "feature-encoder", "ad_id 9"), ExitKeyNotFound},
		{New(ErrRowCountMismatch, "ranker", "3 vs 4"), ExitRowCountMismatch},
		{New(ErrInvalidInput, "evaluate", "too many arguments"), ExitInvalidInput},
		{New(ErrSink, "results", "redis down"), ExitSink},
		{errors.New("disk full"), ExitInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := Newf(ErrParse, "reference-loader", "%s:%d column %d", "events.csv.gz", 7, 2)
	assert.Equal(t, "reference-loader: parse error: events.csv.gz:7 column 2", err.Error())
	assert.ErrorIs(t, err, ErrParse)

	bare := New(ErrFileNotFound, "", "leak.csv.gz")
	assert.Equal(t, "file not found: leak.csv.gz", bare.Error())
}

func TestWithStage(t *testing.T) {
	assert.NoError(t, WithStage(nil, "ranker"))

	bare := New(ErrFileNotFound, "", "output")
	err := WithStage(bare, "ranker")
	assert.Equal(t, "ranker: file not found: output", err.Error())

	stamped := New(ErrParse, "reference-loader", "x")
	assert.Equal(t, "reference-loader", WithStage(stamped, "ranker").(*AppError).Stage)

	plain := WithStage(errors.New("short write"), "ranker")
	assert.Equal(t, "ranker: short write", plain.Error())
}
