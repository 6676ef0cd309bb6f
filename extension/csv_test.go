package extension_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reugn/procstat"
	"github.com/reugn/procstat/extension"
	"github.com/reugn/procstat/internal/assert"
	"github.com/reugn/procstat/internal/ospkg"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type bufferCloser struct {
	bytes.Buffer
	closed   int
	failFrom int // fail writes once the buffer holds this many bytes
}

func (b *bufferCloser) Write(p []byte) (int, error) {
	if b.failFrom > 0 && b.Len() >= b.failFrom {
		return 0, io.ErrClosedPipe
	}
	return b.Buffer.Write(p)
}

func (b *bufferCloser) Close() error {
	b.closed++
	return nil
}

func testSample() procstat.Sample {
	return procstat.Sample{
		Time:         time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.Local),
		CPUUsage:     12.25,
		WorkingSet:   1 << 20,
		PrivateBytes: 1 << 19,
		HandleCount:  42,
	}
}

func TestCsvSink_File(t *testing.T) {
	tests := []struct {
		name      string
		delimiter rune
	}{
		{"default", 0},
		{"semicolon", ';'},
		{"comma", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileName := filepath.Join(t.TempDir(), "out.csv")
			opts := []extension.Opt{
				extension.WithLogger(discardLogger),
				extension.WithHeader([]string{"/usr/bin/app"}, procstat.Header()),
			}
			sep := ";"
			if tt.delimiter != 0 {
				opts = append(opts, extension.WithDelimiter(tt.delimiter))
				sep = string(tt.delimiter)
			}

			sink, err := extension.NewCsvSink(fileName, opts...)
			assert.NoError(t, err)
			assert.Equal(t, fileName, sink.Name())

			assert.NoError(t, sink.Append(testSample().Record()))
			assert.NoError(t, sink.Append(testSample().Record()))
			assert.Equal(t, 2, sink.Rows())
			assert.NoError(t, sink.Close())

			data, err := os.ReadFile(fileName)
			assert.NoError(t, err)

			row := strings.Join([]string{"2024-03-01 12:30:45.123", "12.25", "1048576", "524288", "42"}, sep)
			expected := strings.Join([]string{
				"sep=" + sep,
				"/usr/bin/app",
				strings.Join(procstat.Header(), sep),
				row,
				row,
				"",
			}, ospkg.NewLine)
			assert.Equal(t, expected, string(data))
		})
	}
}

func TestCsvSink_RowIsFlushedOnAppend(t *testing.T) {
	buf := &bufferCloser{}
	sink, err := extension.NewCsvWriterSink(buf, extension.WithLogger(discardLogger))
	assert.NoError(t, err)
	assert.Equal(t, "writer", sink.Name())
	assert.Equal(t, "sep=;"+ospkg.NewLine, buf.String())

	assert.NoError(t, sink.Append([]string{"a", "b;c"}))
	assert.Equal(t, "sep=;"+ospkg.NewLine+"a;\"b;c\""+ospkg.NewLine, buf.String())
}

func TestCsvSink_UnsupportedDelimiter(t *testing.T) {
	for _, delimiter := range []rune{'\t', '|', '"', '\n'} {
		fileName := filepath.Join(t.TempDir(), "out.csv")
		_, err := extension.NewCsvSink(fileName,
			extension.WithDelimiter(delimiter),
			extension.WithLogger(discardLogger))
		assert.ErrorIs(t, err, procstat.ErrSink)
		assert.ErrorContains(t, err, "unsupported delimiter")

		// the file is not created
		_, statErr := os.Stat(fileName)
		assert.True(t, os.IsNotExist(statErr), "file should not exist")

		buf := &bufferCloser{}
		_, err = extension.NewCsvWriterSink(buf, extension.WithDelimiter(delimiter))
		assert.ErrorIs(t, err, procstat.ErrSink)
		assert.Equal(t, 0, buf.Len())
	}
}

func TestCsvSink_OpenFailure(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "missing", "out.csv")
	sink, err := extension.NewCsvSink(fileName, extension.WithLogger(discardLogger))
	assert.ErrorIs(t, err, procstat.ErrSink)
	assert.ErrorContains(t, err, fileName)

	// closing a sink that never opened is safe
	assert.NoError(t, sink.Close())
}

func TestCsvSink_NilWriter(t *testing.T) {
	_, err := extension.NewCsvWriterSink(nil)
	assert.ErrorContains(t, err, "writer is nil")
}

func TestCsvSink_AppendAfterClose(t *testing.T) {
	buf := &bufferCloser{}
	sink, err := extension.NewCsvWriterSink(buf, extension.WithLogger(discardLogger))
	assert.NoError(t, err)

	assert.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
	assert.Equal(t, 1, buf.closed)

	err = sink.Append(testSample().Record())
	assert.ErrorIs(t, err, procstat.ErrSink)
	assert.ErrorIs(t, err, procstat.ErrSinkClosed)
	assert.Equal(t, 0, sink.Rows())
}

func TestCsvSink_WriteFailure(t *testing.T) {
	buf := &bufferCloser{failFrom: 1}
	sink, err := extension.NewCsvWriterSink(buf, extension.WithLogger(discardLogger))
	assert.NoError(t, err)

	err = sink.Append(testSample().Record())
	assert.ErrorIs(t, err, procstat.ErrSink)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 0, sink.Rows())

	// the pending write error surfaces on close too
	assert.ErrorIs(t, sink.Close(), procstat.ErrSink)
	assert.Equal(t, 1, buf.closed)
}

func TestCsvSink_HeaderWriteFailure(t *testing.T) {
	buf := &bufferCloser{failFrom: 1}
	_, err := extension.NewCsvWriterSink(buf,
		extension.WithHeader(procstat.Header()),
		extension.WithLogger(discardLogger))
	assert.ErrorIs(t, err, procstat.ErrSink)
	assert.Equal(t, 1, buf.closed)
}
