package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"grix-mcp/internal/config"
	"grix-mcp/internal/logsink"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type captureUploader struct {
	bodies []string
}

func (u *captureUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(in.Body); err != nil {
		return nil, err
	}
	u.bodies = append(u.bodies, buf.String())
	return &manager.UploadOutput{}, nil
}

func TestNewLoggerWithoutBucket(t *testing.T) {
	_, closeLogs := newLogger(context.Background(), &config.Config{LogLevel: "info"})
	closeLogs()
}

func TestNewLoggerTeesIntoSink(t *testing.T) {
	uploader := &captureUploader{}
	origNewSink := newLogSinkFunc
	newLogSinkFunc = func(_ context.Context, _ string, cfg logsink.Config, log zerolog.Logger) (*logsink.Sink, error) {
		return logsink.New(uploader, cfg, log), nil
	}
	defer func() { newLogSinkFunc = origNewSink }()

	logger, closeLogs := newLogger(context.Background(), &config.Config{
		LogLevel:           "info",
		LogBucket:          "grix-logs",
		LogFlushSecs:       300,
		LogFlushMaxEntries: 100,
	})
	logger.Info().Msg("hello sink")
	closeLogs()

	if len(uploader.bodies) != 1 || !strings.Contains(uploader.bodies[0], "hello sink") {
		t.Fatalf("expected final flush to upload the log line, got %v", uploader.bodies)
	}
}

func TestNewLoggerFallsBackWhenSinkFails(t *testing.T) {
	origNewSink := newLogSinkFunc
	newLogSinkFunc = func(context.Context, string, logsink.Config, zerolog.Logger) (*logsink.Sink, error) {
		return nil, errors.New("no credentials")
	}
	defer func() { newLogSinkFunc = origNewSink }()

	_, closeLogs := newLogger(context.Background(), &config.Config{LogLevel: "info", LogBucket: "grix-logs"})
	closeLogs()
}
