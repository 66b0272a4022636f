package logsink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	DefaultFlushInterval = 5 * time.Minute
	DefaultMaxEntries    = 100

	// buffered entries beyond maxEntries*retainFactor are dropped oldest-first
	retainFactor = 50
	flushTimeout = 30 * time.Second
)

// Uploader is the subset of manager.Uploader the sink needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Config struct {
	Bucket        string
	FlushInterval time.Duration
	MaxEntries    int
}

// Sink buffers JSON log lines and ships them to S3 as one object per flush
// under logs/YYYY/M/D/<unix millis>.json. A failed upload keeps the buffer
// for the next attempt.
type Sink struct {
	uploader Uploader
	bucket   string
	interval time.Duration
	max      int
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	entries [][]byte
	dropped int

	flushMu sync.Mutex
	cron    *cron.Cron
	kick    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New builds a sink. log receives the sink's own diagnostics and must not
// write back into the sink.
func New(uploader Uploader, cfg Config, log zerolog.Logger) *Sink {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Sink{
		uploader: uploader,
		bucket:   cfg.Bucket,
		interval: cfg.FlushInterval,
		max:      cfg.MaxEntries,
		now:      time.Now,
		log:      log.With().Str("component", "log_sink").Str("bucket", cfg.Bucket).Logger(),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// NewS3 resolves AWS credentials from the default chain.
func NewS3(ctx context.Context, region string, cfg Config, log zerolog.Logger) (*Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	return New(uploader, cfg, log), nil
}

// Write buffers one log line. It never blocks on the network; reaching
// MaxEntries signals the background flusher.
func (s *Sink) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	if len(line) == 0 {
		return len(p), nil
	}
	entry := make([]byte, len(line))
	copy(entry, line)

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if limit := s.max * retainFactor; len(s.entries) > limit {
		over := len(s.entries) - limit
		s.entries = s.entries[over:]
		s.dropped += over
	}
	full := len(s.entries) >= s.max
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush uploads everything buffered so far as a single object.
func (s *Sink) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.entries
	s.entries = nil
	dropped := s.dropped
	s.dropped = 0
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	now := s.now().UTC()
	key := ObjectKey(now)
	body := bytes.Join(batch, []byte("\n"))

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.mu.Lock()
		s.entries = append(batch, s.entries...)
		s.dropped += dropped
		s.mu.Unlock()
		s.log.Error().Err(err).Int("entries", len(batch)).Msg("Failed to upload logs, keeping buffer for retry")
		return fmt.Errorf("upload %s: %w", key, err)
	}

	ev := s.log.Debug().Str("key", key).Int("entries", len(batch))
	if dropped > 0 {
		ev = ev.Int("dropped", dropped)
	}
	ev.Msg("Logs shipped")
	return nil
}

// Start schedules the periodic flush and the size-triggered flusher.
func (s *Sink) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.flushInBackground); err != nil {
		return fmt.Errorf("schedule log flush: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case <-s.kick:
				s.flushInBackground()
			}
		}
	}()
	s.log.Info().Dur("interval", s.interval).Int("max_entries", s.max).Msg("Log sink started")
	return nil
}

func (s *Sink) flushInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	_ = s.Flush(ctx)
}

// Close stops scheduling and performs a final flush.
func (s *Sink) Close(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		close(s.done)
		s.wg.Wait()
		s.cron = nil
	}
	return s.Flush(ctx)
}

// ObjectKey uses unpadded UTC month and day.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("logs/%d/%d/%d/%d.json", t.Year(), int(t.Month()), t.Day(), t.UnixMilli())
}
