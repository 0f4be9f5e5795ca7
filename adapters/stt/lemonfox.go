// Package stt provides Transcriber adapters for remote speech-to-text
// services: the Lemonfox whisper API and Google Cloud Speech.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/audioio"
	"github.com/satriahrh/swara/repository"
)

const (
	defaultLemonfoxBaseURL = "https://api.lemonfox.ai/v1"
	defaultLemonfoxModel   = "whisper-1"
	defaultTimeout         = 120 * time.Second
	defaultMaxRetries      = 3
	defaultRetryBackoff    = 2 * time.Second

	// paddingMillis of silence framed onto both chunk ends before
	// submission. Returned timestamps are relative to the padded audio and
	// are corrected before leaving this package.
	paddingMillis = 100
)

// LemonfoxConfig holds configuration for the Lemonfox transcription client.
// Required fields:
// - APIKey: Your Lemonfox API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Lemonfox API (default: "https://api.lemonfox.ai/v1")
// - Model: The recognition model (default: "whisper-1")
// - Timeout: Per-call HTTP timeout (default: 120s)
// - MaxRetries: Retry budget for transient failures (default: 3; zero means
//   unset and selects the default — the client always retries transient
//   failures at least once)
// - RetryBackoff: Base delay between retries, grows linearly (default: 2s)
type LemonfoxConfig struct {
	APIKey       string
	APIBaseURL   string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// ValidateLemonfoxConfig validates the LemonfoxConfig.
func ValidateLemonfoxConfig(config LemonfoxConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("lemonfox API key is required")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", config.MaxRetries)
	}
	return nil
}

// NewLemonfoxConfigFromEnv creates a LemonfoxConfig from environment variables.
func NewLemonfoxConfigFromEnv() LemonfoxConfig {
	config := LemonfoxConfig{
		APIKey:     os.Getenv("LEMONFOX_API_KEY"),
		APIBaseURL: os.Getenv("LEMONFOX_API_BASE_URL"),
		Model:      os.Getenv("LEMONFOX_MODEL"),
	}
	if retriesStr := os.Getenv("LEMONFOX_MAX_RETRIES"); retriesStr != "" {
		if retries, err := strconv.Atoi(retriesStr); err == nil && retries >= 0 {
			config.MaxRetries = retries
		}
	}
	if timeoutStr := os.Getenv("LEMONFOX_TIMEOUT_SECONDS"); timeoutStr != "" {
		if seconds, err := strconv.Atoi(timeoutStr); err == nil && seconds > 0 {
			config.Timeout = time.Duration(seconds) * time.Second
		}
	}
	return config
}

// LemonfoxClient implements the Transcriber interface against the Lemonfox
// whisper API. Each chunk is framed as a self-contained WAV file,
// peak-normalized and padded with silence, then submitted as a multipart
// request. Transient failures are retried within the configured budget.
type LemonfoxClient struct {
	apiKey       string
	apiBaseURL   string
	model        string
	maxRetries   int
	retryBackoff time.Duration
	client       *http.Client
	logger       *zap.Logger
}

// Ensure LemonfoxClient implements the Transcriber interface
var _ repository.Transcriber = (*LemonfoxClient)(nil)

// NewLemonfoxClient creates a new Lemonfox transcription client.
func NewLemonfoxClient(config LemonfoxConfig, logger *zap.Logger) (*LemonfoxClient, error) {
	if err := ValidateLemonfoxConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultLemonfoxBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultLemonfoxModel
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	// Zero means unset, not retries-disabled; see LemonfoxConfig.
	maxRetries := config.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryBackoff := config.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = defaultRetryBackoff
	}

	return &LemonfoxClient{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		model:        model,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// lemonfoxResponse covers both successful reply shapes: a segment list with
// per-segment timing, or a flat text string with no timing at all.
type lemonfoxResponse struct {
	Segments []lemonfoxSegment `json:"segments"`
	Text     string            `json:"text"`
}

type lemonfoxSegment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker,omitempty"`
	SpeakerID *int    `json:"speaker_id,omitempty"`
}

// Transcribe submits one chunk and normalizes the reply into raw segments.
func (c *LemonfoxClient) Transcribe(ctx context.Context, chunk *entities.AudioChunk, opts entities.RecognitionOptions) ([]entities.RawSegment, error) {
	samples := audioio.PeakNormalize(chunk.Samples)
	samples = audioio.PadSilence(samples, chunk.SampleRate, paddingMillis)
	wav := audioio.EncodeWAV(samples, chunk.SampleRate)

	body, contentType, err := c.buildRequestBody(wav, opts)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying transcription",
				zap.Int("chunk", chunk.Sequence),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			if err := sleepBackoff(ctx, time.Duration(attempt)*c.retryBackoff); err != nil {
				return nil, lastErr
			}
		}

		segments, err := c.call(ctx, chunk, body, contentType)
		if err == nil {
			return segments, nil
		}
		lastErr = err

		var terr *repository.TranscriptionError
		if !errors.As(err, &terr) || !terr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *LemonfoxClient) call(ctx context.Context, chunk *entities.AudioChunk, body []byte, contentType string) ([]entities.RawSegment, error) {
	url := c.apiBaseURL + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &repository.TranscriptionError{
			Kind:    repository.ErrorKindServiceUnavailable,
			Message: "transcription request failed",
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &repository.TranscriptionError{
			Kind:    repository.ErrorKindServiceUnavailable,
			Message: fmt.Sprintf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody))),
		}
	}

	var reply lemonfoxResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, &repository.TranscriptionError{
			Kind:    repository.ErrorKindMalformedReply,
			Message: "unparseable reply body",
			Cause:   err,
		}
	}

	return c.normalize(chunk, &reply), nil
}

// buildRequestBody assembles the multipart submission once; retries reuse the
// same bytes.
func (c *LemonfoxClient) buildRequestBody(wav []byte, opts entities.RecognitionOptions) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":                c.model,
		"auto_detect_language": strconv.FormatBool(opts.AutoDetectLanguage),
		"diarization":          "true",
		"diarization_speakers": strconv.Itoa(opts.SpeakerCount),
		"speaker_count":        strconv.Itoa(opts.SpeakerCount),
		"temperature":          "0.0",
		"best_of":              "5",
		"beam_size":            "5",
		"response_format":      "verbose_json",
	}
	if opts.Prompt != "" {
		fields["prompt"] = opts.Prompt
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// normalize converts either reply shape into chunk-relative raw segments.
// Timestamps come back relative to the padded audio, so the leading padding
// is subtracted here; negative results mean speech inside the padding and
// clamp to zero.
func (c *LemonfoxClient) normalize(chunk *entities.AudioChunk, reply *lemonfoxResponse) []entities.RawSegment {
	padding := float64(paddingMillis) / 1000.0

	if len(reply.Segments) > 0 {
		segments := make([]entities.RawSegment, 0, len(reply.Segments))
		for _, seg := range reply.Segments {
			start := seg.Start - padding
			if start < 0 {
				start = 0
			}
			end := seg.End - padding
			if end < start {
				end = start
			}
			segments = append(segments, entities.RawSegment{
				Start:     start,
				End:       end,
				Text:      strings.TrimSpace(seg.Text),
				SpeakerID: speakerIdentifier(seg),
			})
		}
		return segments
	}

	// Flat-text reply: one segment spanning the whole chunk, no speaker.
	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return nil
	}
	return []entities.RawSegment{{
		Start: 0,
		End:   chunk.Duration(),
		Text:  text,
	}}
}

// speakerIdentifier extracts the raw speaker identifier with a fixed
// precedence: the numeric speaker_id field first, then a trailing number in
// the speaker label ("SPEAKER_01" is identifier 1). Anything else means no
// identifier.
func speakerIdentifier(seg lemonfoxSegment) *int {
	if seg.SpeakerID != nil {
		return seg.SpeakerID
	}
	if seg.Speaker == "" {
		return nil
	}
	digits := strings.TrimLeftFunc(seg.Speaker, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if digits == "" {
		return nil
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &id
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
