package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/repository"
)

// GoogleClient implements the Transcriber interface using Google Cloud
// Speech-to-Text with speaker diarization. Word-level speaker tags are folded
// into speaker-contiguous raw segments. Credentials come from the ambient
// Google application default credentials.
type GoogleClient struct {
	client   *speech.Client
	language string
	logger   *zap.Logger
}

// Ensure GoogleClient implements the Transcriber interface
var _ repository.Transcriber = (*GoogleClient)(nil)

// NewGoogleClient creates a Google Cloud Speech transcription client.
// language may be empty; it defaults to "en-US".
func NewGoogleClient(ctx context.Context, language string, logger *zap.Logger) (*GoogleClient, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleClient{client: client, language: language, logger: logger}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleClient) Close() error {
	return g.client.Close()
}

// Transcribe submits one chunk via the non-streaming Recognize call.
func (g *GoogleClient) Transcribe(ctx context.Context, chunk *entities.AudioChunk, opts entities.RecognitionOptions) ([]entities.RawSegment, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(chunk.SampleRate),
			LanguageCode:               g.language,
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          int32(opts.SpeakerCount),
				MaxSpeakerCount:          int32(opts.SpeakerCount),
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: pcmBytes(chunk.Samples),
			},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return nil, &repository.TranscriptionError{
			Kind:    repository.ErrorKindServiceUnavailable,
			Message: "google speech recognize failed",
			Cause:   err,
		}
	}

	segments := wordsToSegments(resp)
	g.logger.Debug("google transcription completed",
		zap.Int("chunk", chunk.Sequence),
		zap.Int("segments", len(segments)))
	return segments, nil
}

// wordsToSegments groups consecutive words with the same speaker tag into one
// raw segment. Diarized word info lives on the last result; earlier results
// only carry interim transcripts, so words win when present.
func wordsToSegments(resp *speechpb.RecognizeResponse) []entities.RawSegment {
	var words []*speechpb.WordInfo
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if w := result.Alternatives[0].Words; len(w) > 0 {
			words = w
		}
	}

	if len(words) == 0 {
		// No word-level info: one segment per result transcript.
		var segments []entities.RawSegment
		var offset float64
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			text := strings.TrimSpace(result.Alternatives[0].Transcript)
			if text == "" {
				continue
			}
			end := offset
			if result.ResultEndTime != nil {
				end = result.ResultEndTime.AsDuration().Seconds()
			}
			segments = append(segments, entities.RawSegment{Start: offset, End: end, Text: text})
			offset = end
		}
		return segments
	}

	var segments []entities.RawSegment
	var current *entities.RawSegment
	var parts []string
	flush := func() {
		if current != nil {
			current.Text = strings.Join(parts, " ")
			segments = append(segments, *current)
			current = nil
			parts = nil
		}
	}

	for _, word := range words {
		start := word.StartTime.AsDuration().Seconds()
		end := word.EndTime.AsDuration().Seconds()
		// Google speaker tags are 1-based; identifiers are 0-based.
		id := int(word.SpeakerTag) - 1
		if id < 0 {
			id = 0
		}

		if current == nil || *current.SpeakerID != id {
			flush()
			speakerID := id
			current = &entities.RawSegment{Start: start, End: end, SpeakerID: &speakerID}
		}
		current.End = end
		parts = append(parts, word.Word)
	}
	flush()
	return segments
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
