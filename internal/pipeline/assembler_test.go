package pipeline

import (
	"testing"

	"github.com/satriahrh/swara/domain/entities"
)

func chunkAt(sequence int, offset float64) *entities.AudioChunk {
	return &entities.AudioChunk{
		Sequence:    sequence,
		StartOffset: offset,
		SampleRate:  entities.DefaultSampleRate,
		Samples:     make([]int16, 30*entities.DefaultSampleRate),
	}
}

func TestAssemblerHoldsOutOfOrderResults(t *testing.T) {
	transcript := entities.NewTranscript()
	assembler := NewAssembler(transcript, NewSpeakerTracker())

	late := &ChunkResult{
		Chunk: chunkAt(1, 30),
		Segments: []entities.RawSegment{
			{Start: 0.5, End: 2.0, Text: "second chunk", SpeakerID: intPtr(0)},
		},
	}
	emissions, err := assembler.Add(late)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(emissions) != 0 {
		t.Fatalf("Chunk 1 released before chunk 0: %v", emissions)
	}
	if assembler.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", assembler.Pending())
	}

	first := &ChunkResult{
		Chunk: chunkAt(0, 0),
		Segments: []entities.RawSegment{
			{Start: 1.0, End: 3.0, Text: "first chunk", SpeakerID: intPtr(0)},
		},
	}
	emissions, err = assembler.Add(first)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(emissions) != 2 {
		t.Fatalf("Expected both chunks released, got %d emissions", len(emissions))
	}
	if emissions[0].Sequence != 0 || emissions[1].Sequence != 1 {
		t.Errorf("Emission order = %d,%d, want 0,1", emissions[0].Sequence, emissions[1].Sequence)
	}

	segments := transcript.Segments()
	if len(segments) != 2 {
		t.Fatalf("Transcript has %d segments, want 2", len(segments))
	}
	if segments[0].Start != 1.0 || segments[1].Start != 30.5 {
		t.Errorf("Segment starts = %v, %v, want 1.0, 30.5", segments[0].Start, segments[1].Start)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].Start {
			t.Errorf("Transcript ordering violated at %d: %v < %v",
				i, segments[i].Start, segments[i-1].Start)
		}
	}
}

func TestAssemblerRebasesChunkLocalTimes(t *testing.T) {
	transcript := entities.NewTranscript()
	assembler := NewAssembler(transcript, NewSpeakerTracker())

	emissions, err := assembler.Add(&ChunkResult{
		Chunk: chunkAt(0, 60),
		Segments: []entities.RawSegment{
			{Start: 2.5, End: 4.0, Text: "hello", SpeakerID: intPtr(0)},
		},
	})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(emissions) != 1 || len(emissions[0].Segments) != 1 {
		t.Fatalf("Unexpected emissions: %v", emissions)
	}
	seg := emissions[0].Segments[0]
	if seg.Start != 62.5 || seg.End != 64.0 {
		t.Errorf("Segment = [%v,%v], want [62.5,64.0]", seg.Start, seg.End)
	}
}

func TestAssemblerFailureEmittedInOrder(t *testing.T) {
	transcript := entities.NewTranscript()
	assembler := NewAssembler(transcript, NewSpeakerTracker())

	failure := &entities.ChunkFailure{Sequence: 0, Start: 0, End: 30, Kind: "service_unavailable"}
	if _, err := assembler.Add(&ChunkResult{Chunk: chunkAt(1, 30), Segments: []entities.RawSegment{
		{Start: 0, End: 1, Text: "after the gap", SpeakerID: intPtr(0)},
	}}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	emissions, err := assembler.Add(&ChunkResult{Chunk: chunkAt(0, 0), Failure: failure})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(emissions) != 2 {
		t.Fatalf("Expected 2 emissions, got %d", len(emissions))
	}
	if emissions[0].Failure == nil || emissions[0].Failure.Sequence != 0 {
		t.Errorf("First emission should be the chunk 0 failure, got %+v", emissions[0])
	}
	if emissions[1].Failure != nil {
		t.Errorf("Second emission should carry segments, got failure %+v", emissions[1].Failure)
	}
	if transcript.Len() != 1 {
		t.Errorf("Transcript has %d segments, want 1", transcript.Len())
	}
}

func TestAssemblerDropsEmptyText(t *testing.T) {
	transcript := entities.NewTranscript()
	assembler := NewAssembler(transcript, NewSpeakerTracker())

	emissions, err := assembler.Add(&ChunkResult{
		Chunk: chunkAt(0, 0),
		Segments: []entities.RawSegment{
			{Start: 0, End: 1, Text: "   ", SpeakerID: intPtr(0)},
			{Start: 1, End: 2, Text: "", SpeakerID: intPtr(0)},
		},
	})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(emissions) != 0 {
		t.Errorf("Blank segments should not emit, got %v", emissions)
	}
	if transcript.Len() != 0 {
		t.Errorf("Transcript has %d segments, want 0", transcript.Len())
	}
}

func TestAssemblerFloorsBoundarySpillingTimestamps(t *testing.T) {
	transcript := entities.NewTranscript()
	assembler := NewAssembler(transcript, NewSpeakerTracker())

	if _, err := assembler.Add(&ChunkResult{
		Chunk: chunkAt(0, 0),
		Segments: []entities.RawSegment{
			{Start: 29.0, End: 31.0, Text: "tail", SpeakerID: intPtr(0)},
		},
	}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	// Service timestamps spilling before the chunk start must not break
	// global ordering once rebased.
	if _, err := assembler.Add(&ChunkResult{
		Chunk: chunkAt(1, 30),
		Segments: []entities.RawSegment{
			{Start: -1.5, End: 0.5, Text: "head", SpeakerID: intPtr(0)},
		},
	}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	segments := transcript.Segments()
	if len(segments) != 2 {
		t.Fatalf("Transcript has %d segments, want 2", len(segments))
	}
	if segments[1].Start < segments[0].Start {
		t.Errorf("Ordering violated: %v after %v", segments[1].Start, segments[0].Start)
	}
}
