package repository

import "github.com/satriahrh/swara/domain/entities"

// TranscriptSink receives assembled segments in transcript order. Sinks are
// presentation details (a text file, a websocket fan-out); the pipeline only
// requires that Append is called with segments in non-decreasing start order.
type TranscriptSink interface {
	Append(segments ...entities.Segment) error
	Close() error
}
