// Defines progress reporting interfaces and implementations.

package fetch

import (
	"time"

	"github.com/worklens/worklens/internal/item"
)

// SourceFailure captures one source's failure without aborting siblings.
type SourceFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Progress is a snapshot of an in-flight fetch. Total is nil until the
// fetch completes, since sources report no counts up front.
type Progress struct {
	Loaded   int             `json:"loaded"`
	Total    *int            `json:"total,omitempty"`
	Items    []*item.Item    `json:"items,omitempty"`
	Done     bool            `json:"done"`
	Source   string          `json:"source,omitempty"`
	Failures []SourceFailure `json:"failures,omitempty"`
	Orphans  int             `json:"orphans,omitempty"`
}

// Stats summarizes a completed fetch.
type Stats struct {
	Items    int           `json:"items"`
	Sources  int           `json:"sources"`
	Failures int           `json:"failures"`
	Orphans  int           `json:"orphans"`
	Duration time.Duration `json:"duration"`
}

// Reporter is the interface for observing fetch progress.
type Reporter interface {
	OnStart(sources int)
	OnProgress(p Progress)
	OnError(err error)
	OnComplete(stats Stats)
}

// Update represents a progress update for channel-based reporting.
type Update struct {
	Type     string    `json:"type"` // "start", "progress", "error", "complete"
	Sources  int       `json:"sources,omitempty"`
	Progress *Progress `json:"progress,omitempty"`
	Message  string    `json:"message,omitempty"`
	Stats    *Stats    `json:"stats,omitempty"`
}

// ChannelReporter sends progress updates via a channel.
type ChannelReporter struct {
	Updates chan<- Update
}

// NewChannelReporter creates a channel-based reporter.
func NewChannelReporter(updates chan<- Update) *ChannelReporter {
	return &ChannelReporter{Updates: updates}
}

// OnStart is called when a fetch begins.
func (r *ChannelReporter) OnStart(sources int) {
	r.Updates <- Update{Type: "start", Sources: sources}
}

// OnProgress is called with each progress snapshot.
func (r *ChannelReporter) OnProgress(p Progress) {
	r.Updates <- Update{Type: "progress", Progress: &p}
}

// OnError is called once per failed source.
func (r *ChannelReporter) OnError(err error) {
	r.Updates <- Update{Type: "error", Message: err.Error()}
}

// OnComplete is called when the fetch finishes.
func (r *ChannelReporter) OnComplete(stats Stats) {
	r.Updates <- Update{Type: "complete", Stats: &stats}
}

// NullReporter discards all progress updates.
type NullReporter struct{}

// OnStart is called when a fetch begins.
func (NullReporter) OnStart(sources int) {}

// OnProgress is called with each progress snapshot.
func (NullReporter) OnProgress(p Progress) {}

// OnError is called once per failed source.
func (NullReporter) OnError(err error) {}

// OnComplete is called when the fetch finishes.
func (NullReporter) OnComplete(stats Stats) {}
