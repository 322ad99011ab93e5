package audit

import (
	"context"
	"log/slog"

	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Publisher receives every stored log entry.
type Publisher interface {
	PublishLog(ctx context.Context, entry *timeline.ExecutionLog) error
}

// MirroredTimeline is a timeline whose log writes are also published.
// Publishing is best-effort: the stored entry is the record of truth.
type MirroredTimeline struct {
	*timeline.TimelineService
	pub Publisher
}

// Mirror wraps tl so that AddLog also publishes to pub.
func Mirror(tl *timeline.TimelineService, pub Publisher) *MirroredTimeline {
	return &MirroredTimeline{TimelineService: tl, pub: pub}
}

// AddLog stores entry and then publishes the stored copy.
func (m *MirroredTimeline) AddLog(ctx context.Context, entry *timeline.ExecutionLog) (*timeline.ExecutionLog, error) {
	stored, err := m.TimelineService.AddLog(ctx, entry)
	if err != nil {
		return nil, err
	}
	if err := m.pub.PublishLog(ctx, stored); err != nil {
		slog.Warn("Audit mirror failed", "log", stored.ID, "error", err)
	}
	return stored, nil
}
