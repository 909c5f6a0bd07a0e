package sync

import (
	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/pkg/api"
)

// fromAPIEvent переводит событие из wire-формата в модель проекции
func fromAPIEvent(ev api.Event) models.SyncEvent {
	out := models.SyncEvent{
		Seq:       ev.Seq,
		Kind:      models.EventKind(ev.Type),
		CreatedAt: ev.CreatedAt,
		AuthorID:  ev.AuthorID,
	}

	if ev.Segment != nil {
		out.Stroke = &models.StrokeSegment{
			PrevX:       ev.Segment.PrevX,
			PrevY:       ev.Segment.PrevY,
			X:           ev.Segment.X,
			Y:           ev.Segment.Y,
			Color:       ev.Segment.Color,
			StrokeWidth: ev.Segment.StrokeWidth,
			AuthorID:    ev.Segment.AuthorID,
		}
	}
	if ev.Enabled != nil {
		out.Enabled = *ev.Enabled
	}

	return out
}

func fromAPIEvents(events []api.Event) []models.SyncEvent {
	out := make([]models.SyncEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, fromAPIEvent(ev))
	}
	return out
}
