package handlers

import (
	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

// toAPIEvent конвертирует событие журнала в wire-формат
func toAPIEvent(ev models.SyncEvent) api.Event {
	out := api.Event{
		Seq:       ev.Seq,
		Type:      string(ev.Kind),
		CreatedAt: ev.CreatedAt,
	}

	switch ev.Kind {
	case models.EventStroke:
		if ev.Stroke != nil {
			seg := toAPISegment(*ev.Stroke)
			out.Segment = &seg
		}
	case models.EventClear:
		out.AuthorID = ev.AuthorID
	case models.EventControl:
		enabled := ev.Enabled
		out.Enabled = &enabled
	}

	return out
}

func toAPIEvents(events []models.SyncEvent) []api.Event {
	out := make([]api.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, toAPIEvent(ev))
	}
	return out
}

func toAPISegment(seg models.StrokeSegment) api.StrokeSegment {
	return api.StrokeSegment{
		PrevX:       seg.PrevX,
		PrevY:       seg.PrevY,
		X:           seg.X,
		Y:           seg.Y,
		Color:       seg.Color,
		StrokeWidth: seg.StrokeWidth,
		AuthorID:    seg.AuthorID,
	}
}

func fromAPISegment(seg api.StrokeSegment) models.StrokeSegment {
	return models.StrokeSegment{
		PrevX:       seg.PrevX,
		PrevY:       seg.PrevY,
		X:           seg.X,
		Y:           seg.Y,
		Color:       seg.Color,
		StrokeWidth: seg.StrokeWidth,
	}
}

func toPollResponse(res engine.PollResult) api.PollResponse {
	return api.PollResponse{
		Events:         toAPIEvents(res.Events),
		LastSeq:        res.LastSeq,
		ActiveUsers:    res.ActiveUsers,
		DrawingEnabled: res.DrawingEnabled,
		Reset:          res.Reset,
	}
}

// toStreamMessage конвертирует уведомление хаба в сообщение потока
func toStreamMessage(n engine.Notification) api.StreamMessage {
	if n.Kind == engine.NotifyPresence || n.Event == nil {
		return api.StreamMessage{Type: api.StreamPresence, ActiveUsers: n.ActiveUsers}
	}

	ev := toAPIEvent(*n.Event)
	return api.StreamMessage{Type: api.StreamEvent, Event: &ev, LastSeq: ev.Seq}
}

// helloMessage первое сообщение потока: состояние на момент подключения
func helloMessage(att *engine.Attachment) api.StreamMessage {
	enabled := att.Replay.DrawingEnabled
	return api.StreamMessage{
		Type:           api.StreamHello,
		ClientID:       att.ClientID,
		LastSeq:        att.Replay.LastSeq,
		ActiveUsers:    att.Replay.ActiveUsers,
		DrawingEnabled: &enabled,
		Reset:          att.Replay.Reset,
	}
}

// replayMessages реплей как последовательность event-сообщений
func replayMessages(att *engine.Attachment) []api.StreamMessage {
	out := make([]api.StreamMessage, 0, len(att.Replay.Events))
	for _, ev := range att.Replay.Events {
		apiEv := toAPIEvent(ev)
		out = append(out, api.StreamMessage{Type: api.StreamEvent, Event: &apiEv, LastSeq: ev.Seq})
	}
	return out
}
