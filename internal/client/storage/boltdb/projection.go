package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/drawsync/internal/models"
)

// projectionMeta все, кроме отрезков: они лежат в bucket strokes по ключу seq
type projectionMeta struct {
	LastSeq        int64 `json:"last_seq"`
	ActiveUsers    int   `json:"active_users"`
	DrawingEnabled bool  `json:"drawing_enabled"`
}

var keyMeta = []byte("meta")

// seqKey big-endian, чтобы Cursor обходил отрезки в порядке seq
func seqKey(seq int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}

// SaveProjection заменяет проекцию в одной транзакции
func (s *Storage) SaveProjection(ctx context.Context, state models.CanvasState) error {
	meta, err := json.Marshal(projectionMeta{
		LastSeq:        state.LastSeq,
		ActiveUsers:    state.ActiveUsers,
		DrawingEnabled: state.DrawingEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal projection: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		pb, err := bucket(tx, bucketProjection)
		if err != nil {
			return err
		}
		if err := pb.Put(keyMeta, meta); err != nil {
			return fmt.Errorf("failed to save projection: %w", err)
		}

		if err := tx.DeleteBucket(bucketStrokes); err != nil {
			return fmt.Errorf("failed to reset strokes: %w", err)
		}
		sb, err := tx.CreateBucket(bucketStrokes)
		if err != nil {
			return fmt.Errorf("failed to reset strokes: %w", err)
		}

		for _, ev := range state.Strokes {
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("failed to marshal stroke %d: %w", ev.Seq, err)
			}
			if err := sb.Put(seqKey(ev.Seq), data); err != nil {
				return fmt.Errorf("failed to save stroke %d: %w", ev.Seq, err)
			}
		}

		return nil
	})
}

// LoadProjection читает проекцию; до первого сохранения рисование считается разрешенным
func (s *Storage) LoadProjection(ctx context.Context) (models.CanvasState, error) {
	state := models.CanvasState{DrawingEnabled: true}

	err := s.db.View(func(tx *bbolt.Tx) error {
		pb, err := bucket(tx, bucketProjection)
		if err != nil {
			return err
		}

		if data := pb.Get(keyMeta); data != nil {
			var meta projectionMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				return fmt.Errorf("failed to unmarshal projection: %w", err)
			}
			state.LastSeq = meta.LastSeq
			state.ActiveUsers = meta.ActiveUsers
			state.DrawingEnabled = meta.DrawingEnabled
		}

		sb, err := bucket(tx, bucketStrokes)
		if err != nil {
			return err
		}

		return sb.ForEach(func(_, v []byte) error {
			var ev models.SyncEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("failed to unmarshal stroke: %w", err)
			}
			state.Strokes = append(state.Strokes, ev)
			return nil
		})
	})
	if err != nil {
		return models.CanvasState{}, err
	}

	return state, nil
}
