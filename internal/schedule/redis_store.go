package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

// RedisStore keeps each day as a hash of time -> JSON slot.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by Redis.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("schedule: redis client required")
	}
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) EnsureDay(ctx context.Context, date string, slots []Slot) (bool, error) {
	key := dayKey(date)
	cmds := make([]*redis.BoolCmd, 0, len(slots))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, slot := range slots {
			slot.Date = date
			payload, err := json.Marshal(slot)
			if err != nil {
				return err
			}
			cmds = append(cmds, pipe.HSetNX(ctx, key, slot.Time, payload))
		}
		return nil
	})
	if err != nil {
		return false, apperr.Persistence("schedule: ensure day", err)
	}
	created := false
	for _, cmd := range cmds {
		if cmd.Val() {
			created = true
		}
	}
	return created, nil
}

func (s *RedisStore) ReadDay(ctx context.Context, date string) ([]Slot, error) {
	values, err := s.client.HGetAll(ctx, dayKey(date)).Result()
	if err != nil {
		return nil, apperr.Persistence("schedule: read day", err)
	}
	slots := make([]Slot, 0, len(values))
	for field, raw := range values {
		var slot Slot
		if err := json.Unmarshal([]byte(raw), &slot); err != nil {
			return nil, apperr.Persistence(fmt.Sprintf("schedule: decode slot %s", field), err)
		}
		slots = append(slots, slot)
	}
	sortSlots(slots)
	return slots, nil
}

// Reserve watches the day key, re-checks every claimed row and writes them in
// one MULTI/EXEC. A concurrent write to the day aborts the transaction.
func (s *RedisStore) Reserve(ctx context.Context, date string, claims []Slot) error {
	key := dayKey(date)
	fields := make([]string, 0, len(claims))
	for _, claim := range claims {
		fields = append(fields, claim.Time)
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HMGet(ctx, key, fields...).Result()
		if err != nil {
			return err
		}
		for _, value := range current {
			raw, ok := value.(string)
			if !ok {
				return ErrSlotNoLongerAvailable
			}
			var slot Slot
			if err := json.Unmarshal([]byte(raw), &slot); err != nil {
				return err
			}
			if !slot.Free() {
				return ErrSlotNoLongerAvailable
			}
		}

		values := make([]any, 0, len(claims)*2)
		for _, claim := range claims {
			claim.Date = date
			payload, err := json.Marshal(claim)
			if err != nil {
				return err
			}
			values = append(values, claim.Time, payload)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, values...)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlotNoLongerAvailable), errors.Is(err, redis.TxFailedErr):
		return ErrSlotNoLongerAvailable
	default:
		return apperr.Persistence("schedule: reserve", err)
	}
}

func dayKey(date string) string {
	return fmt.Sprintf("schedule:day:%s", date)
}
