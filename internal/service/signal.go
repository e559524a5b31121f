package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/gamecatalog/internal/domain"
)

const channelPrefix = "catalog:"

// Channel is the pubsub channel carrying changes of one entity type.
func Channel(entity string) string {
	return channelPrefix + entity
}

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event domain.ChangeEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "SignalService.Publish: marshal")
	}

	err = s.rdb.Publish(ctx, Channel(event.Entity), jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "SignalService.Publish")
	}

	return nil
}

// Realtime forwards change events to output. Every value received on input
// replaces the set of entity types listened to. It returns when ctx is done
// or input is closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.ChangeEvent) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var current []string

	for {
		select {
		case <-ctx.Done():
			return

		case entities, ok := <-input:
			if !ok {
				return
			}

			if len(current) > 0 {
				if err := pubsub.Unsubscribe(ctx, current...); err != nil {
					slog.ErrorContext(
						ctx, "failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}

			current = current[:0]
			for _, entity := range entities {
				current = append(current, Channel(entity))
			}

			if len(current) > 0 {
				if err := pubsub.Subscribe(ctx, current...); err != nil {
					slog.ErrorContext(
						ctx, "failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}

		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(
					ctx, "dropping malformed event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
