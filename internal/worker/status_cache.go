package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/koperasi-orders.git/internal/kafka"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
	"github.com/ariefcatur/koperasi-orders.git/internal/redisx"
)

// Service menjaga cache order_status:{id} tetap hangat dari event stream,
// sehingga GET status tidak selalu jatuh ke Postgres.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent: dipasang sebagai handler consumer untuk kedua topic.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	var orderID int64
	var status orders.Status
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, orders.StatusPending
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, p.NewStatus
	default:
		return nil // ignore
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := kafkax.MustMarshal(map[string]any{"status": status, "updated_at": env.OccurredAt})
	if err := s.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
