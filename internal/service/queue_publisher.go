package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/storefront-orders/internal/queue"
)

// AMQPPublisher publishes order and stock events to RabbitMQ. Each publish
// dials a fresh connection, so the publisher holds no broker state and a
// broker outage only affects the events published during it. Errors are
// logged and returned; callers decide whether to ignore them.
type AMQPPublisher struct {
    url string
    log *zap.Logger
}

var _ queue.Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &AMQPPublisher{url: url, log: log.Named("publisher")}
}

// PublishOrderEvent sends ev to the order.events queue.
func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, ev queue.OrderEvent) error {
    return p.publish(ctx, queue.OrderEventsQueue, ev.EventID, ev.Type, ev)
}

// PublishRestockEvent sends ev to the stock.events queue.
func (p *AMQPPublisher) PublishRestockEvent(ctx context.Context, ev queue.RestockEvent) error {
    return p.publish(ctx, queue.StockEventsQueue, ev.EventID, queue.StockRestocked, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName, id, typ string, payload any) error {
    log := p.log.With(zap.String("queue", queueName), zap.String("event_id", id))

    body, err := json.Marshal(payload)
    if err != nil {
        log.Error("marshal event failed", zap.Error(err))
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Warn("dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Warn("channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // durable, not auto-deleted, not exclusive
    if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
        log.Warn("queue declare failed", zap.Error(err))
        return err
    }

    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    id,
        Type:         typ,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
        log.Warn("publish failed", zap.Error(err))
        return err
    }
    log.Debug("event published", zap.String("type", typ))
    return nil
}
