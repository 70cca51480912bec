package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer reads order.events and stock.events and appends one line per
// event to an audit log file. It reconnects with exponential backoff until
// its context is cancelled.
type AuditConsumer struct {
    url  string
    path string
    log  *zap.Logger
    mu   sync.Mutex // serialises appends from the two queues
}

// NewAuditConsumer returns a consumer writing to path.
func NewAuditConsumer(url, path string, log *zap.Logger) *AuditConsumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuditConsumer{url: url, path: path, log: log.Named("audit-consumer")}
}

// StartAuditConsumer runs an AuditConsumer until ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url, path string, log *zap.Logger) error {
    return NewAuditConsumer(url, path, log).Run(ctx)
}

// Run blocks until ctx is cancelled.
func (a *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(a.url)
        if err != nil {
            a.log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = a.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        a.log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        a.log.Warn("set QoS failed", zap.Error(err))
    }

    queues := []string{OrderEventsQueue, StockEventsQueue}
    deliveries := make([]<-chan amqp.Delivery, 0, len(queues))
    for _, q := range queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        deliveries = append(deliveries, msgs)
    }

    orders, stock := deliveries[0], deliveries[1]
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-orders:
            if !ok {
                return errors.New("order deliveries closed")
            }
            a.ack(d, OrderEventsQueue)
        case d, ok := <-stock:
            if !ok {
                return errors.New("stock deliveries closed")
            }
            a.ack(d, StockEventsQueue)
        }
    }
}

func (a *AuditConsumer) ack(d amqp.Delivery, queue string) {
    if err := a.Handle(queue, d.Body); err != nil {
        a.log.Error("handle message failed", zap.String("queue", queue), zap.String("message_id", d.MessageId), zap.Error(err))
        _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
        return
    }
    _ = d.Ack(false)
}

// Handle formats the message body received on queue and appends it to the
// audit log.
func (a *AuditConsumer) Handle(queue string, body []byte) error {
    line, err := FormatAuditLine(queue, body)
    if err != nil {
        return err
    }
    a.mu.Lock()
    defer a.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders one single-line, human-friendly record.
func FormatAuditLine(queue string, body []byte) (string, error) {
    switch queue {
    case OrderEventsQueue:
        var ev OrderEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        items := make([]string, 0, len(ev.Lines))
        for _, l := range ev.Lines {
            items = append(items, fmt.Sprintf("%dx%d", l.ProductID, l.Quantity))
        }
        return fmt.Sprintf("[%s] %s | event_id=%s | order_id=%d | customer_id=%d | total=%s | lines=[%s]\n",
            ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.EventID, ev.OrderID, ev.CustomerID,
            ev.TotalAmount.StringFixed(2), strings.Join(items, ",")), nil
    case StockEventsQueue:
        var ev RestockEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] %s | event_id=%s | product_id=%d | product=%q | stock=%d->%d\n",
            ev.RestockedAt.UTC().Format(time.RFC3339), StockRestocked, ev.EventID, ev.ProductID, ev.ProductName,
            ev.StockBefore, ev.StockAfter), nil
    }
    return "", fmt.Errorf("unknown queue %q", queue)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
