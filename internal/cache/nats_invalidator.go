package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/railverse/internal/logging"
	"github.com/nats-io/nats.go"
)

// NATSInvalidator разносит инвалидацию кеша между узлами через NATS Pub/Sub.
// Каждый узел подписан на общий subject; собственные сообщения отличаются
// по nodeID и пропускаются, поэтому обработчик должен чистить кеш через
// DropLocal, а не через Delete.
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string

	subscription *nats.Subscription
}

// invalidationMessage - сообщение об устаревании ключа
type invalidationMessage struct {
	Key       string    `json:"key"`
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNATSInvalidator подключается к NATS. nodeID должен быть уникален
// в пределах кластера, например UUID процесса.
func NewNATSInvalidator(url, subject, nodeID string) (*NATSInvalidator, error) {
	if subject == "" {
		subject = "rail.cache.invalidation"
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS отключился: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogInfo("NATS переподключился к %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logging.LogInfo("NATS инвалидация кеша: %s (subject %s)", url, subject)
	return &NATSInvalidator{conn: conn, subject: subject, nodeID: nodeID}, nil
}

// PublishInvalidation рассылает уведомление об устаревании ключа
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	data, err := json.Marshal(invalidationMessage{
		Key:       key,
		NodeID:    n.nodeID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// SubscribeInvalidations подписывается на уведомления других узлов.
// Подписка живёт до Close или отмены контекста.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	if n.subscription != nil {
		return fmt.Errorf("подписка на инвалидации уже активна")
	}

	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var inv invalidationMessage
		if err := json.Unmarshal(msg.Data, &inv); err != nil {
			logging.LogError("Нечитаемое сообщение инвалидации: %v", err)
			return
		}
		if inv.NodeID == n.nodeID {
			return // своё же сообщение
		}
		if err := handler(inv.Key); err != nil {
			logging.LogError("Обработчик инвалидации %s: %v", inv.Key, err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe invalidations: %w", err)
	}
	n.subscription = sub

	go func() {
		<-ctx.Done()
		n.unsubscribe()
	}()

	logging.LogInfo("Подписка на инвалидации кеша активна: %s", n.subject)
	return nil
}

// Close отписывается и закрывает соединение
func (n *NATSInvalidator) Close() error {
	n.unsubscribe()
	n.conn.Close()
	return nil
}

func (n *NATSInvalidator) unsubscribe() {
	if n.subscription != nil {
		_ = n.subscription.Unsubscribe()
		n.subscription = nil
	}
}
