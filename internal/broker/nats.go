// Package broker relays chat pushes between server instances over NATS so a
// message stored by one instance reaches a receiver connected to another.
package broker

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/vedran77/dealerchat/internal/domain"
)

const DefaultSubjectPrefix = "dealerchat"

// Deliverer pushes a raw frame to every local connection of a user.
type Deliverer interface {
	DeliverToUser(userID uuid.UUID, data []byte)
}

func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("dealerchat-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("broker: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("broker: reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NatsNotifier implements service.Notifier by publishing to the receiver's subject.
type NatsNotifier struct {
	nc     *nats.Conn
	prefix string
}

func NewNatsNotifier(nc *nats.Conn, prefix string) *NatsNotifier {
	return &NatsNotifier{nc: nc, prefix: prefix}
}

func (n *NatsNotifier) NotifyNewMessage(msg *domain.ChatMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broker: marshal error: %v", err)
		return
	}
	if err := n.nc.Publish(UserSubject(n.prefix, msg.ReceiverID), data); err != nil {
		log.Printf("broker: publish to %s failed: %v", msg.ReceiverID, err)
	}
}

// Relay subscribes to every user subject and hands frames to the local hub.
func Relay(nc *nats.Conn, prefix string, d Deliverer) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(prefix+".user.*", func(m *nats.Msg) {
		userID, err := ParseUserSubject(prefix, m.Subject)
		if err != nil {
			log.Printf("broker: %v", err)
			return
		}
		d.DeliverToUser(userID, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to user subjects: %w", err)
	}
	return sub, nil
}

func UserSubject(prefix string, userID uuid.UUID) string {
	return fmt.Sprintf("%s.user.%s", prefix, userID)
}

func ParseUserSubject(prefix, subject string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(subject, prefix+".user.")
	if !ok {
		return uuid.Nil, fmt.Errorf("unexpected subject %q", subject)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad user id in subject %q: %w", subject, err)
	}
	return id, nil
}
