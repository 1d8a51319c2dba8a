package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// JetStreamConfig задаёт подключение и поток
type JetStreamConfig struct {
	URL       string        // nats://127.0.0.1:4222
	Stream    string        // имя потока, по умолчанию VOXELMEM
	Prefix    string        // корень subject, по умолчанию voxelmem
	Retention time.Duration // MaxAge потока; 0: без ограничения
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Subject события: <prefix>.<tenant>.<type>, где tenant: ID сессии.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	prefix    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к NATS и создаёт поток, если его нет
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = "VOXELMEM"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "voxelmem"
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("voxelmem"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{cfg.Prefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("add stream %s: %w", cfg.Stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, prefix: cfg.Prefix}, nil
}

// subject собирает subject события. Пустые части заменяются на "_".
func (jb *JetStreamBus) subject(tenant, eventType string) string {
	return strings.Join([]string{jb.prefix, token(tenant), token(eventType)}, ".")
}

func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// Publish сериализует Envelope в JSON. ID события служит ключом дедупликации.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	subj := jb.subject(ev.Tenant, ev.EventType)
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := jb.js.Publish(subj, data, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("jetstream publish %s: %w", subj, err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт эфемерного потребителя, получающего только новые события.
// Фильтр по одному виду сужает subject, остальные условия проверяются здесь.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	eventType := "*"
	if len(f.Types) == 1 {
		eventType = token(f.Types[0])
	}
	subj := jb.prefix + ".*." + eventType

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		defer msg.Ack()
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			atomic.AddUint64(&jb.dropped, 1)
			return
		}
		if !matchFilter(&ev, f) {
			return
		}
		h(ctx, &ev)
		atomic.AddUint64(&jb.consumed, 1)
	}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики клиента; очередь хранит сам JetStream
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
