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

// JetStreamBus публикует события в стрим NATS JetStream.
// Subject события: <stream в нижнем регистре>.<EventType>, например blockverse.BlockChange.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	prefix string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// StreamState краткое состояние стрима для утилит
type StreamState struct {
	Messages uint64
	Bytes    uint64
	First    time.Time
	Last     time.Time
}

// NewJetStreamBus подключается к NATS и создает стрим, если его нет.
// Хранение ограничено retention (0 = без ограничения по времени).
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "BLOCKVERSE"
	}
	prefix := strings.ToLower(stream)

	nc, err := nats.Connect(url, nats.Name("blockverse"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{prefix + ".*"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     retention,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}
	if _, err := js.StreamInfo(stream); err != nil {
		if _, err := js.AddStream(cfg); err != nil {
			nc.Close()
			return nil, fmt.Errorf("создание стрима %s: %w", stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: stream, prefix: prefix}, nil
}

func (jb *JetStreamBus) subject(eventType string) string {
	return jb.prefix + "." + eventType
}

// Publish публикует конверт; ID конверта служит ключом дедупликации
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("eventbus: marshal %s: %w", ev.EventType, err)
	}
	if _, err := jb.js.Publish(jb.subject(ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создает эфемерного consumer на каждый тип из фильтра
// (или один на все типы). С f.Since доставка начинается с этого момента.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subjects := []string{jb.prefix + ".*"}
	if len(f.Types) > 0 {
		subjects = subjects[:0]
		for _, t := range f.Types {
			subjects = append(subjects, jb.subject(t))
		}
	}

	start := nats.DeliverNew()
	if !f.Since.IsZero() {
		start = nats.StartTime(f.Since)
	}

	handler := func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			jb.consumed.Add(1)
		}
		_ = msg.Ack()
	}

	subs := make(jetSubs, 0, len(subjects))
	for _, subj := range subjects {
		s, err := jb.js.Subscribe(subj, handler, nats.ManualAck(), start, nats.AckWait(30*time.Second))
		if err != nil {
			subs.Unsubscribe()
			return nil, fmt.Errorf("подписка на %s: %w", subj, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

type jetSubs []*nats.Subscription

func (js jetSubs) Unsubscribe() {
	for _, s := range js {
		_ = s.Unsubscribe()
	}
}

// State возвращает состояние стрима
func (jb *JetStreamBus) State() (StreamState, error) {
	info, err := jb.js.StreamInfo(jb.stream)
	if err != nil {
		return StreamState{}, err
	}
	return StreamState{
		Messages: info.State.Msgs,
		Bytes:    info.State.Bytes,
		First:    info.State.FirstTime,
		Last:     info.State.LastTime,
	}, nil
}

// Metrics возвращает счетчики этого процесса. Очередь хранит сам JetStream.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буфера и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
