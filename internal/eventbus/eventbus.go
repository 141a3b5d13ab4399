package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий сервера
const (
	TypeBlockChange  = "BlockChange"
	TypeChunkLoaded  = "ChunkLoaded"
	TypePlayerJoined = "PlayerJoined"
	TypePlayerLeft   = "PlayerLeft"
	TypeChat         = "Chat"
	TypeOperator     = "OperatorChange"
)

// Приоритеты событий. При переполнении буфера события ниже PriorityHigh отбрасываются.
const (
	PriorityLow  = 1
	PriorityHigh = 5
)

// priorities задает приоритет по типу: изменения мира и прав не теряются
var priorities = map[string]int{
	TypeBlockChange: PriorityHigh,
	TypeOperator:    PriorityHigh,
	TypePlayerLeft:  PriorityHigh,
}

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("event bus closed")

// Envelope конверт события шины. Полезная нагрузка хранится в JSON.
type Envelope struct {
	ID        string          `json:"id"`      // UUID, он же ключ дедупликации в JetStream
	Timestamp time.Time       `json:"ts"`      // UTC
	Source    string          `json:"source"`  // world, network, ...
	EventType string          `json:"type"`    // BlockChange, Chat, ...
	Version   int             `json:"version"` // схема полезной нагрузки
	Priority  int             `json:"priority"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope упаковывает полезную нагрузку в конверт с новым UUID и приоритетом типа
func NewEnvelope(source, eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("eventbus: marshal %s payload: %w", eventType, err)
	}
	prio, ok := priorities[eventType]
	if !ok {
		prio = PriorityLow
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  prio,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку конверта
func (ev *Envelope) Decode(v any) error {
	return json.Unmarshal(ev.Payload, v)
}

// Filter отбирает события подписки. Пустой список пропускает всё.
// Since имеет смысл только для JetStream: доставка начинается с этого момента,
// иначе подписчик получает лишь новые события.
type Filter struct {
	Types   []string
	Sources []string
	Since   time.Time
}

// Subscription отменяет подписку
type Subscription interface {
	Unsubscribe()
}

// Handler обрабатывает событие
type Handler func(ctx context.Context, ev *Envelope)

// Stats счетчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus шина событий сервера: in-memory или JetStream
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// subscriberQueue размер очереди одного подписчика
const subscriberQueue = 64

type memoryBus struct {
	mu          sync.RWMutex // подписчики
	subscribers map[int]*subscriber
	nextID      int
	subWg       sync.WaitGroup // горутины подписчиков

	statsMu sync.Mutex
	stats   Stats

	sendMu   sync.RWMutex // отправка в buffer против его закрытия
	closed   bool
	buffer   chan *Envelope
	capacity int
	wg       sync.WaitGroup // dispatchLoop
}

// subscriber получает события через свою очередь в одной горутине,
// поэтому обработчик видит события в порядке публикации.
type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
	}
	mb.wg.Add(1)
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) count(f func(*Stats)) {
	mb.statsMu.Lock()
	f(&mb.stats)
	mb.statsMu.Unlock()
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}

	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	default:
		if ev.Priority < PriorityHigh {
			mb.count(func(s *Stats) { s.Dropped++ })
			return nil
		}
		select {
		case mb.buffer <- ev:
			mb.count(func(s *Stats) { s.Published++ })
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, subscriberQueue),
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	mb.subWg.Add(1)
	go mb.consume(sub)
	return &memSub{bus: mb, id: id}, nil
}

// consume вызывает обработчик по очереди подписчика до ее закрытия или отписки
func (mb *memoryBus) consume(sub *subscriber) {
	defer mb.subWg.Done()
	for {
		select {
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			if sub.ctx.Err() != nil {
				return
			}
			sub.handler(sub.ctx, ev)
			mb.count(func(st *Stats) { st.Consumed++ })
		case <-sub.ctx.Done():
			return
		}
	}
}

// Close дожидается рассылки уже принятых событий и активных обработчиков
func (mb *memoryBus) Close() error {
	mb.sendMu.Lock()
	if mb.closed {
		mb.sendMu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.sendMu.Unlock()

	mb.wg.Wait()

	mb.mu.Lock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for id, sub := range mb.subscribers {
		close(sub.queue)
		subs = append(subs, sub)
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()

	mb.subWg.Wait()
	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.statsMu.Lock()
	s := mb.stats
	mb.statsMu.Unlock()
	s.InFlight = len(mb.buffer)
	return s
}

// dispatchLoop раскладывает события по очередям подписчиков.
// Полная очередь медленного подписчика задерживает рассылку.
func (mb *memoryBus) dispatchLoop() {
	defer mb.wg.Done()
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]*subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			if !matchFilter(ev, sub.filter) {
				continue
			}
			select {
			case sub.queue <- ev:
			case <-sub.ctx.Done():
			}
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
