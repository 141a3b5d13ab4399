package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
)

// OperatorList список операторов сервера
type OperatorList interface {
	Add(name string) (storage.Operator, error)
	Remove(name string) error
	IsOperator(name string) (bool, error)
	List() ([]storage.Operator, error)
}

// Options зависимости игрового сервера
type Options struct {
	Config    config.ServerConfig
	World     *world.WorldManager
	Operators OperatorList
	Positions storage.PositionRepo // nil - позиции в памяти
	Cache     cache.CacheRepo      // nil - чанки кодируются на каждый запрос
	Bus       eventbus.EventBus    // nil - события игроков не публикуются
	Metrics   *Metrics
	Logger    *logging.Logger
}

const (
	queueSize       = 1024
	maxEditsPerTick = 64
	maxChatPerTick  = 128
)

type queuedChat struct {
	sender  *Session // nil - системное сообщение
	message string
}

type queuedEdit struct {
	sender *Session
	pos    vec.Vec3
	block  block.BlockID
}

// Server игровой фронтенд: принимает соединения, ведет сессии и тик-цикл.
// Все изменения мира от клиентов применяются в горутине тика.
type Server struct {
	cfg       config.ServerConfig
	timeout   time.Duration
	world     *world.WorldManager
	ops       OperatorList
	positions storage.PositionRepo
	cache     cache.CacheRepo
	bus       eventbus.EventBus
	metrics   *Metrics
	logger    *logging.Logger
	commands  *CommandRegistry

	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   atomic.Uint64

	chat   chan queuedChat
	digs   chan queuedEdit
	places chan queuedEdit

	totalTicks atomic.Int64
	tpsBits    atomic.Uint64
	lastTick   time.Time
	keepAlive  int
	startTime  time.Time

	spawnOnce sync.Once
	spawn     vec.Vec3

	wg sync.WaitGroup
}

func NewServer(opts Options) *Server {
	if opts.Positions == nil {
		opts.Positions = storage.NewMemoryPositionRepo()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetNetworkLogger()
	}

	s := &Server{
		cfg:       opts.Config,
		timeout:   opts.Config.Timeout(),
		world:     opts.World,
		ops:       opts.Operators,
		positions: opts.Positions,
		cache:     opts.Cache,
		bus:       opts.Bus,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		sessions:  make(map[string]*Session),
		chat:      make(chan queuedChat, queueSize),
		digs:      make(chan queuedEdit, queueSize),
		places:    make(chan queuedEdit, queueSize),
		startTime: time.Now(),
	}
	s.tpsBits.Store(math.Float64bits(float64(opts.Config.TickRate)))
	s.commands = NewCommandRegistry()
	registerBuiltinCommands(s.commands)
	opts.World.SetBlockChangeListener(s)
	return s
}

// Commands возвращает реестр команд чата
func (s *Server) Commands() *CommandRegistry { return s.commands }

// Serve принимает соединения до отмены ctx или закрытия слушателя
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Игровой сервер слушает %s (%s)", ln.Addr(), ln.Addr().Network())

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Ошибка принятия соединения: %v", err)
			continue
		}
		tuneConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.HandleConn(ctx, conn)
		}()
	}
}

// HandleConn обслуживает одно соединение до его закрытия
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	sess := newSession(fmt.Sprintf("conn-%d", s.nextID.Add(1)), conn, s)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.metrics.ConnectedClients.Inc()
	s.logger.Debug("Новое соединение %s от %s", sess.id, conn.RemoteAddr())

	go sess.writeLoop()
	s.readLoop(ctx, sess)
	sess.Close("")
	s.removeSession(ctx, sess)
}

func (s *Server) readLoop(ctx context.Context, sess *Session) {
	for {
		_ = sess.conn.SetReadDeadline(time.Now().Add(s.timeout))
		f, err := protocol.ReadFrame(sess.conn)
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrUnknownMessage):
				s.logger.LogProtocolError(sess.id, err, f.Body)
				sess.sendError(protocol.ErrCodeBadRequest, "неизвестный тип сообщения")
				continue
			case errors.Is(err, protocol.ErrFrameTooLarge):
				s.logger.LogProtocolError(sess.id, err, nil)
				s.metrics.Disconnects.WithLabelValues("protocol").Inc()
				sess.Close("кадр превышает допустимый размер")
			default:
				if sess.State() != StateClosed {
					s.logger.Debug("Соединение %s закрыто: %v", sess.id, err)
				}
			}
			return
		}

		sess.touch()
		s.metrics.FramesIn.WithLabelValues(f.Type.String()).Inc()
		s.logger.LogFrame(sess.id, "<-", f.Type, f.Body)
		s.handleFrame(ctx, sess, f)
	}
}

func (s *Server) removeSession(ctx context.Context, sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.id]
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.metrics.ConnectedClients.Dec()

	name := sess.Username()
	if name == "" {
		return
	}
	s.metrics.PlayersOnline.Dec()

	// ctx сервера может быть уже отменен при остановке
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.positions.Save(saveCtx, name, sess.Position()); err != nil {
		s.logger.Warn("Не удалось сохранить позицию %s: %v", name, err)
	}

	s.logger.Info("Игрок %s вышел", name)
	s.BroadcastSystem(name + " покинул игру")
	s.publish(saveCtx, eventbus.TypePlayerLeft, playerEvent{Name: name, UUID: sess.UUID()})
}

// Shutdown сохраняет позиции, закрывает все сессии и ждет завершения обработчиков
func (s *Server) Shutdown(ctx context.Context) error {
	players := s.Players()
	if len(players) > 0 {
		batch := make(map[string]vec.Vec3, len(players))
		for _, p := range players {
			batch[p.Username()] = p.Position()
		}
		if err := s.positions.BatchSave(ctx, batch); err != nil {
			s.logger.Warn("Не удалось сохранить позиции при остановке: %v", err)
		}
	}

	for _, sess := range s.snapshot() {
		sess.Close("сервер остановлен")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) snapshot() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Players возвращает сессии в состоянии Play, упорядоченные по имени
func (s *Server) Players() []*Session {
	var out []*Session
	for _, sess := range s.snapshot() {
		if sess.State() == StatePlay {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username() < out[j].Username() })
	return out
}

// PlayerNames возвращает имена игроков онлайн
func (s *Server) PlayerNames() []string {
	players := s.Players()
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Username()
	}
	return names
}

func (s *Server) findPlayer(name string) *Session {
	for _, sess := range s.Players() {
		if equalNames(sess.Username(), name) {
			return sess
		}
	}
	return nil
}

// TotalTicks количество выполненных тиков
func (s *Server) TotalTicks() int64 { return s.totalTicks.Load() }

// TPS сглаженная частота тиков
func (s *Server) TPS() float64 { return math.Float64frombits(s.tpsBits.Load()) }

// Uptime время работы сервера
func (s *Server) Uptime() time.Duration { return time.Since(s.startTime) }

// Spawn точка появления новых игроков: над поверхностью или водой в колонне (0, 0),
// поднятая до первой высоты, где игрок помещается целиком
func (s *Server) Spawn() vec.Vec3 {
	s.spawnOnce.Do(func() {
		g := s.world.Generator()
		feet := vec.Vec3{X: 0, Y: max(g.SurfaceHeight(0, 0), g.SeaLevel) + 1, Z: 0}
		if err := s.world.LoadChunk(context.Background(), feet.ChunkCoords()); err != nil {
			s.logger.Warn("Не удалось загрузить чанк точки появления: %v", err)
			s.spawn = feet
			return
		}
		passable := func(p vec.Vec3) bool {
			id, err := s.world.GetBlock(p)
			return err == nil && !block.IsMotionBlocking(id)
		}
		for feet.Y < chunk.MaxY && !physics.CanStandAt(feet, physics.PlayerCollider, passable) {
			feet.Y++
		}
		s.spawn = feet
	})
	return s.spawn
}

// BroadcastSystem ставит системное сообщение в очередь чата
func (s *Server) BroadcastSystem(message string) {
	s.enqueueChat(queuedChat{message: message})
}

func (s *Server) enqueueChat(c queuedChat) bool {
	select {
	case s.chat <- c:
		return true
	default:
		s.logger.Warn("Очередь чата переполнена, сообщение отброшено")
		return false
	}
}

// broadcast отправляет кадр всем игрокам в состоянии Play
func (s *Server) broadcast(t protocol.MessageType, v interface{}) {
	for _, sess := range s.Players() {
		_ = sess.Send(t, v)
	}
}

// OnBlockChange рассылает примененное изменение блока игрокам
func (s *Server) OnBlockChange(change world.BlockChange) {
	s.broadcast(protocol.MsgBlockChange, protocol.BlockChange{Pos: change.Pos, Block: change.New})
}

type playerEvent struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type chatEvent struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type operatorEvent struct {
	Name    string `json:"name"`
	Granted bool   `json:"granted"`
	By      string `json:"by"`
}

func (s *Server) publish(ctx context.Context, eventType string, payload any) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope("network", eventType, payload)
	if err == nil {
		err = s.bus.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("Не удалось опубликовать %s: %v", eventType, err)
	}
}
