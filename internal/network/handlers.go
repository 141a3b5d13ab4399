package network

import (
	"context"
	"errors"
	"strings"

	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
)

const maxChatLength = 256

func equalNames(a, b string) bool { return strings.EqualFold(a, b) }

func (s *Server) handleFrame(ctx context.Context, sess *Session, f protocol.Frame) {
	switch sess.State() {
	case StateHandshake:
		if f.Type != protocol.MsgLogin {
			sess.sendError(protocol.ErrCodeUnauthorized, "требуется вход")
			return
		}
		s.handleLogin(ctx, sess, f)
	case StatePlay:
		s.handlePlay(ctx, sess, f)
	}
}

func (s *Server) handleLogin(ctx context.Context, sess *Session, f protocol.Frame) {
	var req protocol.Login
	if err := f.Decode(&req); err != nil {
		sess.sendError(protocol.ErrCodeBadRequest, err.Error())
		return
	}
	if !storage.ValidPlayerName(req.Username) {
		s.rejectLogin(sess, "недопустимое имя игрока")
		return
	}

	// Проверка дубликата и лимита под одной блокировкой
	s.mu.Lock()
	players := 0
	for _, other := range s.sessions {
		if other.State() != StatePlay {
			continue
		}
		if equalNames(other.Username(), req.Username) {
			s.mu.Unlock()
			s.rejectLogin(sess, "игрок с таким именем уже в игре")
			return
		}
		players++
	}
	if s.cfg.MaxPlayers > 0 && players >= s.cfg.MaxPlayers {
		s.mu.Unlock()
		s.rejectLogin(sess, "сервер заполнен")
		return
	}
	sess.mu.Lock()
	sess.username = req.Username
	sess.uuid = storage.OfflineUUID(req.Username)
	sess.mu.Unlock()
	sess.state.Store(int32(StatePlay))
	s.mu.Unlock()

	pos, found, err := s.positions.Load(ctx, req.Username)
	if err != nil {
		s.logger.Warn("Не удалось загрузить позицию %s: %v", req.Username, err)
	}
	if !found || err != nil {
		pos = s.Spawn()
	}
	sess.setPosition(pos)

	if err := s.world.LoadChunk(ctx, pos.ChunkCoords()); err != nil {
		s.logger.Error("Не удалось загрузить чанк %v для %s: %v", pos.ChunkCoords(), req.Username, err)
	}

	op := false
	if s.ops != nil {
		if op, err = s.ops.IsOperator(req.Username); err != nil {
			s.logger.Warn("Ошибка проверки оператора %s: %v", req.Username, err)
		}
	}

	s.metrics.PlayersOnline.Inc()
	s.BroadcastSystem(req.Username + " присоединился к игре")
	s.publish(ctx, eventbus.TypePlayerJoined, playerEvent{Name: req.Username, UUID: sess.UUID()})

	_ = sess.Send(protocol.MsgLoginResponse, protocol.LoginResponse{
		Success:      true,
		Message:      "добро пожаловать",
		UUID:         sess.UUID(),
		Spawn:        pos,
		Operator:     op,
		ViewDistance: s.cfg.ViewDistance,
		MOTD:         s.cfg.MOTD,
	})

	s.logger.Info("Игрок %s вошел (%s, версия %q) в %v", req.Username, sess.id, req.Version, pos)
}

func (s *Server) rejectLogin(sess *Session, reason string) {
	_ = sess.Send(protocol.MsgLoginResponse, protocol.LoginResponse{Success: false, Message: reason})
}

func (s *Server) handlePlay(ctx context.Context, sess *Session, f protocol.Frame) {
	switch f.Type {
	case protocol.MsgKeepAlive:
		var ka protocol.KeepAlive
		if err := f.Decode(&ka); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		if ka.ID != sess.keepAliveID.Load() {
			s.logger.Debug("%s: keepalive %d не совпадает с %d", sess.id, ka.ID, sess.keepAliveID.Load())
		}

	case protocol.MsgChunkRequest:
		var req protocol.ChunkRequest
		if err := f.Decode(&req); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		s.handleChunkRequest(ctx, sess, vec.Vec2{X: req.X, Z: req.Z})

	case protocol.MsgPlayerDigging:
		var req protocol.PlayerDigging
		if err := f.Decode(&req); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		if req.Status != protocol.DigFinished {
			return
		}
		s.enqueueEdit(sess, s.digs, queuedEdit{sender: sess, pos: req.Pos, block: block.AirBlockID})

	case protocol.MsgBlockPlacement:
		var req protocol.BlockPlacement
		if err := f.Decode(&req); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		id := req.Block
		if id == block.AirBlockID {
			id = block.CobblestoneBlockID
		}
		if !block.IsValidBlockID(id) {
			sess.sendError(protocol.ErrCodeBadRequest, "неизвестный блок")
			return
		}
		s.enqueueEdit(sess, s.places, queuedEdit{sender: sess, pos: req.Pos, block: id})

	case protocol.MsgChat:
		var msg protocol.Chat
		if err := f.Decode(&msg); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			return
		}
		if len(text) > maxChatLength {
			sess.sendError(protocol.ErrCodeBadRequest, "сообщение слишком длинное")
			return
		}
		if !s.enqueueChat(queuedChat{sender: sess, message: text}) {
			sess.sendError(protocol.ErrCodeInternal, "сервер занят")
		}

	case protocol.MsgPlayerPosition:
		var req protocol.PlayerPosition
		if err := f.Decode(&req); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		if !chunk.InWorld(req.Pos.Y) {
			sess.sendError(protocol.ErrCodeBadRequest, "позиция вне мира")
			return
		}
		sess.setPosition(req.Pos)

	case protocol.MsgClientCommand:
		var req protocol.ClientCommand
		if err := f.Decode(&req); err != nil {
			sess.sendError(protocol.ErrCodeBadRequest, err.Error())
			return
		}
		switch req.Action {
		case protocol.ActionRespawn:
			spawn := s.Spawn()
			sess.setPosition(spawn)
			_ = sess.Send(protocol.MsgPlayerPosition, protocol.PlayerPosition{Pos: spawn})
		case protocol.ActionRequestStats:
			_ = sess.Send(protocol.MsgStats, s.Stats())
		default:
			sess.sendError(protocol.ErrCodeBadRequest, "неизвестное действие")
		}

	default:
		sess.sendError(protocol.ErrCodeBadRequest, "сообщение не поддерживается клиентом: "+f.Type.String())
	}
}

func (s *Server) enqueueEdit(sess *Session, q chan queuedEdit, e queuedEdit) {
	select {
	case q <- e:
	default:
		sess.sendError(protocol.ErrCodeInternal, "сервер занят")
	}
}

func (s *Server) handleChunkRequest(ctx context.Context, sess *Session, coords vec.Vec2) {
	center := sess.Position().ChunkCoords()
	if chebyshev(center, coords) > s.cfg.ViewDistance {
		sess.sendError(protocol.ErrCodeForbidden, "чанк вне дальности прорисовки")
		return
	}
	data, err := s.ChunkPayload(ctx, coords)
	if err != nil {
		s.logger.Error("Не удалось подготовить чанк %v: %v", coords, err)
		sess.sendError(protocol.ErrCodeInternal, "не удалось загрузить чанк")
		return
	}
	_ = sess.Send(protocol.MsgChunkData, protocol.ChunkData{X: coords.X, Z: coords.Z, Data: data})
}

func chebyshev(a, b vec.Vec2) int {
	return max(abs(a.X-b.X), abs(a.Z-b.Z))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ChunkPayload возвращает сжатый снимок чанка, загружая его при необходимости.
// Снимок кладется в кэш под блокировкой чанка, поэтому изменение блока
// не может оставить в кэше устаревшие данные.
func (s *Server) ChunkPayload(ctx context.Context, coords vec.Vec2) ([]byte, error) {
	key := cache.ChunkKey(coords)
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("Ошибка чтения кэша %s: %v", key, err)
		}
	}

	if err := s.world.LoadChunk(ctx, coords); err != nil {
		return nil, err
	}

	var data []byte
	err := s.world.WithChunk(coords, func(c *chunk.Chunk) error {
		var err error
		if data, err = protocol.EncodeChunk(c); err != nil {
			return err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, data, 0); err != nil {
				s.logger.Warn("Ошибка записи кэша %s: %v", key, err)
			}
		}
		return nil
	})
	return data, err
}

// applyEdit применяет разрушение или установку блока от игрока
func (s *Server) applyEdit(ctx context.Context, e queuedEdit, placing bool) {
	name := e.sender.Username()
	current, err := s.world.GetBlock(e.pos)
	if err != nil {
		s.replyEditError(e.sender, err)
		return
	}

	if placing {
		if !block.IsAir(current) && !block.IsLiquid(current) {
			e.sender.sendError(protocol.ErrCodeBadRequest, "позиция занята")
			return
		}
		if block.IsMotionBlocking(e.block) {
			for _, p := range s.Players() {
				if physics.PlayerCollider.Occupies(p.Position(), e.pos) {
					e.sender.sendError(protocol.ErrCodeBadRequest, "позиция занята игроком")
					return
				}
			}
		}
	} else {
		if block.IsAir(current) {
			return
		}
		if current == block.BedrockBlockID {
			e.sender.sendError(protocol.ErrCodeForbidden, "бедрок нельзя разрушить")
			return
		}
	}

	if _, err := s.world.SetBlock(ctx, e.pos, e.block, name); err != nil {
		s.replyEditError(e.sender, err)
	}
}

func (s *Server) replyEditError(sess *Session, err error) {
	switch {
	case errors.Is(err, world.ErrChunkNotLoaded):
		sess.sendError(protocol.ErrCodeNotFound, "чанк не загружен")
	case errors.Is(err, world.ErrOutOfWorld), errors.Is(err, world.ErrUnknownBlock):
		sess.sendError(protocol.ErrCodeBadRequest, err.Error())
	default:
		s.logger.Error("Ошибка изменения блока от %s: %v", sess.Username(), err)
		sess.sendError(protocol.ErrCodeInternal, "внутренняя ошибка")
	}
}
