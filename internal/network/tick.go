package network

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/protocol"
)

// Run выполняет тик-цикл с частотой из конфигурации до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один тик: keepalive, очереди чата и правок, таймауты
func (s *Server) Tick(ctx context.Context) {
	start := time.Now()
	ticks := s.totalTicks.Add(1)
	s.updateTPS(start)

	s.keepAlive++
	if s.cfg.KeepAliveTicks > 0 && s.keepAlive >= s.cfg.KeepAliveTicks {
		s.keepAlive = 0
		for _, sess := range s.Players() {
			sess.keepAliveID.Store(ticks)
			_ = sess.Send(protocol.MsgKeepAlive, protocol.KeepAlive{ID: ticks})
		}
	}

	s.drainChat(ctx)
	s.drainEdits(ctx, s.digs, false)
	s.drainEdits(ctx, s.places, true)
	s.sweepTimeouts(start)

	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// updateTPS сглаживает мгновенную частоту тиков экспонентой
func (s *Server) updateTPS(now time.Time) {
	if !s.lastTick.IsZero() {
		if dt := now.Sub(s.lastTick).Seconds(); dt > 0 {
			prev := math.Float64frombits(s.tpsBits.Load())
			s.tpsBits.Store(math.Float64bits(prev*0.9 + (1/dt)*0.1))
		}
	}
	s.lastTick = now
}

func (s *Server) drainChat(ctx context.Context) {
	for i := 0; i < maxChatPerTick; i++ {
		select {
		case c := <-s.chat:
			s.deliverChat(ctx, c)
		default:
			return
		}
	}
}

func (s *Server) deliverChat(ctx context.Context, c queuedChat) {
	if c.sender == nil {
		s.logger.Info("[system] %s", c.message)
		s.broadcast(protocol.MsgChat, protocol.Chat{Message: c.message, Position: protocol.ChatSystem})
		return
	}
	if c.sender.State() != StatePlay {
		return
	}

	if line, ok := trimCommand(c.message); ok {
		reply, err := s.commands.Execute(&CommandContext{Ctx: ctx, Server: s, Sender: c.sender}, line)
		if err != nil {
			c.sender.sendSystem("Command error: " + err.Error())
			return
		}
		if reply != "" {
			c.sender.sendSystem(reply)
		}
		return
	}

	name := c.sender.Username()
	s.logger.Info("<%s> %s", name, c.message)
	s.broadcast(protocol.MsgChat, protocol.Chat{Message: "<" + name + "> " + c.message, Position: protocol.ChatBox, Sender: name})
	s.publish(ctx, eventbus.TypeChat, chatEvent{Sender: name, Message: c.message})
}

func (s *Server) drainEdits(ctx context.Context, q chan queuedEdit, placing bool) {
	for i := 0; i < maxEditsPerTick; i++ {
		select {
		case e := <-q:
			if e.sender.State() == StatePlay {
				s.applyEdit(ctx, e, placing)
			}
		default:
			return
		}
	}
}

func (s *Server) sweepTimeouts(now time.Time) {
	for _, sess := range s.snapshot() {
		if sess.State() == StateClosed || sess.idleFor(now) <= s.timeout {
			continue
		}
		s.logger.Info("Соединение %s (%s) отключено по таймауту", sess.id, sess.Username())
		s.metrics.Disconnects.WithLabelValues("timeout").Inc()
		sess.Close("timeout")
	}
}

// Stats снимок статистики сервера
func (s *Server) Stats() protocol.Stats {
	return protocol.Stats{
		TotalTicks:     s.TotalTicks(),
		TPS:            math.Round(s.TPS()*100) / 100,
		Players:        len(s.Players()),
		ResidentChunks: len(s.world.ResidentChunks()),
		UptimeSeconds:  int64(s.Uptime().Seconds()),
	}
}

// RunCommand выполняет команду от имени консоли
func (s *Server) RunCommand(ctx context.Context, line string) (string, error) {
	if cmd, ok := trimCommand(line); ok {
		line = cmd
	}
	if line == "" {
		return "", errors.New("пустая команда")
	}
	return s.commands.Execute(&CommandContext{Ctx: ctx, Server: s}, line)
}
