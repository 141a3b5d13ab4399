package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"

	_ "github.com/annel0/blockverse/internal/world/block/implementations"
)

// Клиент для ручной проверки протокола: вход, запрос чанка, чат, статистика.
func main() {
	var (
		addr      = flag.String("addr", "localhost:25565", "адрес игрового сервера")
		transport = flag.String("transport", "tcp", "tcp или kcp")
		name      = flag.String("name", "tester", "имя игрока")
		chat      = flag.String("chat", "/tps", "сообщение или команда чата")
		dump      = flag.Bool("dump", false, "печатать hex-дамп кадров")
	)
	flag.Parse()

	fmt.Println("=== ТЕСТОВЫЙ КЛИЕНТ ПРОТОКОЛА ===")

	conn, err := network.Dial(*transport, *addr)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()
	fmt.Printf("✅ Подключен к %s (%s)\n", *addr, *transport)

	c := &client{conn: conn, dump: *dump}

	fmt.Println("\n=== ТЕСТ 1: ВХОД ===")
	var resp protocol.LoginResponse
	c.send(protocol.MsgLogin, protocol.Login{Username: *name, Version: "test-client"})
	if err := c.await(protocol.MsgLoginResponse, &resp); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if !resp.Success {
		log.Fatalf("❌ Вход отклонен: %s", resp.Message)
	}
	fmt.Printf("✅ Вход выполнен: UUID %s, позиция %v, оператор %v\n   MOTD: %s\n", resp.UUID, resp.Spawn, resp.Operator, resp.MOTD)

	fmt.Println("\n=== ТЕСТ 2: ЗАПРОС ЧАНКА ===")
	coords := resp.Spawn.ChunkCoords()
	c.send(protocol.MsgChunkRequest, protocol.ChunkRequest{X: coords.X, Z: coords.Z})
	var data protocol.ChunkData
	if err := c.await(protocol.MsgChunkData, &data); err != nil {
		log.Fatalf("❌ %v", err)
	}
	ch, err := protocol.DecodeChunk(data.Data)
	if err != nil {
		log.Fatalf("❌ Ошибка декодирования чанка: %v", err)
	}
	local := resp.Spawn.LocalInChunk()
	fmt.Printf("✅ Чанк %v: %d байт zstd, поверхность в колонне игрока y=%d\n", coords, len(data.Data), ch.Heightmap(chunk.WorldSurfaceWG).GetHeight(local.X, local.Z))
	printSkyColumn(ch, resp.Spawn)

	fmt.Println("\n=== ТЕСТ 3: ЧАТ ===")
	c.send(protocol.MsgChat, protocol.Chat{Message: *chat})
	var msg protocol.Chat
	if err := c.await(protocol.MsgChat, &msg); err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("💬 %s\n", msg.Message)

	fmt.Println("\n=== ТЕСТ 4: СТАТИСТИКА ===")
	c.send(protocol.MsgClientCommand, protocol.ClientCommand{Action: protocol.ActionRequestStats})
	var st protocol.Stats
	if err := c.await(protocol.MsgStats, &st); err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("📊 тиков %d, TPS %.2f, игроков %d, чанков %d, аптайм %dс\n", st.TotalTicks, st.TPS, st.Players, st.ResidentChunks, st.UptimeSeconds)

	fmt.Println("\n=== ТЕСТИРОВАНИЕ ЗАВЕРШЕНО ===")
}

type client struct {
	conn net.Conn
	dump bool
}

func (c *client) send(t protocol.MessageType, v interface{}) {
	buf, err := protocol.Marshal(t, v)
	if err != nil {
		log.Fatalf("❌ Ошибка сериализации %s: %v", t, err)
	}
	fmt.Printf("📤 %s (%d байт)\n", t, len(buf))
	if c.dump {
		fmt.Println(logging.HexDump(buf))
	}
	if _, err := c.conn.Write(buf); err != nil {
		log.Fatalf("❌ Ошибка отправки %s: %v", t, err)
	}
}

// await читает кадры до нужного типа, отвечая на keepalive и печатая остальные
func (c *client) await(want protocol.MessageType, v interface{}) error {
	deadline := time.Now().Add(10 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		f, err := protocol.ReadFrame(c.conn)
		if err != nil {
			return fmt.Errorf("ожидание %s: %w", want, err)
		}
		fmt.Printf("📥 %s (%d байт)\n", f.Type, len(f.Body))
		if c.dump {
			fmt.Println(logging.HexDump(f.Body))
		}

		switch f.Type {
		case want:
			return f.Decode(v)
		case protocol.MsgKeepAlive:
			var ka protocol.KeepAlive
			if err := f.Decode(&ka); err == nil {
				c.send(protocol.MsgKeepAlive, ka)
			}
		case protocol.MsgError:
			var e protocol.Error
			_ = f.Decode(&e)
			return fmt.Errorf("сервер вернул ошибку %d: %s", e.Code, e.Message)
		case protocol.MsgDisconnect:
			var d protocol.Disconnect
			_ = f.Decode(&d)
			return errors.New("отключен сервером: " + d.Reason)
		}
	}
}

// printSkyColumn печатает блоки и свет колонны игрока вокруг его высоты
func printSkyColumn(ch *chunk.Chunk, pos vec.Vec3) {
	for y := pos.Y + 3; y >= pos.Y-6; y-- {
		p := vec.Vec3{X: pos.X, Y: y, Z: pos.Z}
		fmt.Printf("   y=%4d %-12s небо %2d блоки %2d\n", y, block.Name(ch.GetBlock(p)), ch.GetLightLevel(p, chunk.Sky), ch.GetLightLevel(p, chunk.Block))
	}
}
