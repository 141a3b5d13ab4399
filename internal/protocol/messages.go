package protocol

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// MessageType тип кадра в заголовке (2 байта, big-endian)
type MessageType uint16

const (
	MsgLogin         MessageType = iota // 0: клиент -> сервер, вход
	MsgLoginResponse                    // 1: ответ на вход
	MsgKeepAlive                        // 2: сервер шлет, клиент возвращает тот же ID
	MsgChunkRequest                     // 3: запрос чанка
	MsgChunkData                        // 4: снимок чанка (zstd)
	MsgPlayerDigging                    // 5: разрушение блока
	MsgBlockPlacement                   // 6: установка блока
	MsgBlockChange                      // 7: рассылка изменения блока
	MsgChat                             // 8: чат и команды с префиксом '/'
	MsgError                            // 9: ошибка обработки
	MsgPlayerPosition                   // 10: позиция игрока
	MsgClientCommand                    // 11: respawn / запрос статистики
	MsgStats                            // 12: статистика сервера
	MsgDisconnect                       // 13: сервер закрывает сессию

	msgTypeCount
)

var messageNames = [...]string{
	MsgLogin:          "Login",
	MsgLoginResponse:  "LoginResponse",
	MsgKeepAlive:      "KeepAlive",
	MsgChunkRequest:   "ChunkRequest",
	MsgChunkData:      "ChunkData",
	MsgPlayerDigging:  "PlayerDigging",
	MsgBlockPlacement: "BlockPlacement",
	MsgBlockChange:    "BlockChange",
	MsgChat:           "Chat",
	MsgError:          "Error",
	MsgPlayerPosition: "PlayerPosition",
	MsgClientCommand:  "ClientCommand",
	MsgStats:          "Stats",
	MsgDisconnect:     "Disconnect",
}

func (t MessageType) String() string {
	if t < msgTypeCount {
		return messageNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", uint16(t))
}

// Valid сообщает, известен ли тип
func (t MessageType) Valid() bool {
	return t < msgTypeCount
}

type Login struct {
	Username string `json:"username"`
	Version  string `json:"version,omitempty"`
}

type LoginResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	UUID         string   `json:"uuid,omitempty"`
	Spawn        vec.Vec3 `json:"spawn"`
	Operator     bool     `json:"operator"`
	ViewDistance int      `json:"view_distance"`
	MOTD         string   `json:"motd,omitempty"`
}

type KeepAlive struct {
	ID int64 `json:"id"`
}

type ChunkRequest struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ChunkData содержит результат EncodeChunk; в JSON передается как base64
type ChunkData struct {
	X    int    `json:"x"`
	Z    int    `json:"z"`
	Data []byte `json:"data"`
}

// DiggingStatus стадия разрушения блока
type DiggingStatus uint8

const (
	DigStarted DiggingStatus = iota
	DigCancelled
	DigFinished
)

type PlayerDigging struct {
	Status DiggingStatus `json:"status"`
	Pos    vec.Vec3      `json:"pos"`
}

// BlockPlacement ставит блок в ячейку Pos. Block == 0 означает булыжник.
type BlockPlacement struct {
	Pos   vec.Vec3      `json:"pos"`
	Block block.BlockID `json:"block"`
}

type BlockChange struct {
	Pos   vec.Vec3      `json:"pos"`
	Block block.BlockID `json:"block"`
}

// ChatPosition место вывода сообщения у клиента
type ChatPosition uint8

const (
	ChatBox ChatPosition = iota
	ChatSystem
	ChatActionBar
)

type Chat struct {
	Message  string       `json:"message"`
	Position ChatPosition `json:"position,omitempty"`
	Sender   string       `json:"sender,omitempty"`
}

// Коды ошибок для Error
const (
	ErrCodeBadRequest   = 400
	ErrCodeUnauthorized = 401
	ErrCodeForbidden    = 403
	ErrCodeNotFound     = 404
	ErrCodeInternal     = 500
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type PlayerPosition struct {
	Pos vec.Vec3 `json:"pos"`
}

// ClientAction действие ClientCommand
type ClientAction uint8

const (
	ActionRespawn ClientAction = iota
	ActionRequestStats
)

type ClientCommand struct {
	Action ClientAction `json:"action"`
}

type Stats struct {
	TotalTicks     int64   `json:"total_ticks"`
	TPS            float64 `json:"tps"`
	Players        int     `json:"players"`
	ResidentChunks int     `json:"resident_chunks"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
}

type Disconnect struct {
	Reason string `json:"reason"`
}
