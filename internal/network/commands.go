package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/chunk"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUsage            = errors.New("usage")
)

// CommandContext контекст выполнения команды
type CommandContext struct {
	Ctx    context.Context
	Server *Server
	Sender *Session // nil - консоль
	Args   []string
}

// SenderName имя отправителя команды
func (cc *CommandContext) SenderName() string {
	if cc.Sender == nil {
		return "console"
	}
	return cc.Sender.Username()
}

// Command команда чата с префиксом '/'
type Command struct {
	Name        string
	Usage       string
	Description string
	OpOnly      bool
	MinArgs     int
	Run         func(cc *CommandContext) (string, error)
}

// CommandRegistry реестр команд
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

// Register добавляет команду. Повторная регистрация имени - ошибка.
func (r *CommandRegistry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Run == nil {
		return errors.New("команда без имени или обработчика")
	}
	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("команда %q уже зарегистрирована", name)
	}
	r.commands[name] = cmd
	return nil
}

func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Names возвращает имена команд по алфавиту
func (r *CommandRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute разбирает строку без '/' и выполняет команду
func (r *CommandRegistry) Execute(cc *CommandContext, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrUnknownCommand
	}
	cmd, ok := r.Lookup(fields[0])
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	cc.Args = fields[1:]

	if cmd.OpOnly && cc.Sender != nil {
		ops := cc.Server.ops
		if ops == nil {
			return "", ErrPermissionDenied
		}
		isOp, err := ops.IsOperator(cc.Sender.Username())
		if err != nil {
			return "", err
		}
		if !isOp {
			return "", ErrPermissionDenied
		}
	}
	if len(cc.Args) < cmd.MinArgs {
		return "", fmt.Errorf("%w: /%s %s", ErrUsage, cmd.Name, cmd.Usage)
	}
	return cmd.Run(cc)
}

func trimCommand(message string) (string, bool) {
	if !strings.HasPrefix(message, "/") {
		return "", false
	}
	return strings.TrimSpace(message[1:]), true
}

func registerBuiltinCommands(r *CommandRegistry) {
	builtins := []*Command{
		{
			Name:        "help",
			Description: "список команд",
			Run: func(cc *CommandContext) (string, error) {
				var b strings.Builder
				b.WriteString("Команды:")
				for _, name := range r.Names() {
					cmd, _ := r.Lookup(name)
					fmt.Fprintf(&b, "\n/%s %s - %s", cmd.Name, cmd.Usage, cmd.Description)
				}
				return b.String(), nil
			},
		},
		{
			Name:        "list",
			Description: "игроки онлайн",
			Run: func(cc *CommandContext) (string, error) {
				names := cc.Server.PlayerNames()
				return fmt.Sprintf("Онлайн %d: %s", len(names), strings.Join(names, ", ")), nil
			},
		},
		{
			Name:        "tps",
			Description: "частота тиков",
			Run: func(cc *CommandContext) (string, error) {
				st := cc.Server.Stats()
				return fmt.Sprintf("TPS %.2f, тиков %d, чанков %d", st.TPS, st.TotalTicks, st.ResidentChunks), nil
			},
		},
		{
			Name:        "light",
			Usage:       "<x> <y> <z>",
			Description: "освещенность блока",
			MinArgs:     3,
			Run:         lightCommand,
		},
		{
			Name:        "op",
			Usage:       "<player>",
			Description: "выдать права оператора",
			OpOnly:      true,
			MinArgs:     1,
			Run: func(cc *CommandContext) (string, error) {
				if cc.Server.ops == nil {
					return "", errors.New("список операторов недоступен")
				}
				if !storage.ValidPlayerName(cc.Args[0]) {
					return "", fmt.Errorf("недопустимое имя %q", cc.Args[0])
				}
				if _, err := cc.Server.ops.Add(cc.Args[0]); err != nil {
					return "", err
				}
				cc.Server.logger.Info("%s выдал права оператора %s", cc.SenderName(), cc.Args[0])
				cc.Server.publish(cc.Ctx, eventbus.TypeOperator, operatorEvent{Name: cc.Args[0], Granted: true, By: cc.SenderName()})
				if target := cc.Server.findPlayer(cc.Args[0]); target != nil {
					target.sendSystem("Вы стали оператором")
				}
				return cc.Args[0] + " теперь оператор", nil
			},
		},
		{
			Name:        "deop",
			Usage:       "<player>",
			Description: "снять права оператора",
			OpOnly:      true,
			MinArgs:     1,
			Run: func(cc *CommandContext) (string, error) {
				if cc.Server.ops == nil {
					return "", errors.New("список операторов недоступен")
				}
				if err := cc.Server.ops.Remove(cc.Args[0]); err != nil {
					return "", err
				}
				cc.Server.logger.Info("%s снял права оператора с %s", cc.SenderName(), cc.Args[0])
				cc.Server.publish(cc.Ctx, eventbus.TypeOperator, operatorEvent{Name: cc.Args[0], Granted: false, By: cc.SenderName()})
				return cc.Args[0] + " больше не оператор", nil
			},
		},
	}
	for _, cmd := range builtins {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

func lightCommand(cc *CommandContext) (string, error) {
	var origin vec.Vec3
	if cc.Sender != nil {
		origin = cc.Sender.Position()
	}
	x, err := parseCoord(cc.Args[0], origin.X)
	if err != nil {
		return "", err
	}
	y, err := parseCoord(cc.Args[1], origin.Y)
	if err != nil {
		return "", err
	}
	z, err := parseCoord(cc.Args[2], origin.Z)
	if err != nil {
		return "", err
	}
	pos := vec.Vec3{X: x, Y: y, Z: z}

	w := cc.Server.world
	sky, err := w.LightAt(pos, chunk.Sky)
	if err != nil {
		return "", err
	}
	blk, err := w.LightAt(pos, chunk.Block)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Свет в %d %d %d: небо %d, блоки %d", x, y, z, sky, blk), nil
}

// parseCoord разбирает координату, '~' задает смещение от base
func parseCoord(s string, base int) (int, error) {
	if strings.HasPrefix(s, "~") {
		if s == "~" {
			return base, nil
		}
		d, err := strconv.Atoi(s[1:])
		if err != nil {
			return 0, fmt.Errorf("%w: координата %q", ErrUsage, s)
		}
		return base + d, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: координата %q", ErrUsage, s)
	}
	return v, nil
}
