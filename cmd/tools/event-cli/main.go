package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL    = flag.String("nats", "nats://127.0.0.1:4222", "адрес NATS")
		stream     = flag.String("stream", "BLOCKVERSE", "имя JetStream стрима")
		command    = flag.String("cmd", "tail", "Команда: tail, stats, types")
		eventTypes = flag.String("types", "", "Фильтр типов событий (через запятую)")
		sources    = flag.String("sources", "", "Фильтр источников (через запятую)")
		limit      = flag.Int("limit", 0, "Завершить после N событий (0 - без ограничения)")
		window     = flag.Duration("window", 30*time.Second, "Окно сбора для stats")
		payload    = flag.Bool("payload", true, "Печатать полезную нагрузку")
		since      = flag.Duration("since", 0, "Для tail: начать с событий за последний период (0 - только новые)")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к шине: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}
	if *since > 0 {
		filter.Since = time.Now().Add(-*since)
	}

	switch *command {
	case "tail":
		err = tailEvents(ctx, bus, filter, *limit, *payload)
	case "stats":
		err = showStats(ctx, bus, filter, *window)
	default:
		fmt.Printf("❌ Неизвестная команда: %s\n", *command)
		fmt.Println("Доступные команды: tail, stats, types")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s: %v", *command, err)
	}
}

// tailEvents печатает новые события до Ctrl+C или до limit событий
func tailEvents(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, limit int, withPayload bool) error {
	fmt.Printf("🎬 Ожидание событий (типы: %s)\n", describe(f.Types))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		printEvent(ev, withPayload)
		count++
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	mu.Lock()
	fmt.Printf("\n📊 Всего событий: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам за окно наблюдения
func showStats(ctx context.Context, bus *eventbus.JetStreamBus, f eventbus.Filter, window time.Duration) error {
	if st, err := bus.State(); err == nil {
		fmt.Printf("🗄  Стрим: %d сообщений, %d байт", st.Messages, st.Bytes)
		if st.Messages > 0 {
			fmt.Printf(", %s .. %s", st.First.Format(time.DateTime), st.Last.Format(time.DateTime))
		}
		fmt.Println()
	}
	f.Since = time.Time{}
	fmt.Printf("📊 Сбор статистики за %s\n", window)

	var mu sync.Mutex
	byType := make(map[string]int)
	bySource := make(map[string]int)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		byType[ev.EventType]++
		bySource[ev.Source]++
		mu.Unlock()
	})
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	printCounts("По типам", byType, window)
	printCounts("По источникам", bySource, window)
	return nil
}

func printCounts(title string, counts map[string]int, window time.Duration) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })

	fmt.Printf("\n%s (всего %d, %.2f/с):\n", title, total, float64(total)/window.Seconds())
	for _, k := range keys {
		fmt.Printf("  %-16s %6d\n", k, counts[k])
	}
}

func showTypes() {
	fmt.Println("📋 Типы событий:")
	for _, t := range []string{
		eventbus.TypeBlockChange,
		eventbus.TypeChunkLoaded,
		eventbus.TypePlayerJoined,
		eventbus.TypePlayerLeft,
		eventbus.TypeChat,
		eventbus.TypeOperator,
	} {
		fmt.Printf("  %s\n", t)
	}
}

func printEvent(ev *eventbus.Envelope, withPayload bool) {
	fmt.Printf("[%s] %-14s src=%s id=%s\n", ev.Timestamp.Local().Format(timeFormat), ev.EventType, ev.Source, ev.ID)
	if !withPayload || len(ev.Payload) == 0 {
		return
	}
	var pretty map[string]interface{}
	if err := json.Unmarshal(ev.Payload, &pretty); err != nil {
		fmt.Printf("    %s\n", ev.Payload)
		return
	}
	keys := make([]string, 0, len(pretty))
	for k := range pretty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("    %s: %v\n", k, pretty[k])
	}
}

func describe(list []string) string {
	if len(list) == 0 {
		return "все"
	}
	return strings.Join(list, ", ")
}

// parseStringList разбирает список через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
