package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты сервера с отдельными файлами логов
const (
	ComponentServer   = "server"
	ComponentNetwork  = "network"
	ComponentWorld    = "world"
	ComponentLight    = "light"
	ComponentAPI      = "api"
	ComponentEventBus = "eventbus"
)

// LoggerManager хранит логгеры компонентов и общий порог уровней.
// Порог, заданный через SetAllLevels, получают и логгеры, созданные позже.
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger

	levelSet     bool
	consoleLevel LogLevel
	fileLevel    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

func newLoggerManager() *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger)}
}

// GetLogger возвращает логгер компонента, открывая файл при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	if lm.levelSet {
		logger.SetLevels(lm.consoleLevel, lm.fileLevel)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента. Если файл открыть не удалось,
// логгер пишет только в консоль.
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}
	defaultLogger.Warn("%v, используется только консоль", err)

	lm.mu.RLock()
	console := defaultLogger.minConsoleLevel
	if lm.levelSet {
		console = lm.consoleLevel
	}
	lm.mu.RUnlock()
	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: console,
		minFileLevel:    ERROR,
	}
}

// SetAllLevels задает консольный порог всем логгерам, включая будущие.
// Файловый порог не выше DEBUG.
func (lm *LoggerManager) SetAllLevels(consoleLevel LogLevel) {
	fileLevel := min(consoleLevel, DEBUG)

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.levelSet = true
	lm.consoleLevel = consoleLevel
	lm.fileLevel = fileLevel
	for _, logger := range lm.loggers {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// SetLogLevel меняет пороги одного уже созданного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не создан", component)
	}
	logger.SetLevels(consoleLevel, fileLevel)
	return nil
}

// ListComponents возвращает отсортированные имена созданных логгеров
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var firstErr error
	for name, logger := range lm.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("закрытие логгера %s: %w", name, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return firstErr
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetServerLogger() *Logger  { return GetComponentLogger(ComponentServer) }
func GetNetworkLogger() *Logger { return GetComponentLogger(ComponentNetwork) }
func GetWorldLogger() *Logger   { return GetComponentLogger(ComponentWorld) }
func GetLightLogger() *Logger   { return GetComponentLogger(ComponentLight) }
func GetAPILogger() *Logger     { return GetComponentLogger(ComponentAPI) }
