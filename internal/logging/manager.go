package logging

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
)

// Компоненты процесса, у каждого свой логгер и свой файл
const (
	ComponentServer  = "server"
	ComponentSession = "session"
	ComponentBridge  = "bridge"
	ComponentAPI     = "api"
	ComponentStorage = "storage"
	ComponentConsole = "console"
	ComponentEvents  = "eventbus"
)

// LoggerManager хранит логгеры по имени компонента
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его по текущим Options
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger как GetLogger, но при ошибке файла пишет только в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}
	opts := currentOptions()
	return &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    ERROR,
	}
}

// ApplyLevels выставляет уровни всем уже созданным логгерам
func (lm *LoggerManager) ApplyLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, l := range lm.loggers {
		l.SetLevels(consoleLevel, fileLevel)
	}
}

// SetLogLevel меняет уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	l, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	l.SetLevels(consoleLevel, fileLevel)
	return nil
}

// ListComponents возвращает имена компонентов по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for name, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", name, err))
		}
	}
	clear(lm.loggers)
	return errors.Join(errs...)
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetServerLogger() *Logger  { return GetComponentLogger(ComponentServer) }
func GetBridgeLogger() *Logger  { return GetComponentLogger(ComponentBridge) }
func GetAPILogger() *Logger     { return GetComponentLogger(ComponentAPI) }
func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }
func GetConsoleLogger() *Logger { return GetComponentLogger(ComponentConsole) }
