package block

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]Behavior)
	byName     = make(map[string]Behavior)
)

// Register добавляет поведение блока в регистр.
// Повторная регистрация того же ID или имени: ошибка программиста.
func Register(behavior Behavior) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[behavior.ID()]; exists {
		panic(fmt.Sprintf("block: повторная регистрация ID %d", behavior.ID()))
	}
	if _, exists := byName[behavior.Name()]; exists {
		panic(fmt.Sprintf("block: повторная регистрация имени %q", behavior.Name()))
	}
	registry[behavior.ID()] = behavior
	byName[behavior.Name()] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (Behavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	behavior, exists := registry[id]
	return behavior, exists
}

// Lookup возвращает поведение по имени блока
func Lookup(name string) (Behavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	behavior, exists := byName[name]
	return behavior, exists
}

// Names возвращает отсортированный список зарегистрированных имён
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BlockID представляет идентификатор вида блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	DirtBlockID                 // 3

	// Строительные блоки (начиная с 100)
	WhiteWoolBlockID   BlockID = 100
	OrangeWoolBlockID  BlockID = 101
	MagentaWoolBlockID BlockID = 102
	ScaffoldingBlockID BlockID = 103

	// Сигнальные блоки (начиная с 200)
	RedstoneWallTorchBlockID BlockID = 200 // Источник бита для чтения
	LeverBlockID             BlockID = 201 // Актуатор бита для записи
)
