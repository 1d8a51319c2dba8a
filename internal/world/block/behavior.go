package block

import (
	"github.com/annel0/voxelmem/internal/vec"
)

// Property: свойство состояния, которое вид блока выводит в дескриптор
type Property uint8

const (
	PropFace Property = iota
	PropFacing
	PropLit
	PropPowered
)

var propertyNames = [...]string{"face", "facing", "lit", "powered"}

// Name возвращает имя свойства в дескрипторе
func (p Property) Name() string {
	return propertyNames[p]
}

// Behavior определяет вид блока и его возможности.
//
// Возможности ячейки выражены явно: Luminance (только чтение, "горит")
// и Actuation (переключаемое "запитан" с ориентацией). Вид блока,
// не обладающий возможностью, возвращает ok == false.
type Behavior interface {
	ID() BlockID
	Name() string
	DefaultState() State
	// Properties перечисляет свойства состояния в порядке сериализации
	Properties() []Property

	Luminance(s State) (lit bool, ok bool)
	Actuation(s State) (powered bool, facing Direction, ok bool)
	// Pull переключает актуатор; для остальных видов возвращает s без изменений
	Pull(s State) State
	// Emits сообщает, запитывает ли блок соседний блок в направлении toward
	Emits(s State) (toward Direction, on bool)
	// NeighborChanged вызывается движком после изменения соседнего блока
	// и возвращает новое состояние ячейки
	NeighborChanged(api BlockAPI, pos vec.Vec3, s State) State
}

// StaticBehavior содержит реализацию по умолчанию для пассивных блоков.
// Встраивается в конкретные виды, которым не нужны возможности.
type StaticBehavior struct{}

func (StaticBehavior) Properties() []Property { return nil }

func (StaticBehavior) Luminance(State) (bool, bool) { return false, false }

func (StaticBehavior) Actuation(State) (bool, Direction, bool) { return false, 0, false }

func (StaticBehavior) Pull(s State) State { return s }

func (StaticBehavior) Emits(State) (Direction, bool) { return 0, false }

func (StaticBehavior) NeighborChanged(_ BlockAPI, _ vec.Vec3, s State) State { return s }
