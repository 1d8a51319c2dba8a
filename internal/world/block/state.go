package block

import (
	"github.com/annel0/voxelmem/internal/vec"
)

// Direction: горизонтальное или вертикальное направление в мире.
// Север смотрит в сторону -Z, восток в сторону +X.
type Direction uint8

const (
	DirNorth Direction = iota
	DirSouth
	DirWest
	DirEast
	DirUp
	DirDown
)

// AllDirections перечисляет все шесть соседних направлений
var AllDirections = [...]Direction{DirNorth, DirSouth, DirWest, DirEast, DirUp, DirDown}

var directionNames = [...]string{"north", "south", "west", "east", "up", "down"}

// String возвращает имя направления в формате дескриптора
func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirSouth:
		return DirNorth
	case DirWest:
		return DirEast
	case DirEast:
		return DirWest
	case DirUp:
		return DirDown
	default:
		return DirUp
	}
}

// Offset возвращает единичный сдвиг в направлении d
func (d Direction) Offset() vec.Vec3 {
	switch d {
	case DirNorth:
		return vec.Vec3{Z: -1}
	case DirSouth:
		return vec.Vec3{Z: 1}
	case DirWest:
		return vec.Vec3{X: -1}
	case DirEast:
		return vec.Vec3{X: 1}
	case DirUp:
		return vec.Vec3{Y: 1}
	default:
		return vec.Vec3{Y: -1}
	}
}

func parseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// AttachFace определяет, к какой поверхности прикреплён блок (рычаг)
type AttachFace uint8

const (
	FaceFloor AttachFace = iota
	FaceWall
	FaceCeiling
)

var faceNames = [...]string{"floor", "wall", "ceiling"}

// String возвращает имя поверхности в формате дескриптора
func (f AttachFace) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return "unknown"
}

func parseFace(s string) (AttachFace, bool) {
	for i, name := range faceNames {
		if name == s {
			return AttachFace(i), true
		}
	}
	return 0, false
}

// State: полное состояние одной ячейки сетки.
// Нулевое значение соответствует воздуху.
type State struct {
	ID      BlockID
	Facing  Direction
	Face    AttachFace
	Lit     bool
	Powered bool
}

// Behavior возвращает поведение вида блока
func (s State) Behavior() (Behavior, bool) {
	return Get(s.ID)
}

// String возвращает дескриптор состояния
func (s State) String() string {
	return Serialize(s)
}

// Pack упаковывает состояние в 32 бита:
// [0..15] ID, [16..18] facing, [19..20] face, [21] lit, [22] powered.
func (s State) Pack() uint32 {
	v := uint32(s.ID) | uint32(s.Facing&0x7)<<16 | uint32(s.Face&0x3)<<19
	if s.Lit {
		v |= 1 << 21
	}
	if s.Powered {
		v |= 1 << 22
	}
	return v
}

// UnpackState восстанавливает состояние, упакованное методом Pack
func UnpackState(v uint32) State {
	return State{
		ID:      BlockID(v & 0xFFFF),
		Facing:  Direction((v >> 16) & 0x7),
		Face:    AttachFace((v >> 19) & 0x3),
		Lit:     v&(1<<21) != 0,
		Powered: v&(1<<22) != 0,
	}
}
