package vec

import "fmt"

// Vec3 представляет координаты вокселя в глобальном пространстве мира
type Vec3 struct {
	X int
	Y int
	Z int
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Region возвращает координаты региона ширины width, которому принадлежит воксель.
// Используется деление с округлением вниз, чтобы отрицательные координаты
// попадали в правильный регион.
func (v Vec3) Region(width int) Vec2 {
	return Vec2{X: floorDiv(v.X, width), Y: floorDiv(v.Z, width)}
}

// Local возвращает локальные координаты (x, z) внутри региона ширины width
func (v Vec3) Local(width int) (x, z int) {
	return floorMod(v.X, width), floorMod(v.Z, width)
}

// String возвращает читаемое представление координат
func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
