package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_RegionAndLocal(t *testing.T) {
	cases := []struct {
		pos    Vec3
		region Vec2
		lx, lz int
	}{
		{Vec3{X: 0, Y: 5, Z: 0}, Vec2{X: 0, Y: 0}, 0, 0},
		{Vec3{X: 15, Y: 5, Z: 17}, Vec2{X: 0, Y: 1}, 15, 1},
		{Vec3{X: -1, Y: 5, Z: -16}, Vec2{X: -1, Y: -1}, 15, 0},
		{Vec3{X: -17, Y: 0, Z: 33}, Vec2{X: -2, Y: 2}, 15, 1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.region, tc.pos.Region(16), "регион для %v", tc.pos)
		lx, lz := tc.pos.Local(16)
		assert.Equal(t, tc.lx, lx, "локальный x для %v", tc.pos)
		assert.Equal(t, tc.lz, lz, "локальный z для %v", tc.pos)
	}
}

func TestVec2_Origin(t *testing.T) {
	x, z := Vec2{X: -2, Y: 3}.Origin(16)
	assert.Equal(t, -32, x)
	assert.Equal(t, 48, z)
}
