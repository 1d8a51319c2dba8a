package implementations

import (
	"testing"

	"github.com/annel0/voxelmem/internal/vec"
	"github.com/annel0/voxelmem/internal/world/block"
	"github.com/stretchr/testify/assert"
)

type fakeAPI struct {
	powered map[vec.Vec3]bool
}

func (f *fakeAPI) GetBlock(vec.Vec3) block.State { return block.State{} }

func (f *fakeAPI) IsPowered(pos vec.Vec3) bool { return f.powered[pos] }

func TestTorch_InvertsSupportPower(t *testing.T) {
	torch := &RedstoneWallTorchBehavior{}
	pos := vec.Vec3{X: 3, Y: 10, Z: 4}
	state := block.State{ID: block.RedstoneWallTorchBlockID, Facing: block.DirNorth, Lit: true}

	// Факел, смотрящий на север, держится за блок с юга (z+1)
	api := &fakeAPI{powered: map[vec.Vec3]bool{{X: 3, Y: 10, Z: 5}: true}}
	state = torch.NeighborChanged(api, pos, state)
	assert.False(t, state.Lit, "факел гаснет, если опорный блок запитан")

	api.powered = map[vec.Vec3]bool{}
	state = torch.NeighborChanged(api, pos, state)
	assert.True(t, state.Lit, "факел загорается, когда питание пропало")

	lit, ok := torch.Luminance(state)
	assert.True(t, ok)
	assert.True(t, lit)

	_, _, ok = torch.Actuation(state)
	assert.False(t, ok, "у факела нет возможности Actuation")
}

func TestLever_PullAndEmit(t *testing.T) {
	lever := &LeverBehavior{}
	state := block.State{ID: block.LeverBlockID, Face: block.FaceWall, Facing: block.DirSouth}

	dir, on := lever.Emits(state)
	assert.Equal(t, block.DirNorth, dir, "рычаг на стене питает блок позади себя")
	assert.False(t, on)

	state = lever.Pull(state)
	powered, facing, ok := lever.Actuation(state)
	assert.True(t, ok)
	assert.True(t, powered)
	assert.Equal(t, block.DirSouth, facing)

	_, ok = lever.Luminance(state)
	assert.False(t, ok, "у рычага нет возможности Luminance")

	floor := block.State{ID: block.LeverBlockID, Face: block.FaceFloor, Powered: true}
	dir, on = lever.Emits(floor)
	assert.Equal(t, block.DirDown, dir)
	assert.True(t, on)
}

func TestSolid_HasNoCapabilities(t *testing.T) {
	wool := NewSolid(block.OrangeWoolBlockID, "orange_wool")
	_, ok := wool.Luminance(wool.DefaultState())
	assert.False(t, ok)
	_, _, ok = wool.Actuation(wool.DefaultState())
	assert.False(t, ok)
	assert.Equal(t, wool.DefaultState(), wool.Pull(wool.DefaultState()))
}
