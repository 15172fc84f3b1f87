package scene

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssets(t *testing.T) *Assets {
	t.Helper()
	return NewAssets(t.TempDir(), nil)
}

func TestAssetWriteReadDelete(t *testing.T) {
	a := newTestAssets(t)

	require.NoError(t, a.WriteBytes("materials/sky.mat", []byte("blue")))
	assert.True(t, a.Exists("materials/sky.mat"))

	data, err := a.ReadBytes("materials/sky.mat")
	require.NoError(t, err)
	assert.Equal(t, []byte("blue"), data)

	require.NoError(t, a.Delete("materials/sky.mat"))
	assert.False(t, a.Exists("materials/sky.mat"))

	_, err = a.ReadBytes("materials/sky.mat")
	assert.Error(t, err)
}

func TestAssetPathTraversalRejected(t *testing.T) {
	a := newTestAssets(t)

	assert.Error(t, a.WriteBytes("../outside.txt", []byte("x")))
	assert.Error(t, a.WriteBytes("/etc/passwd", []byte("x")))
	_, err := a.ReadBytes("..")
	assert.Error(t, err)
	assert.False(t, a.Exists("../outside.txt"))
}

func TestAssetHashStable(t *testing.T) {
	a := newTestAssets(t)

	require.NoError(t, a.WriteBytes("data.bin", []byte{0x00, 0x01, 0x02}))
	h1, err := a.Hash("data.bin")
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	require.NoError(t, a.WriteBytes("copy.bin", []byte{0x00, 0x01, 0x02}))
	h2, err := a.Hash("copy.bin")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, a.WriteBytes("data.bin", []byte{0xff}))
	h3, err := a.Hash("data.bin")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestIsSourceByPattern(t *testing.T) {
	a := newTestAssets(t)

	assert.True(t, a.IsSource("scripts/Player.cs"))
	assert.True(t, a.IsSource("deep/nested/behavior.js"))
	assert.True(t, a.IsSource("fx/water.shader"))
	assert.False(t, a.IsSource("textures/grass.png"))
	assert.False(t, a.IsSource("materials/sky.mat"))
}

func TestImportHookFiresOnWrite(t *testing.T) {
	a := newTestAssets(t)

	var imported []string
	a.SetImportHook(func(resourcePath string) error {
		imported = append(imported, resourcePath)
		return nil
	})

	require.NoError(t, a.WriteBytes("a.mat", []byte("1")))
	require.NoError(t, a.WriteBytes("b.mat", []byte("2")))
	assert.Equal(t, []string{"a.mat", "b.mat"}, imported)
}

func TestScan(t *testing.T) {
	a := newTestAssets(t)

	require.NoError(t, a.WriteBytes("textures/grass.png", []byte("png")))
	require.NoError(t, a.WriteBytes("scripts/Player.cs", []byte("class Player {}")))

	infos, err := a.Scan()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	assert.Equal(t, "scripts/Player.cs", infos[0].Path)
	assert.True(t, infos[0].Source)
	assert.Equal(t, "textures/grass.png", infos[1].Path)
	assert.False(t, infos[1].Source)
	assert.Positive(t, infos[1].Size)
}
