package network

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const woodYAML = `
material: /World/Looks/Wood
terminals:
  surface: {node: /World/Looks/Wood/Preview, output: surface}
primvars: [st]
nodes:
  - path: /World/Looks/Wood/Preview
    type: UsdPreviewSurface
    parameters:
      roughness: 0.4
      id: 7
      rpr:shadowCatcher: true
      diffuseColor: [0.8, 0.5, 0.2]
      cryptomatteName: wood
    inputs:
      diffuseColor: [{node: /World/Looks/Wood/Tex, output: rgb}]
  - path: /World/Looks/Wood/Tex
    type: UsdUVTexture
    parameters:
      file: "@textures/wood.<UDIM>.png@"
      scale: [1, 1, 1, 1]
`

func TestDecode(t *testing.T) {
	material, net, err := Decode(strings.NewReader(woodYAML))
	require.NoError(t, err)

	assert.Equal(t, Path("/World/Looks/Wood"), material)
	assert.Equal(t, []Path{"/World/Looks/Wood/Preview", "/World/Looks/Wood/Tex"}, net.Paths())
	assert.Equal(t, []string{"st"}, net.Primvars)
	assert.False(t, net.IsVolume())

	surface, ok := net.Terminal(TerminalSurface)
	require.True(t, ok)
	assert.Equal(t, Connection{Node: "/World/Looks/Wood/Preview", Output: "surface"}, surface)

	preview, ok := net.Node("/World/Looks/Wood/Preview")
	require.True(t, ok)
	assert.Equal(t, "UsdPreviewSurface", preview.TypeID)
	assert.Equal(t, float32(0.4), preview.Parameters["roughness"])
	assert.Equal(t, 7, preview.Parameters["id"])
	assert.Equal(t, true, preview.Parameters["rpr:shadowCatcher"])
	assert.Equal(t, Vec3f{0.8, 0.5, 0.2}, preview.Parameters["diffuseColor"])
	assert.Equal(t, "wood", preview.Parameters["cryptomatteName"])
	assert.Equal(t, []Connection{{Node: "/World/Looks/Wood/Tex", Output: "rgb"}}, preview.Inputs["diffuseColor"])

	tex, ok := net.Node("/World/Looks/Wood/Tex")
	require.True(t, ok)
	assert.Equal(t, AssetPath("textures/wood.<UDIM>.png"), tex.Parameters["file"])
	assert.Equal(t, Vec4f{1, 1, 1, 1}, tex.Parameters["scale"])
}

func TestDecode_RejectsBadVector(t *testing.T) {
	_, _, err := Decode(strings.NewReader(`
nodes:
  - path: /a
    type: X
    parameters:
      v: [1, 2, 3, 4, 5]
`))
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestEncodeDecode_PreservesValues(t *testing.T) {
	_, net, err := Decode(strings.NewReader(woodYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "/World/Looks/Wood", net))

	material, again, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Path("/World/Looks/Wood"), material)
	assert.Equal(t, net.Paths(), again.Paths())
	assert.Equal(t, net.Terminals, again.Terminals)
	for _, p := range net.Paths() {
		want, _ := net.Node(p)
		got, _ := again.Node(p)
		assert.Equal(t, want, got, "node %s", p)
	}
}

func TestNetwork_AddKeepsPosition(t *testing.T) {
	net := New()
	net.Add("/a", &Node{TypeID: "A"})
	net.Add("/b", &Node{TypeID: "B"})
	net.Add("/a", &Node{TypeID: "A2"})

	assert.Equal(t, []Path{"/a", "/b"}, net.Paths())
	n, _ := net.Node("/a")
	assert.Equal(t, "A2", n.TypeID)
}

func TestNode_InputNamesSorted(t *testing.T) {
	n := &Node{Inputs: map[string][]Connection{"st": nil, "file": nil, "bias": nil}}
	assert.Equal(t, []string{"bias", "file", "st"}, n.InputNames())
}

func TestPath_Name(t *testing.T) {
	assert.Equal(t, "Preview", Path("/World/Looks/Preview").Name())
	assert.Equal(t, "root", Path("root").Name())
}

func TestDumpFile(t *testing.T) {
	_, net, err := Decode(strings.NewReader(woodYAML))
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := DumpFile(dir, "/World/Looks/Wood", net)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "_World_Looks_Wood.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# material /World/Looks/Wood: 2 nodes, 1 terminals\n"))
	assert.Contains(t, string(data), "UsdUVTexture")
	assert.Contains(t, string(data), "@textures/wood.<UDIM>.png@")
}

func TestValueHelpers(t *testing.T) {
	i, ok := Int(float32(3))
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = Int(float32(3.5))
	assert.False(t, ok)

	s, ok := String(AssetPath("a.png"))
	assert.True(t, ok)
	assert.Equal(t, "a.png", s)

	b, ok := Bool(1)
	assert.True(t, ok)
	assert.True(t, b)
}

func TestNetwork_SelectTerminals(t *testing.T) {
	net := New()
	net.Connect("surface", "/m/usd", "surface")
	net.Connect("rpr:surface", "/m/rpr", "surface")
	net.Connect("mtlx:surface", "/m/mtlx", "out")
	net.Connect("rpr:displacement", "/m/rpr", "displacement")
	net.Connect("volume", "/m/vol", "volume")

	net.SelectTerminals("rpr")

	assert.Equal(t, map[string]Connection{
		"surface":      {Node: "/m/rpr", Output: "surface"},
		"displacement": {Node: "/m/rpr", Output: "displacement"},
		"volume":       {Node: "/m/vol", Output: "volume"},
	}, net.Terminals)
}
