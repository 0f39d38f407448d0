package mtlx

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadegraph/network"
)

const stdlibDoc = `<?xml version="1.0"?>
<materialx version="1.38">
  <nodedef name="ND_standard_surface_surfaceshader" node="standard_surface" nodegroup="pbr">
    <input name="base" type="float" value="1"/>
    <input name="base_color" type="color3" value="0.8, 0.8, 0.8"/>
    <output name="out" type="surfaceshader"/>
  </nodedef>
  <nodedef name="ND_image_color3" node="image" nodegroup="texture2d">
    <input name="file" type="filename" value=""/>
    <output name="out" type="color3"/>
  </nodedef>
</materialx>
`

func loadStdlib(t *testing.T) *Definitions {
	t.Helper()
	doc, err := Parse(strings.NewReader(stdlibDoc))
	require.NoError(t, err)
	defs := NewDefinitions()
	defs.Add(doc)
	return defs
}

func woodNetwork() *network.Network {
	net := network.New()
	net.Add("/Looks/Wood/Tex", &network.Node{
		TypeID: "ND_image_color3",
		Parameters: map[string]network.Value{
			"file":         network.AssetPath("wood.png"),
			"uaddressmode": "periodic",
		},
	})
	net.Add("/Looks/Wood/Surface", &network.Node{
		TypeID:     "ND_standard_surface_surfaceshader",
		Parameters: map[string]network.Value{"base": float32(0.5)},
		Inputs: map[string][]network.Connection{
			"base_color": {{Node: "/Looks/Wood/Tex", Output: "out"}},
		},
	})
	net.Connect(network.TerminalSurface, "/Looks/Wood/Surface", "out")
	return net
}

func TestParseNodeDefs(t *testing.T) {
	defs := loadStdlib(t)

	assert.Equal(t, []string{"ND_image_color3", "ND_standard_surface_surfaceshader"}, defs.Names())
	assert.True(t, defs.IsMaterialX("ND_image_color3"))
	assert.False(t, defs.IsMaterialX("UsdPreviewSurface"))

	def, ok := defs.Lookup("ND_standard_surface_surfaceshader")
	require.True(t, ok)
	assert.Equal(t, "standard_surface", def.Node)
	assert.Equal(t, "pbr", def.NodeGroup)
	assert.Equal(t, "surfaceshader", def.OutputType())

	in, ok := def.Input("base_color")
	require.True(t, ok)
	assert.Equal(t, "color3", in.Type)
	_, ok = def.Input("missing")
	assert.False(t, ok)
}

func TestBuildDocument(t *testing.T) {
	defs := loadStdlib(t)

	got, err := NetworkTranslator{}.BuildDocument(woodNetwork(), "/Looks/Wood/Surface", "/Looks/Wood", defs)
	require.NoError(t, err)

	want := &Document{
		Version: Version,
		Nodes: []Node{
			{
				XMLName: xml.Name{Local: "image"},
				Name:    "Tex",
				Type:    "color3",
				Inputs: []Input{
					{Name: "file", Type: "filename", Value: "wood.png"},
					{Name: "uaddressmode", Type: "string", Value: "periodic"},
				},
			},
			{
				XMLName: xml.Name{Local: "standard_surface"},
				Name:    "Surface",
				Type:    "surfaceshader",
				Inputs: []Input{
					{Name: "base_color", Type: "color3", NodeName: "Tex"},
					{Name: "base", Type: "float", Value: "0.5"},
				},
			},
			{
				XMLName: xml.Name{Local: "surfacematerial"},
				Name:    "Wood",
				Type:    "material",
				Inputs:  []Input{{Name: "surfaceshader", Type: "surfaceshader", NodeName: "Surface"}},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildDocument mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeParse(t *testing.T) {
	defs := loadStdlib(t)
	doc, err := NetworkTranslator{}.BuildDocument(woodNetwork(), "/Looks/Wood/Surface", "/Looks/Wood", defs)
	require.NoError(t, err)

	text, err := doc.Serialize()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `<surfacematerial name="Wood" type="material">`)

	parsed, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	if diff := cmp.Diff(doc, parsed, cmpopts.IgnoreFields(Document{}, "XMLName")); diff != "" {
		t.Errorf("parsed document mismatch (-want +got):\n%s", diff)
	}

	surface, ok := parsed.Node("Surface")
	require.True(t, ok)
	assert.Equal(t, "standard_surface", surface.Category())
}

func TestBuildDocumentErrors(t *testing.T) {
	defs := loadStdlib(t)

	t.Run("missing terminal", func(t *testing.T) {
		_, err := NetworkTranslator{}.BuildDocument(woodNetwork(), "/Nope", "/Looks/Wood", defs)
		assert.ErrorIs(t, err, ErrNoDocument)
	})

	t.Run("no definitions", func(t *testing.T) {
		_, err := NetworkTranslator{}.BuildDocument(woodNetwork(), "/Looks/Wood/Surface", "/Looks/Wood", nil)
		assert.ErrorIs(t, err, ErrNoDocument)
	})

	t.Run("unknown node", func(t *testing.T) {
		net := woodNetwork()
		net.Add("/Looks/Wood/Tex", &network.Node{TypeID: "UsdUVTexture"})
		_, err := NetworkTranslator{}.BuildDocument(net, "/Looks/Wood/Surface", "/Looks/Wood", defs)
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("cycle", func(t *testing.T) {
		net := network.New()
		net.Add("/a", &network.Node{
			TypeID: "ND_image_color3",
			Inputs: map[string][]network.Connection{"file": {{Node: "/b"}}},
		})
		net.Add("/b", &network.Node{
			TypeID: "ND_image_color3",
			Inputs: map[string][]network.Connection{"file": {{Node: "/a"}}},
		})
		_, err := NetworkTranslator{}.BuildDocument(net, "/a", "/M", defs)
		assert.ErrorIs(t, err, errCycle)
	})

	t.Run("multiple connections", func(t *testing.T) {
		net := woodNetwork()
		net.Add("/Looks/Wood/Surface", &network.Node{
			TypeID: "ND_standard_surface_surfaceshader",
			Inputs: map[string][]network.Connection{
				"base_color": {{Node: "/Looks/Wood/Tex"}, {Node: "/Looks/Wood/Tex"}},
			},
		})
		_, err := NetworkTranslator{}.BuildDocument(net, "/Looks/Wood/Surface", "/Looks/Wood", defs)
		assert.Error(t, err)
	})
}

func TestUniqueNames(t *testing.T) {
	defs := loadStdlib(t)
	net := network.New()
	net.Add("/a/Tex", &network.Node{TypeID: "ND_image_color3"})
	net.Add("/b/Tex", &network.Node{
		TypeID: "ND_image_color3",
		Inputs: map[string][]network.Connection{"file": {{Node: "/a/Tex"}}},
	})

	doc, err := NetworkTranslator{}.BuildDocument(net, "/b/Tex", "/1st-material", defs)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "Tex", doc.Nodes[0].Name)
	assert.Equal(t, "Tex_2", doc.Nodes[1].Name)
	assert.Equal(t, "N1st_material", doc.Nodes[2].Name)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in    network.Value
		value string
		typ   string
	}{
		{true, "true", "boolean"},
		{3, "3", "integer"},
		{float32(0.25), "0.25", "float"},
		{"abc", "abc", "string"},
		{network.AssetPath("a.png"), "a.png", "filename"},
		{network.Vec2f{1, 2}, "1, 2", "vector2"},
		{network.Vec3f{0.5, 0.5, 1}, "0.5, 0.5, 1", "color3"},
		{network.Vec4f{0, 0, 0, 1}, "0, 0, 0, 1", "color4"},
	}
	for _, tt := range tests {
		value, typ := FormatValue(tt.in)
		assert.Equal(t, tt.value, value, "value of %v", tt.in)
		assert.Equal(t, tt.typ, typ, "type of %v", tt.in)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pbr")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "stdlib.mtlx"), []byte(stdlibDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.mtlx"), []byte("<materialx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	defs := NewDefinitions()
	n, err := defs.LoadDir(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken.mtlx")
	assert.Equal(t, 1, n)
	assert.True(t, defs.IsMaterialX("ND_image_color3"))
	assert.Len(t, defs.Documents(), 1)
}
