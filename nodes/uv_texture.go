package nodes

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// ImageInput is the image texture input bound to the realized image.
const ImageInput = "data"

var errNoFile = errors.New("nodes: texture has no file")

var uvTextureInputs = map[string]string{
	"st":       "uv",
	"scale":    "scale",
	"bias":     "bias",
	"fallback": "fallback",
}

var channelOps = map[string]string{
	"r": OpSelectX,
	"g": OpSelectY,
	"b": OpSelectZ,
	"a": OpSelectW,
}

type uvTexture struct {
	*mapped
	backend  backend.Context
	log      *slog.Logger
	channels map[string]backend.MaterialNode
}

// NewUVTexture builds an image texture node and queues its file on the
// context's texture pipeline. The image is bound when the batch commits.
func NewUVTexture(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
	file, _ := network.String(params["file"])
	if file == "" {
		return nil, errNoFile
	}

	m, err := newMapped(ctx, backend.KindImageTexture, uvTextureInputs, "rgb", "rgba")
	if err != nil {
		return nil, err
	}
	log := ctx.Log()
	n := &uvTexture{
		mapped:   m,
		backend:  ctx.Backend,
		log:      log,
		channels: make(map[string]backend.MaterialNode),
	}
	if err := setParams(n, params, "file", "sourceColorSpace", "wrapS", "wrapT"); err != nil {
		n.Release()
		return nil, err
	}

	colorSpace, _ := network.String(params["sourceColorSpace"])
	if colorSpace == "auto" {
		colorSpace = ""
	}
	wrap, _ := network.String(params["wrapS"])

	image := m.node
	queued := ctx.SubmitTexture(shadegraph.TextureCommit{
		Path:       file,
		ColorSpace: colorSpace,
		Wrap:       WrapMode(wrap),
		Channels:   requestedChannels(ctx.Network, ctx.CurrentNodePath),
		OnImage: func(img backend.Image) {
			if img == nil {
				log.Warn("nodes: texture not loaded", "file", file)
				return
			}
			live, err := n.guard.bindImage(image, img)
			switch {
			case !live:
				log.Debug("nodes: texture ready after release, not bound", "file", file)
			case err != nil:
				log.Error("nodes: failed to bind texture", "file", file, "err", err)
			}
		},
	})
	if !queued {
		log.Warn("nodes: no texture pipeline, texture ignored", "file", file)
	}
	return n, nil
}

// Output returns the texture node for rgb and rgba, and a channel select
// node for r, g, b and a.
func (n *uvTexture) Output(name string) shadegraph.Value {
	op, ok := channelOps[name]
	if !ok {
		return n.mapped.Output(name)
	}
	if sel, ok := n.channels[name]; ok {
		return sel
	}

	sel, err := n.backend.CreateNode(backend.KindArithmetic)
	if err != nil {
		n.log.Error("nodes: failed to create channel select", "output", name, "err", err)
		return nil
	}
	if err := errors.Join(sel.SetInput("op", op), sel.SetInput("color0", n.node)); err != nil {
		sel.Destroy()
		n.log.Error("nodes: failed to create channel select", "output", name, "err", err)
		return nil
	}
	n.channels[name] = sel
	return sel
}

func (n *uvTexture) Release() {
	n.guard.release()
	for name, sel := range n.channels {
		sel.Destroy()
		delete(n.channels, name)
	}
	n.mapped.Release()
}

// WrapMode maps a UsdUVTexture wrap token to an address mode. Unknown tokens
// and "useMetadata" repeat.
func WrapMode(token string) gputypes.AddressMode {
	switch strings.ToLower(token) {
	case "clamp", "black":
		return gputypes.AddressModeClampToEdge
	case "mirror":
		return gputypes.AddressModeMirrorRepeat
	}
	return gputypes.AddressModeRepeat
}

// requestedChannels returns how many channels consumers of path read:
// 1 for red only, 4 when alpha is read, 3 otherwise, and 0 when nothing
// is connected.
func requestedChannels(net *network.Network, path network.Path) int {
	if net == nil {
		return 0
	}
	need := 0
	consider := func(c network.Connection) {
		if c.Node != path {
			return
		}
		switch c.Output {
		case "r":
			need = max(need, 1)
		case "a", "rgba":
			need = 4
		default:
			need = max(need, 3)
		}
	}
	for _, p := range net.Paths() {
		node, _ := net.Node(p)
		for _, conns := range node.Inputs {
			for _, c := range conns {
				consider(c)
			}
		}
	}
	for _, c := range net.Terminals {
		consider(c)
	}
	return need
}
