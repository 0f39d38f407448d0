package shadegraph

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// BuilderContext is the mutable state of one resolution call. It is passed
// to every Constructor and is never shared between resolutions.
type BuilderContext struct {
	// Network is the network being resolved.
	Network *network.Network

	// MaterialPath is the scene path of the material.
	MaterialPath network.Path

	// Backend creates renderer nodes.
	Backend backend.Context

	// Textures receives texture requests. Requests are resolved later, by a
	// batch commit.
	Textures TextureSubmitter

	// CurrentNodePath is the path of the node being constructed.
	CurrentNodePath network.Path

	// Flags accumulated by constructors and copied into the result.
	IsShadowCatcher     bool
	IsReflectionCatcher bool
	UVPrimvarName       string
	DisplacementScale   network.Value

	Logger *slog.Logger
}

// Log returns the context logger annotated with the current node path.
func (c *BuilderContext) Log() *slog.Logger {
	l := OrDefault(c.Logger)
	if c.CurrentNodePath != "" {
		l = l.With("node", string(c.CurrentNodePath))
	}
	return l
}

// SubmitTexture queues a texture request if the context has a texture sink.
// It reports whether the request was queued.
func (c *BuilderContext) SubmitTexture(commit TextureCommit) bool {
	if c.Textures == nil {
		return false
	}
	c.Textures.Submit(commit)
	return true
}

// TextureSubmitter accepts texture requests during traversal.
type TextureSubmitter interface {
	Submit(commit TextureCommit)
}

// TextureCommit is a deferred texture request.
type TextureCommit struct {
	// Path is the file path, optionally a UDIM template containing "<UDIM>".
	Path string

	// ColorSpace is the source color space ("srgb", "raw", or empty for auto).
	ColorSpace string

	// Wrap is the address mode used by the sampler.
	Wrap gputypes.AddressMode

	// Channels is the number of channels the consumer needs (0 keeps the
	// file's channel count).
	Channels int

	// OnImage receives the realized image, which may be nil.
	OnImage func(img backend.Image)
}
