package backend

import (
	"errors"
)

// Common errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnknownNodeKind is returned by CreateNode for kinds the backend does not implement.
	ErrUnknownNodeKind = errors.New("backend: unknown node kind")

	// ErrMaterialXUnsupported is returned by MaterialX compilers that cannot
	// accept documents at the moment (for example, a disabled plugin).
	ErrMaterialXUnsupported = errors.New("backend: MaterialX not supported")
)

// Node kinds understood by the built-in node constructors.
const (
	KindUber         = "uber"
	KindImageTexture = "image_texture"
	KindArithmetic   = "arithmetic"
	KindInputLookup  = "input_lookup"
	KindUVTransform  = "uv_transform"
	KindShader       = "shader"
	KindMaterialX    = "materialx"
)

// MaterialNode is a renderer-side shading node.
//
// Implementations must tolerate SetInput with any value produced by another
// node's output, and report unsupported combinations as errors.
type MaterialNode interface {
	// Kind returns the node kind passed to CreateNode.
	Kind() string

	// SetInput binds a value (scalar, vector, image or another MaterialNode).
	SetInput(name string, value any) error

	// SetName assigns a display/debug name.
	SetName(name string)

	// SetID assigns the material numeric id.
	SetID(id uint32)

	// Destroy releases the node. The node must not be used afterwards.
	Destroy()
}

// Image is a realized texture resource.
type Image interface {
	Destroy()
}

// Context creates shading nodes for one renderer.
type Context interface {
	// Name returns the backend name.
	Name() string

	// CreateNode creates a node of the given kind.
	CreateNode(kind string) (MaterialNode, error)
}

// MaterialXCompiler is implemented by contexts that can compile a serialized
// MaterialX document into a single material node.
type MaterialXCompiler interface {
	CompileMaterialX(document string) (MaterialNode, error)
}

// AsMaterialXCompiler returns the MaterialX capability of ctx, if any.
func AsMaterialXCompiler(ctx Context) (MaterialXCompiler, bool) {
	c, ok := ctx.(MaterialXCompiler)
	return c, ok
}
