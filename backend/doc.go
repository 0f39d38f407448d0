// Package backend defines the renderer side of material translation.
//
// A backend exposes a [Context] that creates shading nodes by kind, an
// [Image] type for realized textures, and optionally a [MaterialXCompiler]
// for compiling whole MaterialX documents into a single node.
//
// # Backend Registration
//
// Backends are registered by name, usually from init() functions, and
// selected at runtime by configuration:
//
//	backend.Register("recorder", func() backend.Context { return recorder.New() })
//
//	ctx, err := backend.Get(cfg.Backend)
//
// Registering a name twice replaces the earlier factory.
package backend
