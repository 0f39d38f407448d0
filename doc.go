// Package shadegraph translates authored material networks into renderer
// material nodes.
//
// # Overview
//
// A material network is a directed graph of shading nodes identified by
// type id (for example "UsdPreviewSurface") plus named terminals (surface,
// displacement, volume). Resolution turns it into backend nodes:
//
//   - package network holds the graph model and its YAML dump format
//   - package registry maps type ids to node constructors, filled by
//     built-ins and by scanning a definitions root
//   - package nodes provides the built-in constructors
//   - package texture loads texture files, expands UDIM tiles and realizes
//     images in batches
//   - package mtlx translates networks into MaterialX documents
//   - package material drives resolution and owns the result
//
// This package holds the pieces shared by all of them: the Node interface
// constructors return, the per-material BuilderContext, construction
// outcomes and the package logger.
//
// # Quick Start
//
//	reg := registry.New()
//	nodes.RegisterBuiltins(reg)
//
//	pipeline := texture.NewPipeline()
//	defer pipeline.Close()
//
//	r := material.NewResolver(material.WithRegistry(reg))
//	m, err := r.CreateMaterial("/World/Looks/Wood", net, be, pipeline)
//	if err != nil {
//		return err
//	}
//	defer m.Release()
//
//	pipeline.Commit(images) // binds loaded textures to the material's nodes
//
// # Logging
//
// shadegraph logs through [log/slog] and is silent by default. See
// [SetLogger].
package shadegraph
