package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/backend/recorder"
	"github.com/gogpu/shadegraph/material"
	"github.com/gogpu/shadegraph/mtlx"
	"github.com/gogpu/shadegraph/network"
	"github.com/gogpu/shadegraph/nodes"
	"github.com/gogpu/shadegraph/registry"
)

// session is the state shared by all materials of one invocation.
type session struct {
	cfg      *config
	logger   *slog.Logger
	registry *registry.Registry
	defs     *mtlx.Definitions
	resolver *material.Resolver
}

func newSession(ctx context.Context, cfg *config, logger *slog.Logger) (*session, error) {
	shadegraph.SetLogger(logger)
	s := &session{cfg: cfg, logger: logger}
	s.registry = registry.New(
		registry.WithLogger(logger),
		registry.WithMaterialXFactory(genericNode),
	)
	nodes.RegisterBuiltins(s.registry)

	opts := []material.Option{
		material.WithRegistry(s.registry),
		material.WithLogger(logger),
		material.WithDumpDir(cfg.DumpDir),
	}
	if cfg.Definitions != "" {
		if _, err := s.registry.ScanAssetSources(ctx, cfg.Definitions); err != nil {
			return nil, err
		}
		s.defs = mtlx.NewDefinitions()
		n, err := s.defs.LoadDir(filepath.Join(cfg.Definitions, registry.MaterialsDir))
		if err != nil {
			logger.Warn("some MaterialX definitions failed to load", "err", err)
		}
		logger.Debug("loaded MaterialX definitions", "files", n, "nodedefs", len(s.defs.Names()))
		opts = append(opts, material.WithMaterialX(s.defs, nil))
	}
	s.resolver = material.NewResolver(opts...)

	recorder.Register(recorder.WithMaterialX(validateDocument))
	return s, nil
}

// backend opens a fresh backend context.
func (s *session) backend() (backend.Context, error) {
	be, err := backend.Get(s.cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", s.cfg.Backend, err)
	}
	return be, nil
}

// validateDocument accepts documents that parse back as MaterialX.
func validateDocument(doc string) error {
	_, err := mtlx.Parse(strings.NewReader(doc))
	return err
}

// genericNode builds nodes for scanned MaterialX definitions: one backend
// node whose kind is the nodedef's node category.
func genericNode(def *mtlx.NodeDef, _ string) shadegraph.Constructor {
	kind := def.Node
	if kind == "" {
		return nil
	}
	return func(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
		bn, err := ctx.Backend.CreateNode(kind)
		if err != nil {
			return nil, err
		}
		bn.SetName(ctx.CurrentNodePath.Name())
		n := &passNode{bn: bn}
		for name, v := range params {
			if err := bn.SetInput(name, v); err != nil {
				bn.Destroy()
				return nil, fmt.Errorf("%s: input %s: %w", def.Name, name, err)
			}
		}
		return n, nil
	}
}

// passNode forwards inputs to a single backend node.
type passNode struct {
	bn backend.MaterialNode
}

func (n *passNode) SetInput(name string, v shadegraph.Value) error { return n.bn.SetInput(name, v) }
func (n *passNode) Output(string) shadegraph.Value               { return n.bn }
func (n *passNode) Release()                                     { n.bn.Destroy() }
