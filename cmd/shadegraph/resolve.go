package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/spf13/cobra"

	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/gpu"
	"github.com/gogpu/shadegraph/internal/parallel"
	"github.com/gogpu/shadegraph/material"
	"github.com/gogpu/shadegraph/network"
	"github.com/gogpu/shadegraph/texture"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE...",
		Short: "Resolve material networks and report the result",
		Long: `Resolve decodes each YAML network, resolves all of them in parallel
against one node registry, then loads and uploads their textures in a
single batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return s.resolve(cmd.OutOrStdout(), args)
		},
	}
}

type job struct {
	file string
	path network.Path
	net  *network.Network
	mat  *material.Material
	err  error
}

func readNetwork(file, selector string) (network.Path, *network.Network, error) {
	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	path, net, err := network.Decode(f)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", file, err)
	}
	if path == "" {
		path = network.Path("/" + strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	}
	net.SelectTerminals(selector)
	return path, net, nil
}

func (s *session) resolve(w io.Writer, files []string) error {
	jobs := make([]*job, len(files))
	for i, file := range files {
		path, net, err := readNetwork(file, s.cfg.Selector)
		if err != nil {
			return err
		}
		jobs[i] = &job{file: file, path: path, net: net}
	}

	be, err := s.backend()
	if err != nil {
		return err
	}
	pipeline := texture.NewPipeline(texture.WithWorkers(s.cfg.Workers), texture.WithLogger(s.logger))
	defer pipeline.Close()

	pool := parallel.NewWorkerPool(s.cfg.Workers)
	pool.Run(len(jobs), func(i int) {
		j := jobs[i]
		j.mat, j.err = s.resolver.CreateMaterial(j.path, j.net, be, pipeline)
	})
	pool.Close()

	images, closeImages, err := newImageCache(s)
	if err != nil {
		return err
	}
	defer closeImages()
	pending := pipeline.Pending()
	pipeline.Commit(images)

	failed := 0
	for _, j := range jobs {
		if j.err != nil {
			failed++
			s.logger.Error("failed to resolve material", "file", j.file, "material", j.path.String(), "err", j.err)
			continue
		}
		report(w, j.mat)
		j.mat.Release()
	}
	fmt.Fprintf(w, "textures: %d requested, %d images created\n", pending, images.Created())

	if failed > 0 {
		return fmt.Errorf("%d of %d materials failed", failed, len(jobs))
	}
	return nil
}

func report(w io.Writer, m *material.Material) {
	fmt.Fprintf(w, "%s name=%q id=%d materialx=%t nodes=%d\n", m.Path(), m.Name(), m.MaterialID(), m.IsMaterialX(), m.Nodes())
	for _, t := range []struct {
		name string
		node backend.MaterialNode
	}{
		{network.TerminalSurface, m.Surface()},
		{network.TerminalDisplacement, m.Displacement()},
		{network.TerminalVolume, m.Volume()},
	} {
		if t.node != nil {
			fmt.Fprintf(w, "  %s: %s\n", t.name, t.node.Kind())
		}
	}
	if uv := m.UVPrimvarName(); uv != "" {
		fmt.Fprintf(w, "  uv primvar: %s\n", uv)
	}
	if m.IsShadowCatcher() {
		fmt.Fprintln(w, "  shadow catcher")
	}
	if m.IsReflectionCatcher() {
		fmt.Fprintln(w, "  reflection catcher")
	}
}

// newImageCache uploads textures to a noop device. The recorder backend
// never samples them, so a noop device is enough.
func newImageCache(s *session) (*gpu.ImageCache, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("opening device: %w", err)
	}
	images := gpu.NewImageCache(open.Device, open.Queue, gpu.WithLogger(s.logger))
	return images, func() {
		images.Close()
		open.Device.Destroy()
		instance.Destroy()
	}, nil
}
