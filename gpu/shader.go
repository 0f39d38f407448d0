package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("gpu: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// ShaderCache creates shader modules for compiled shader nodes, one module
// per label.
type ShaderCache struct {
	mu      sync.Mutex
	device  hal.Device
	modules map[string]hal.ShaderModule
}

// NewShaderCache creates an empty shader cache on device.
func NewShaderCache(device hal.Device) *ShaderCache {
	return &ShaderCache{device: device, modules: make(map[string]hal.ShaderModule)}
}

// Module returns the module for label, creating it from spirv on first use.
func (s *ShaderCache) Module(label string, spirv []uint32) (hal.ShaderModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.modules[label]; ok {
		return m, nil
	}
	m, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create shader module %s: %w", label, err)
	}
	s.modules[label] = m
	return m, nil
}

// Len returns the number of modules.
func (s *ShaderCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modules)
}

// Close destroys all modules.
func (s *ShaderCache) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for label, m := range s.modules {
		s.device.DestroyShaderModule(m)
		delete(s.modules, label)
	}
}
