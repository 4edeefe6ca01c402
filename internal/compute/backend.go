package compute

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ringmd/internal/mm"
)

type Platform interface {
	Name() string
	// Speed is a relative performance estimate used by Registry.Select.
	Speed() float64
	Available() bool
	SupportsKernels(names []string) bool
	CreateKernel(name string, ctx ContextImpl) (Kernel, error)
}

type KernelFactory func(ctx ContextImpl) Kernel

// Base implements the name -> factory bookkeeping shared by all platforms.
type Base struct {
	name      string
	speed     float64
	mu        sync.RWMutex
	factories map[string]KernelFactory
}

func NewBase(name string, speed float64) *Base {
	return &Base{
		name:      name,
		speed:     speed,
		factories: make(map[string]KernelFactory),
	}
}

func (b *Base) Name() string    { return b.name }
func (b *Base) Speed() float64  { return b.speed }
func (b *Base) Available() bool { return true }

func (b *Base) RegisterKernelFactory(name string, f KernelFactory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.factories[name] = f
}

func (b *Base) SupportsKernels(names []string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, n := range names {
		if _, ok := b.factories[n]; !ok {
			return false
		}
	}
	return true
}

func (b *Base) CreateKernel(name string, ctx ContextImpl) (Kernel, error) {
	b.mu.RLock()
	f, ok := b.factories[name]
	b.mu.RUnlock()
	if !ok {
		return nil, &mm.UnsupportedKernelError{Platform: b.name, Kernel: name}
	}
	return f(ctx), nil
}

type Registry struct {
	mu        sync.RWMutex
	platforms map[string]Platform
}

func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]Platform)}
}

func (r *Registry) Register(p Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.platforms[p.Name()]; ok {
		return fmt.Errorf("platform already registered: %s", p.Name())
	}
	r.platforms[p.Name()] = p
	return nil
}

func (r *Registry) Get(name string) (Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the fastest available platform supporting every kernel in
// names. Ties go to the alphabetically first name.
func (r *Registry) Select(names []string) (Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Platform
	for _, name := range sortedKeys(r.platforms) {
		p := r.platforms[name]
		if !p.Available() {
			logrus.Debugf("platform %s unavailable, skipping", name)
			continue
		}
		if !p.SupportsKernels(names) {
			continue
		}
		if best == nil || p.Speed() > best.Speed() {
			best = p
		}
	}
	if best == nil {
		return nil, &mm.UnsupportedKernelError{Platform: "any", Kernel: strings.Join(names, ",")}
	}
	logrus.Debugf("selected platform %s for kernels %v", best.Name(), names)
	return best, nil
}

func sortedKeys(m map[string]Platform) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
