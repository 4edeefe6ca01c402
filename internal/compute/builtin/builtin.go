// Package builtin assembles the registry of platforms compiled into ringmd.
package builtin

import (
	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/cpu"
	"github.com/san-kum/ringmd/internal/compute/reference"
)

// Registry returns a fresh registry holding the reference, cpu and cuda
// platforms.
func Registry() *compute.Registry {
	r := compute.NewRegistry()
	for _, p := range []compute.Platform{
		reference.NewPlatform(),
		cpu.NewPlatform(),
		compute.NewCUDAPlatform(),
	} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}
