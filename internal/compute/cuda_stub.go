package compute

// CUDAPlatform stands in for a GPU backend. This build carries no device
// kernels, so it is never available and refuses every kernel name.
type CUDAPlatform struct {
	*Base
}

func NewCUDAPlatform() *CUDAPlatform {
	return &CUDAPlatform{Base: NewBase("cuda", 100)}
}

func (c *CUDAPlatform) Available() bool { return false }
