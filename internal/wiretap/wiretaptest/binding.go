package wiretaptest

import (
	"context"
	"sync"

	"wiretap/internal/wiretap"
)

// Binding is a client binding over a Tree that counts session calls and can
// be told to fail Init or Connect.
type Binding struct {
	inner *wiretap.PathBinding

	mu         sync.Mutex
	initErr    error
	connectErr error
	inits      int
	connects   int
	uninits    int
	hostnames  []string
}

// NewBinding returns a binding whose every host resolves to tree.
func NewBinding(tree *Tree) *Binding {
	return &Binding{inner: wiretap.NewPathBinding(wiretap.StaticBackend(tree))}
}

// FailInit makes Init return err.
func (b *Binding) FailInit(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initErr = err
}

// FailConnect makes Connect return err.
func (b *Binding) FailConnect(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectErr = err
}

func (b *Binding) Init(ctx context.Context) error {
	b.mu.Lock()
	b.inits++
	err := b.initErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.inner.Init(ctx)
}

func (b *Binding) Connect(ctx context.Context, hostname string) (wiretap.Server, error) {
	b.mu.Lock()
	b.connects++
	b.hostnames = append(b.hostnames, hostname)
	err := b.connectErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.inner.Connect(ctx, hostname)
}

func (b *Binding) Uninit() error {
	b.mu.Lock()
	b.uninits++
	b.mu.Unlock()
	return b.inner.Uninit()
}

// Calls reports how often Init, Connect, and Uninit were invoked.
func (b *Binding) Calls() (inits, connects, uninits int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inits, b.connects, b.uninits
}

// Hostnames returns the hosts passed to Connect, in call order.
func (b *Binding) Hostnames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hostnames...)
}
