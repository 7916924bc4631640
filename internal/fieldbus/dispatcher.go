// Package fieldbus listens on configured TCP ports and, for each
// accepted connection, hands it to the registered protocol module bound
// to that port. Modules are looked up through an explicit, compile-time
// registry rather than a dynamic name lookup.
package fieldbus

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"plcsim/internal/memspace"
	"plcsim/internal/resilience"
)

// Module is the capability set a fieldbus implementation exposes to the
// Dispatcher: serve accepted connections against a Memory Space until
// told to stop. Modules do not bind listeners; the Dispatcher binds one
// listener per configured port and hands each accepted connection to
// Serve.
type Module interface {
	Serve(ctx context.Context, conn net.Conn, memory *memspace.MemorySpace)
}

// Registry maps a configured module "class" string to a Module
// implementation, populated once at program start.
type Registry struct {
	modules map[string]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module implementation under the given class name.
func (r *Registry) Register(class string, module Module) {
	r.modules[class] = module
}

// lookup returns the module bound to class, or an error if unknown.
func (r *Registry) lookup(class string) (Module, error) {
	m, ok := r.modules[class]
	if !ok {
		return nil, fmt.Errorf("fieldbus: unknown module class %q", class)
	}
	return m, nil
}

// ListenerConfig is the shared listener defaults (§6 "listener" key).
type ListenerConfig struct {
	Host    string
	Backlog int
}

// ModuleConfig is one entry of "fieldbus_manager.modules[]".
type ModuleConfig struct {
	Module string
	Class  string
	ID     string
	Port   int
}

// Dispatcher accepts connections on each configured port and spawns a
// protocol session for the fieldbus bound to that port.
type Dispatcher struct {
	logger   *zap.Logger
	registry *Registry
	memory   *memspace.MemorySpace

	listeners []net.Listener
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Dispatcher bound to a registry and a Memory Space.
func New(logger *zap.Logger, registry *Registry, memory *memspace.MemorySpace) *Dispatcher {
	return &Dispatcher{logger: logger, registry: registry, memory: memory}
}

// Start binds one listener per configured module and runs its accept
// loop in a goroutine. Two modules sharing a port is a configuration
// error, rejected before any listener is bound.
func (d *Dispatcher) Start(listenerCfg ListenerConfig, modules []ModuleConfig) error {
	seenPorts := make(map[int]string)
	for _, m := range modules {
		if other, dup := seenPorts[m.Port]; dup {
			return fmt.Errorf("fieldbus: port %d bound by both %q and %q", m.Port, other, m.Module)
		}
		seenPorts[m.Port] = m.Module
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{}, len(modules))

	breaker := resilience.NewBreaker(3, 5*time.Second)

	for _, m := range modules {
		module, err := d.registry.lookup(m.Class)
		if err != nil {
			cancel()
			return err
		}

		var ln net.Listener
		err = breaker.Call(func() error {
			var bindErr error
			ln, bindErr = listenBacklog(listenerCfg.Host, m.Port, listenerCfg.Backlog)
			return bindErr
		})
		if err != nil {
			cancel()
			return fmt.Errorf("fieldbus: bind module %q port %d: %w", m.Module, m.Port, err)
		}

		d.listeners = append(d.listeners, ln)
		d.logger.Info("fieldbus module listening",
			zap.String("module", m.Module), zap.String("class", m.Class), zap.Int("port", m.Port))

		go d.acceptLoop(ctx, ln, module, m)
	}

	return nil
}

func (d *Dispatcher) acceptLoop(ctx context.Context, ln net.Listener, module Module, cfg ModuleConfig) {
	defer func() { d.done <- struct{}{} }()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				d.logger.Warn("fieldbus accept failed",
					zap.String("module", cfg.Module), zap.Error(err))
				return
			}
		}

		go module.Serve(ctx, conn, d.memory)
	}
}

// Stop closes every listener and waits for the accept loops to exit.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	for range d.listeners {
		<-d.done
	}
}
