package testdoubles

import (
	"context"
	"net"
	"sync"
)

// Resolver is an email.Resolver that serves canned MX records.
//
// If Block is non-nil, every lookup signals Started (if non-nil) and then
// waits for Block to be closed or the context to expire.
type Resolver struct {
	Records map[string][]*net.MX
	Errors  map[string]error
	Panics  map[string]string
	Started chan struct{}
	Block   chan struct{}

	mutex sync.Mutex
	calls map[string]int
}

func NewResolver() *Resolver {
	return &Resolver{
		Records: map[string][]*net.MX{},
		Errors:  map[string]error{},
		Panics:  map[string]string{},
		calls:   map[string]int{},
	}
}

func (r *Resolver) LookupMX(
	ctx context.Context, name string,
) ([]*net.MX, error) {
	r.mutex.Lock()
	r.calls[name]++
	r.mutex.Unlock()

	if msg, ok := r.Panics[name]; ok {
		panic(msg)
	}

	if r.Block != nil {
		if r.Started != nil {
			r.Started <- struct{}{}
		}
		select {
		case <-r.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.Records[name], r.Errors[name]
}

// Calls returns how many times LookupMX was called for name.
func (r *Resolver) Calls(name string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.calls[name]
}

// NotFound returns the error *net.Resolver produces for a nonexistent domain.
func NotFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}
