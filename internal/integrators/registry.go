package integrators

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/dynamo"
)

// ErrUnknown is returned by New for names not in the registry.
var ErrUnknown = eris.New("integrators: unknown integrator")

var registry = map[string]func() dynamo.Integrator{
	"rk4":    func() dynamo.Integrator { return NewRK4() },
	"verlet": func() dynamo.Integrator { return NewVerlet() },
	"euler":  func() dynamo.Integrator { return NewSemiImplicitEuler() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknown, "%q (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
