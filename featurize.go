package ircx

import "fmt"

// Feature is an optional, composable subsystem that registers its own
// handlers against a Client (CTCP defaults, state tracking, and CAP
// tracking are each effectively a Feature with no declared dependents).
type Feature interface {
	// Name uniquely identifies the feature within one featurize call.
	Name() string
	// DependsOn lists the features this one builds on; featurize orders
	// this feature ahead of them.
	DependsOn() []string
	// Register wires the feature's handlers onto c.
	Register(c *Client)
}

// InconsistentFeatureOrder is returned by featurize when the requested
// features' DependsOn graphs cannot be linearized — either a cycle, or two
// features that each claim to precede the other transitively.
type InconsistentFeatureOrder struct {
	Features []string
}

func (e *InconsistentFeatureOrder) Error() string {
	return fmt.Sprintf("inconsistent feature order among %v", e.Features)
}

// featurize orders bases into a single registration sequence: a C3-like
// linearization where each feature is registered before every feature it
// DependsOn — a dependent always precedes (and so can override or pre-empt)
// the bases it extends — preserving the relative order callers passed in
// wherever the dependency graph leaves that choice free. It does not
// register anything itself; callers range over the result and call
// Register.
func featurize(bases ...Feature) ([]Feature, error) {
	byName := make(map[string]Feature, len(bases))
	for _, f := range bases {
		byName[f.Name()] = f
	}

	var (
		order    []Feature
		visited  = map[string]int{} // 0=unvisited, 1=in-progress, 2=done
		visiting []string
	)

	var visit func(f Feature) error
	visit = func(f Feature) error {
		switch visited[f.Name()] {
		case 2:
			return nil
		case 1:
			return &InconsistentFeatureOrder{Features: append(append([]string{}, visiting...), f.Name())}
		}
		visited[f.Name()] = 1
		visiting = append(visiting, f.Name())

		deps := f.DependsOn()
		for i := len(deps) - 1; i >= 0; i-- {
			dep, ok := byName[deps[i]]
			if !ok {
				// A dependency outside this featurize call is assumed
				// already satisfied (e.g. always-on builtins).
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visiting = visiting[:len(visiting)-1]
		visited[f.Name()] = 2
		order = append(order, f)
		return nil
	}

	// Visiting back to front and reversing the post-order result puts every
	// feature ahead of its dependencies while keeping the input order.
	for i := len(bases) - 1; i >= 0; i-- {
		if err := visit(bases[i]); err != nil {
			return nil, err
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// RegisterFeatures linearizes and registers every feature in bases against
// c, in dependency order.
func (c *Client) RegisterFeatures(bases ...Feature) error {
	ordered, err := featurize(bases...)
	if err != nil {
		return err
	}
	for _, f := range ordered {
		f.Register(c)
	}
	return nil
}
