package indicator

import (
	"sort"
	"sync"

	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Factory builds a kernel from positional parameters.
type Factory func(params ...any) (Ta, error)

// Registry maps kernel tags to factories.
type Registry interface {
	Register(tag string, factory Factory) error
	Build(tag string, params ...any) (Ta, error)
	List() []string
	Remove(tag string) error
}

// RegistryV1 is a Registry guarded by a RWMutex.
type RegistryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &RegistryV1{
		factories: make(map[string]Factory),
		mu:        sync.RWMutex{},
	}
}

// DefaultRegistry returns a registry holding every built-in kernel.
func DefaultRegistry() Registry {
	r := NewRegistry()

	builtins := map[string]Factory{
		"ma": func(params ...any) (Ta, error) {
			n, err := intParam("ma", params, 0)
			if err != nil {
				return nil, err
			}

			col, err := stringParam(params, 1, "")

			return MA{N: n, Col: pricestore.Col(col)}, err
		},
		"crossma": func(params ...any) (Ta, error) {
			ns, err := intParams("crossma", params, 2)
			if err != nil {
				return nil, err
			}

			return CrossMA{Short: ns[0], Long: ns[1]}, nil
		},
		"sum": func(params ...any) (Ta, error) {
			n, err := intParam("sum", params, 0)
			if err != nil {
				return nil, err
			}

			col, err := stringParam(params, 1, "")

			return Sum{N: n, Col: pricestore.Col(col)}, err
		},
		"std":     single(func(n int) Ta { return Std{N: n} }, "std"),
		"lowest":  single(func(n int) Ta { return Lowest{N: n} }, "lowest"),
		"highest": single(func(n int) Ta { return Highest{N: n} }, "highest"),
		"mom":     single(func(n int) Ta { return Mom{N: n} }, "mom"),
		"ema":     single(func(n int) Ta { return EMA{N: n} }, "ema"),
		"rsi":     single(func(n int) Ta { return RSI{N: n} }, "rsi"),
		"atr":     single(func(n int) Ta { return ATR{N: n} }, "atr"),
		"er":      single(func(n int) Ta { return ER{N: n} }, "er"),
		"rank":    single(func(n int) Ta { return Rank{N: n} }, "rank"),
		"band":    single(func(n int) Ta { return PriceBand{N: n} }, "band"),
		"flow":    single(func(n int) Ta { return OrderFlow{N: n} }, "flow"),
		"macd": func(params ...any) (Ta, error) {
			ns, err := intParams("macd", params, 3)
			if err != nil {
				return nil, err
			}

			return MACD{Fast: ns[0], Slow: ns[1], Signal: ns[2]}, nil
		},
		"kdj": func(params ...any) (Ta, error) {
			ns, err := intParams("kdj", params, 3)
			if err != nil {
				return nil, err
			}

			return KDJ{N: ns[0], M1: ns[1], M2: ns[2]}, nil
		},
		"boll": func(params ...any) (Ta, error) {
			n, err := intParam("boll", params, 0)
			if err != nil {
				return nil, err
			}

			k, err := floatParam("boll", params, 1)

			return Bollinger{N: n, K: k}, err
		},
		"bollprice": func(params ...any) (Ta, error) {
			n, err := intParam("bollprice", params, 0)
			if err != nil {
				return nil, err
			}

			k, err := floatParam("bollprice", params, 1)

			return BollPrice{N: n, K: k}, err
		},
		"sar": func(params ...any) (Ta, error) {
			step, err := floatParam("sar", params, 0)
			if err != nil {
				return nil, err
			}

			limit, err := floatParam("sar", params, 1)

			return SAR{Step: step, Max: limit}, err
		},
		"shiftdays": func(params ...any) (Ta, error) {
			n, err := intParam("shiftdays", params, 0)
			if err != nil {
				return nil, err
			}

			agg, err := stringParam(params, 1, string(AggLast))
			if err != nil {
				return nil, err
			}

			col, err := stringParam(params, 2, "")

			return ShiftDays{N: n, Agg: Agg(agg), Col: pricestore.Col(col)}, err
		},
	}

	for tag, factory := range builtins {
		// tags are unique within the map
		_ = r.Register(tag, factory)
	}

	return r
}

// Register adds a factory under tag.
func (r *RegistryV1) Register(tag string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[tag]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", tag)
	}

	r.factories[tag] = factory

	return nil
}

// Build creates the kernel registered under tag.
func (r *RegistryV1) Build(tag string, params ...any) (Ta, error) {
	r.mu.RLock()
	factory, exists := r.factories[tag]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", tag)
	}

	return factory(params...)
}

// List returns the registered tags in sorted order.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	return tags
}

// Remove drops the factory registered under tag.
func (r *RegistryV1) Remove(tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[tag]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", tag)
	}

	delete(r.factories, tag)

	return nil
}

func single(build func(n int) Ta, name string) Factory {
	return func(params ...any) (Ta, error) {
		n, err := intParam(name, params, 0)
		if err != nil {
			return nil, err
		}

		return build(n), nil
	}
}

func intParams(name string, params []any, count int) ([]int, error) {
	out := make([]int, count)

	for i := range out {
		n, err := intParam(name, params, i)
		if err != nil {
			return nil, err
		}

		out[i] = n
	}

	return out, nil
}

// intParam accepts ints and whole floats, as decoded from YAML or JSON.
func intParam(name string, params []any, i int) (int, error) {
	if i >= len(params) {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "%s expects parameter %d", name, i+1)
	}

	switch v := params[i].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s parameter %d must be whole, got %g", name, i+1, v)
		}

		return int(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s parameter %d must be a number, got %T", name, i+1, v)
	}
}

func floatParam(name string, params []any, i int) (float64, error) {
	if i >= len(params) {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "%s expects parameter %d", name, i+1)
	}

	switch v := params[i].(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s parameter %d must be a number, got %T", name, i+1, v)
	}
}

func stringParam(params []any, i int, fallback string) (string, error) {
	if i >= len(params) {
		return fallback, nil
	}

	s, ok := params[i].(string)
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "parameter %d must be a string, got %T", i+1, params[i])
	}

	return s, nil
}
