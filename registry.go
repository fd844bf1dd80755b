package gospatial

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/njchilds90/gospatial/sx"
)

// Symbol is an interned, named scalar placeholder. Within one Registry
// there is exactly one *Symbol per name, so pointer equality is name
// equality.
type Symbol struct {
	name string
	node *sx.Expr
}

func (s *Symbol) Name() string            { return s.name }
func (s *Symbol) Kind() Kind              { return KindSymbol }
func (s *Symbol) SX() *sx.Matrix          { return sx.Scalar(s.node) }
func (s *Symbol) Shape() (rows, cols int) { return 1, 1 }
func (s *Symbol) String() string          { return s.name }
func (s *Symbol) Node() *sx.Expr          { return s.node }
func (s *Symbol) Expression() *Expression { return scalarExpression(s.node) }
func (s *Symbol) Hash() uint64            { return xxhash.Sum64String(s.name) }

// Registry interns symbols by name. It is safe for concurrent use and
// never evicts.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Symbol
	byNode map[*sx.Expr]*Symbol
}

func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]*Symbol{},
		byNode: map[*sx.Expr]*Symbol{},
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by Sym, Var and
// the other package-level helpers.
func DefaultRegistry() *Registry { return defaultRegistry }

// Symbol returns the symbol called name, creating it on first use.
func (r *Registry) Symbol(name string) *Symbol {
	if name == "" {
		panic("gospatial: empty symbol name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byName[name]; ok {
		return s
	}
	s := &Symbol{name: name, node: sx.NewSymbol(name)}
	r.byName[name] = s
	r.byNode[s.node] = s
	L().Debug("symbol created", zap.String("name", name), zap.Int("registry_size", len(r.byName)))
	return s
}

// Lookup returns the symbol called name if it exists.
func (r *Registry) Lookup(name string) (*Symbol, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

// Var splits names on whitespace and returns one symbol per field:
//
//	Var("x y z")
func (r *Registry) Var(names string) []*Symbol {
	return r.CreateSymbols(strings.Fields(names)...)
}

func (r *Registry) CreateSymbols(names ...string) []*Symbol {
	out := make([]*Symbol, len(names))
	for i, n := range names {
		out[i] = r.Symbol(n)
	}
	return out
}

// CreateNumberedSymbols returns s_0 ... s_{n-1}.
func (r *Registry) CreateNumberedSymbols(n int) []*Symbol {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("s_%d", i)
	}
	return r.CreateSymbols(names...)
}

// FreeSymbols lists the symbols v depends on in order of first
// appearance.
func (r *Registry) FreeSymbols(v any) []*Symbol {
	return r.freeSymbols(matrixOf(v))
}

func (r *Registry) freeSymbols(m *sx.Matrix) []*Symbol {
	nodes := sx.FreeSymbols(m.Elements()...)
	out := make([]*Symbol, len(nodes))
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range nodes {
		if s, ok := r.byNode[n]; ok {
			out[i] = s
			continue
		}
		// node from another registry or built directly on sx
		out[i] = &Symbol{name: n.Name(), node: n}
	}
	return out
}

func Sym(name string) *Symbol                 { return defaultRegistry.Symbol(name) }
func Var(names string) []*Symbol              { return defaultRegistry.Var(names) }
func CreateSymbols(names ...string) []*Symbol { return defaultRegistry.CreateSymbols(names...) }
func CreateNumberedSymbols(n int) []*Symbol   { return defaultRegistry.CreateNumberedSymbols(n) }
func FreeSymbols(v any) []*Symbol             { return defaultRegistry.FreeSymbols(v) }
