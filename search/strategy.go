package search

// Strategy is a named configuration selecting which search branches run and
// how vector hits are post-processed.
type Strategy struct {
	// Name identifies the strategy.
	Name string

	// Vector enables the embedding-similarity branch.
	Vector bool

	// Lexical enables the substring-matching branch.
	Lexical bool

	// LexicalWeight scales lexical scores when both branches run, so
	// literal matches rank below comparable semantic matches.
	LexicalWeight float32

	// LexicalFallback substitutes a lexical search for a failed vector
	// branch instead of failing the request.
	LexicalFallback bool

	// Expand adds document-order neighbors of each vector hit.
	Expand bool

	// Window is the number of hops expanded in each direction.
	Window int
}

// DefaultStrategyName is used when an unknown strategy name is requested.
const DefaultStrategyName = "hybrid"

const defaultContextWindow = 2

// builtinStrategies are the named configurations available out of the box.
var builtinStrategies = map[string]Strategy{
	"vector": {
		Name:            "vector",
		Vector:          true,
		LexicalFallback: true,
	},
	"hybrid": {
		Name:            "hybrid",
		Vector:          true,
		Lexical:         true,
		LexicalWeight:   0.8,
		LexicalFallback: true,
	},
	"vector-context": {
		Name:            "vector-context",
		Vector:          true,
		LexicalFallback: true,
		Expand:          true,
		Window:          defaultContextWindow,
	},
}

// resolveStrategy looks up a strategy by name. An unknown or empty name
// resolves to the default strategy; the caller is responsible for logging
// the substitution.
func resolveStrategy(name string) (Strategy, bool) {
	if s, ok := builtinStrategies[name]; ok {
		return s, true
	}
	return builtinStrategies[DefaultStrategyName], false
}
