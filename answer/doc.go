// Package answer assembles natural-language answers from ranked search
// results using a summarization service.
package answer
