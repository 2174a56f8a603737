package search

import "github.com/poiesic/textgraph/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	StrategyResolved(strategy Strategy, requestedName string)
	AfterVectorSearch(ids []uint64)
	VectorBranchDegraded(err error)
	AfterLexicalSearch(ids []uint64)
	AfterContextExpansion(ids []uint64)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) StrategyResolved(_ Strategy, _ string)      {}
func (n *noopMonitor) AfterVectorSearch(_ []uint64)               {}
func (n *noopMonitor) VectorBranchDegraded(_ error)               {}
func (n *noopMonitor) AfterLexicalSearch(_ []uint64)              {}
func (n *noopMonitor) AfterContextExpansion(_ []uint64)           {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}
