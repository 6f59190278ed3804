package search

import "github.com/ontolite/ontolite/core"

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps during a query.
type Monitor interface {
	Start(query string)
	AfterTitleScoring(scores map[core.ID]float64)
	AfterConceptScoring(scores map[core.ID]float64)
	AfterSemanticScoring(scores map[core.ID]float64)
	SemanticDegraded(err error)
	Finish(response *core.QueryResponse)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterTitleScoring(_ map[core.ID]float64)    {}
func (n *noopMonitor) AfterConceptScoring(_ map[core.ID]float64)  {}
func (n *noopMonitor) AfterSemanticScoring(_ map[core.ID]float64) {}
func (n *noopMonitor) SemanticDegraded(_ error)                {}
func (n *noopMonitor) Finish(_ *core.QueryResponse)            {}
