package search

import "github.com/poiesic/tradevec/core"

// SearchMonitor provides hooks to observe the search process.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterQuery(matches []*core.Match)
	Finish(results []*core.Match)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)             {}
func (n *noopMonitor) AfterEmbedding(_ []float32) {}
func (n *noopMonitor) AfterQuery(_ []*core.Match) {}
func (n *noopMonitor) Finish(_ []*core.Match)     {}
