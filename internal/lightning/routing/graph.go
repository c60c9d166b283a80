// Package routing builds a local channel graph from peer gossip and
// selects a route for outgoing payments, per spec §4.5's "selects a
// route over the local channel graph (built from peer gossip)".
// Grounded on routing/pathfind_test.go's testChan/testNode JSON shape
// (capacity, fee_base_msat, fee_rate, min_htlc, expiry), reimplemented
// as a live graph rather than a test fixture loader, scoped down from
// the teacher's full network-wide pathfinding to the edges this
// endpoint node's own peers advertise (spec §4.5 Open Question 4: no
// LSP/broader-network integration).
package routing

import (
	"errors"
	"sync"
)

// Edge is one gossiped channel between two nodes, usable as a hop in a
// route.
type Edge struct {
	ChannelID                 string
	Node1, Node2              string
	CapacitySats              int64
	FeeBaseMsat               int64
	FeeProportionalMillionths int64
	MinHTLCMsat               int64
	CLTVExpiryDelta           uint16
}

// FeeMsat returns the routing fee this edge charges to forward amtMsat.
func (e Edge) FeeMsat(amtMsat int64) int64 {
	return e.FeeBaseMsat + (amtMsat*e.FeeProportionalMillionths)/1_000_000
}

// otherSide returns the edge's endpoint that isn't node.
func (e Edge) otherSide(node string) string {
	if e.Node1 == node {
		return e.Node2
	}
	return e.Node1
}

// Graph is the local, peer-gossip-sourced view of channels usable for
// routing. Safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	edges map[string]Edge             // channel id -> edge
	adj   map[string]map[string]Edge // node -> peer node -> edge
}

// NewGraph builds an empty graph.
func NewGraph() *Graph {
	return &Graph{
		edges: make(map[string]Edge),
		adj:   make(map[string]map[string]Edge),
	}
}

// UpsertEdge adds or replaces a gossiped channel edge.
func (g *Graph) UpsertEdge(e Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[e.ChannelID] = e
	for _, node := range [2]string{e.Node1, e.Node2} {
		if g.adj[node] == nil {
			g.adj[node] = make(map[string]Edge)
		}
	}
	g.adj[e.Node1][e.Node2] = e
	g.adj[e.Node2][e.Node1] = e
}

// RemoveEdge drops a channel from the graph, e.g. once it closes.
func (g *Graph) RemoveEdge(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.edges[channelID]
	if !ok {
		return
	}
	delete(g.edges, channelID)
	delete(g.adj[e.Node1], e.Node2)
	delete(g.adj[e.Node2], e.Node1)
}

// Neighbors returns every edge directly reachable from node.
func (g *Graph) Neighbors(node string) map[string]Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]Edge, len(g.adj[node]))
	for peer, e := range g.adj[node] {
		out[peer] = e
	}
	return out
}

// ErrNoRoute is returned when no path connects source to destination
// with sufficient capacity, per spec §4.1 "fails fast on ... no route".
var ErrNoRoute = errors.New("routing: no route to destination")
