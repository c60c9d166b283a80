package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildBasicGraph() *Graph {
	g := NewGraph()
	g.UpsertEdge(Edge{
		ChannelID: "chan-a-b", Node1: "A", Node2: "B",
		CapacitySats: 100_000, FeeBaseMsat: 1000, FeeProportionalMillionths: 1,
		MinHTLCMsat: 1,
	})
	g.UpsertEdge(Edge{
		ChannelID: "chan-b-c", Node1: "B", Node2: "C",
		CapacitySats: 50_000, FeeBaseMsat: 500, FeeProportionalMillionths: 1,
		MinHTLCMsat: 1,
	})
	return g
}

func TestFindRouteDirectHop(t *testing.T) {
	g := buildBasicGraph()
	route, err := FindRoute(g, "A", "B", 10_000_000)
	require.NoError(t, err)
	require.Len(t, route.Hops, 1)
	require.Equal(t, "B", route.Hops[0].NodeID)
}

func TestFindRouteMultiHop(t *testing.T) {
	g := buildBasicGraph()
	route, err := FindRoute(g, "A", "C", 10_000_000)
	require.NoError(t, err)
	require.Len(t, route.Hops, 2)
	require.Equal(t, "C", route.Hops[len(route.Hops)-1].NodeID)
	require.Greater(t, route.TotalFees, int64(0))
}

func TestFindRouteNoPath(t *testing.T) {
	g := buildBasicGraph()
	_, err := FindRoute(g, "A", "Z", 1000)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestFindRouteRejectsOverCapacity(t *testing.T) {
	g := buildBasicGraph()
	_, err := FindRoute(g, "A", "C", 60_000_000) // exceeds B<->C capacity
	require.ErrorIs(t, err, ErrNoRoute)
}
