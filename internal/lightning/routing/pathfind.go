package routing

import "container/heap"

// Hop is one leg of a selected route: the node being paid and the edge
// (channel) used to reach it, plus the amount (including downstream
// fees) that must arrive at this hop.
type Hop struct {
	NodeID     string
	ChannelID  string
	AmountMsat int64
}

// Route is an ordered sequence of hops from the node immediately after
// the source to the final destination.
type Route struct {
	Hops       []Hop
	TotalMsat  int64 // amount at the source, including all hop fees
	TotalFees  int64
}

type pqItem struct {
	node       string
	cost       int64 // cumulative fee from destination back to this node
	amountMsat int64 // amount that must leave this node toward dest
	viaEdge    Edge
	next       *pqItem
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// FindRoute runs a Dijkstra search from source to dest over the given
// graph, minimizing total routing fees, for a payment of amountMsat that
// must arrive in full at dest. Edges below MinHTLCMsat or with
// insufficient capacity are skipped (spec §4.5 payment dispatch).
func FindRoute(g *Graph, source, dest string, amountMsat int64) (*Route, error) {
	if source == dest {
		return &Route{TotalMsat: amountMsat}, nil
	}

	// Work backward from dest: best[node] is the cheapest known chain of
	// (node -> ... -> dest) and the amount node must forward onward.
	best := map[string]*pqItem{
		dest: {node: dest, cost: 0, amountMsat: amountMsat},
	}

	pq := &priorityQueue{best[dest]}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if cur.node == source {
			return reconstructRoute(cur), nil
		}
		if existing, ok := best[cur.node]; ok && existing != cur {
			continue
		}

		for peer, edge := range g.Neighbors(cur.node) {
			amountAtPeer := cur.amountMsat + edge.FeeMsat(cur.amountMsat)
			if edge.MinHTLCMsat > 0 && cur.amountMsat < edge.MinHTLCMsat {
				continue
			}
			if edge.CapacitySats*1000 < amountAtPeer {
				continue
			}

			candidate := &pqItem{
				node:       peer,
				cost:       cur.cost + edge.FeeMsat(cur.amountMsat),
				amountMsat: amountAtPeer,
				viaEdge:    edge,
				next:       cur,
			}
			if existing, ok := best[peer]; !ok || candidate.cost < existing.cost {
				best[peer] = candidate
				heap.Push(pq, candidate)
			}
		}
	}

	return nil, ErrNoRoute
}

// reconstructRoute walks the linked chain from source back to dest,
// emitting hops in forward (source -> dest) order.
func reconstructRoute(sourceItem *pqItem) *Route {
	var hops []Hop
	finalAmount := sourceItem.next.amountMsat
	// Each item's viaEdge leads from that node toward dest, so the edge
	// that reaches a hop is the one stored on the item before it.
	prev := sourceItem
	for item := sourceItem.next; item != nil; item = item.next {
		hops = append(hops, Hop{
			NodeID:     item.node,
			ChannelID:  prev.viaEdge.ChannelID,
			AmountMsat: item.amountMsat,
		})
		prev = item
	}
	return &Route{
		Hops:      hops,
		TotalMsat: sourceItem.amountMsat,
		TotalFees: sourceItem.amountMsat - finalAmount,
	}
}
