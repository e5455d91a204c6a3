package sim

import "fmt"

// Event is the closed set of things that can happen in the simulation.
// The loop dispatches on the concrete type; there is no inheritance.
type Event interface {
	isEvent()
}

type NodeEventKind uint8

const (
	// KindOnline brings a node online and lets it schedule transfers.
	KindOnline NodeEventKind = iota
	// KindOffline takes a node offline, cancelling in-flight transfers.
	KindOffline
	// KindFail crashes a node: it loses all local data and everything it
	// was holding for others.
	KindFail
	// KindRecover ends a failure; the node comes back online empty.
	KindRecover
)

func (k NodeEventKind) String() string {
	switch k {
	case KindOnline:
		return "online"
	case KindOffline:
		return "offline"
	case KindFail:
		return "fail"
	case KindRecover:
		return "recover"
	default:
		return fmt.Sprintf("node-event(%d)", uint8(k))
	}
}

// NodeEvent is a state transition of a single node.
type NodeEvent struct {
	Node NodeID
	Kind NodeEventKind
}

func (*NodeEvent) isEvent() {}

// TransferEvent is the pending completion of one block transfer. The same
// value is referenced by the uploader's currentUpload and the downloader's
// currentDownload while in flight; if either endpoint disconnects, the
// event is flagged canceled and ignored when it finally pops.
type TransferEvent struct {
	Uploader   NodeID
	Downloader NodeID
	Block      int

	// Restore distinguishes returning a block to its owner (true) from
	// backing up one of the uploader's own blocks (false).
	Restore bool

	Canceled bool
}

func (*TransferEvent) isEvent() {}

func (e *TransferEvent) kind() string {
	if e.Restore {
		return "restore"
	}
	return "backup"
}

// process dispatches one popped event.
func (s *Simulation) process(ev Event) error {
	switch e := ev.(type) {
	case *NodeEvent:
		node := s.nodes[e.Node]
		switch e.Kind {
		case KindOnline:
			s.onOnline(node)
		case KindOffline:
			s.onOffline(node)
		case KindFail:
			s.onFail(node)
		case KindRecover:
			s.onRecover(node)
		default:
			panic(fmt.Sprintf("sim: unknown node event kind %d", e.Kind))
		}
	case *TransferEvent:
		s.onTransferComplete(e)
	default:
		panic(fmt.Sprintf("sim: unknown event type %T", ev))
	}

	return nil
}

// onOnline connects a node. Re-entrant deliveries (the node is already
// online, or failed and awaiting recovery) are ignored.
func (s *Simulation) onOnline(n *Node) {
	if n.online || n.failed {
		return
	}
	s.logInfo(n.Name + " goes online")
	n.online = true

	s.scheduleNextUpload(n)
	s.scheduleNextDownload(n)

	s.Schedule(s.ExpRV(n.AverageUptime), &NodeEvent{Node: n.id, Kind: KindOffline})
}

// onOffline disconnects a node; ignored if it is already offline or
// failed.
func (s *Simulation) onOffline(n *Node) {
	if n.failed || !n.online {
		return
	}
	s.logInfo(n.Name + " goes offline")

	s.disconnect(n)
	s.Schedule(s.ExpRV(n.AverageDowntime), &NodeEvent{Node: n.id, Kind: KindOnline})
}

// disconnect takes a node offline and cancels its in-flight transfers on
// both endpoints. The completion events stay queued; the canceled flag
// turns them into no-ops.
func (s *Simulation) disconnect(n *Node) {
	n.online = false

	if up := n.currentUpload; up != nil {
		up.Canceled = true
		s.nodes[up.Downloader].currentDownload = nil
		n.currentUpload = nil
	}
	if down := n.currentDownload; down != nil {
		down.Canceled = true
		s.nodes[down.Uploader].currentUpload = nil
		n.currentDownload = nil
	}
}

// onFail crashes a node. All local blocks are lost, every backup the node
// was holding for others disappears (owners are notified and may
// re-schedule uploads), and the node's storage empties. Recovery is
// scheduled after an exponential repair time.
func (s *Simulation) onFail(n *Node) {
	s.logInfo(n.Name + " fails")

	s.disconnect(n)
	n.failed = true
	n.dataLossEvents++

	n.localBlocks.Clear()

	for _, h := range n.remoteHeld {
		owner := s.nodes[h.owner]
		owner.backedUp[h.block] = NoPeer
		// the owner may want to re-back-up the copy it just lost
		if owner.online && owner.currentUpload == nil {
			s.scheduleNextUpload(owner)
		}
	}
	n.remoteHeld = n.remoteHeld[:0]
	n.freeSpace = n.StorageSize - n.blockSize*int64(n.N)

	s.Schedule(s.ExpRV(n.AverageRecoverTime), &NodeEvent{Node: n.id, Kind: KindRecover})
}

// onRecover ends a failure: the node is repaired, comes back online empty
// and gets its next failure scheduled.
func (s *Simulation) onRecover(n *Node) {
	s.logInfo(n.Name + " recovers")

	n.failed = false
	s.onOnline(n)

	s.Schedule(s.ExpRV(n.AverageLifetime), &NodeEvent{Node: n.id, Kind: KindFail})
}

// onTransferComplete finalizes a block transfer. Canceled completions are
// discarded untouched.
func (s *Simulation) onTransferComplete(e *TransferEvent) {
	uploader, downloader := s.nodes[e.Uploader], s.nodes[e.Downloader]

	s.logInfo(e.kind()+" complete",
		"from", uploader.Name, "to", downloader.Name, "block", e.Block,
		"canceled", e.Canceled)

	if e.Canceled {
		return
	}

	if !uploader.online || !downloader.online {
		panic("sim: transfer completed with an offline endpoint")
	}

	if e.Restore {
		downloader.localBlocks.Add(e.Block)
		downloader.restoresMade++
		// crossing k means the data is whole again; blocks above k keep
		// arriving without bumping the counter further
		if downloader.localBlocks.Count() == downloader.K {
			downloader.dataRecovered++
		}
	} else {
		downloader.freeSpace -= uploader.blockSize
		if downloader.freeSpace < 0 {
			panic("sim: backup completed into negative free space")
		}
		uploader.backedUp[e.Block] = downloader.id
		downloader.setHeld(uploader.id, e.Block)
		uploader.backupsMade++
	}

	uploader.currentUpload = nil
	downloader.currentDownload = nil

	s.scheduleNextUpload(uploader)
	s.scheduleNextDownload(downloader)

	for _, n := range []*Node{uploader, downloader} {
		s.logInfo(n.Name+" state",
			"local_blocks", n.localBlocks.Count(),
			"backed_up_blocks", n.backedUpCount(),
			"remote_blocks_held", len(n.remoteHeld))
	}
}
