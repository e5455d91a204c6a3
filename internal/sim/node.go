package sim

import (
	"fmt"

	"github.com/mpilipov/2a-p2p-backup/pkg/blockset"
)

// NodeID is a node's index in the simulation's node arena. Nodes refer to
// each other exclusively through these indices, which keeps the dense
// cross-reference graph (backup pointers and holder back-pointers) free of
// pointer cycles and makes state trivially comparable in tests.
type NodeID int

// NoPeer marks an absent peer reference.
const NoPeer NodeID = -1

// NodeSpec is the immutable configuration of a node. Speeds are bytes per
// second; times are seconds, used as means of exponential distributions.
type NodeSpec struct {
	Name string

	// N is the number of blocks the node's data is encoded into; any K of
	// them suffice to reconstruct it.
	N int
	K int

	DataSize    int64
	StorageSize int64

	UploadSpeed   float64
	DownloadSpeed float64

	AverageUptime   float64
	AverageDowntime float64

	AverageLifetime    float64
	AverageRecoverTime float64

	ArrivalTime float64
}

// Validate reports the first configuration problem, if any.
func (spec NodeSpec) Validate() error {
	switch {
	case spec.Name == "":
		return fmt.Errorf("node without a name")
	case spec.N <= 0:
		return fmt.Errorf("node %s: n must be positive, got %d", spec.Name, spec.N)
	case spec.K <= 0 || spec.K > spec.N:
		return fmt.Errorf("node %s: k must be in (0, n], got k=%d n=%d", spec.Name, spec.K, spec.N)
	case spec.DataSize < 0:
		return fmt.Errorf("node %s: negative data_size", spec.Name)
	case spec.StorageSize < 0:
		return fmt.Errorf("node %s: negative storage_size", spec.Name)
	case spec.UploadSpeed <= 0 || spec.DownloadSpeed <= 0:
		return fmt.Errorf("node %s: transfer speeds must be positive", spec.Name)
	case spec.AverageUptime < 0 || spec.AverageDowntime < 0 ||
		spec.AverageLifetime < 0 || spec.AverageRecoverTime < 0 ||
		spec.ArrivalTime < 0:
		return fmt.Errorf("node %s: negative time parameter", spec.Name)
	}

	blockSize := spec.DataSize / int64(spec.K)
	if spec.StorageSize-blockSize*int64(spec.N) < 0 {
		return fmt.Errorf(
			"node %s: storage_size %d cannot hold its own %d blocks of %d bytes",
			spec.Name, spec.StorageSize, spec.N, blockSize,
		)
	}

	return nil
}

// heldBlock records one block stored on behalf of a remote owner.
type heldBlock struct {
	owner NodeID
	block int
}

// Node is the per-node simulation state.
type Node struct {
	NodeSpec

	id NodeID

	// blockSize is the size of each of the node's own encoded blocks.
	blockSize int64

	online bool
	failed bool

	// localBlocks tracks which of the node's own blocks are present
	// locally. Starts full; a failure wipes it.
	localBlocks blockset.Set

	// backedUp[i] is the peer currently storing block i, or NoPeer. If
	// backedUp[i] = p then nodes[p] holds (owner=this, block=i) in
	// remoteHeld.
	backedUp []NodeID

	// remoteHeld lists the blocks this node stores for remote owners, in
	// insertion order. At most one entry per owner.
	remoteHeld []heldBlock

	// At most one in-flight transfer per direction. Both point at the
	// pending completion event shared with the other endpoint.
	currentUpload   *TransferEvent
	currentDownload *TransferEvent

	// freeSpace is the room left for other nodes' blocks; space for the
	// node's own n blocks is reserved up front and never offered.
	freeSpace int64

	dataLossEvents int
	dataRecovered  int
	backupsMade    int
	restoresMade   int
}

func newNode(id NodeID, spec NodeSpec) *Node {
	blockSize := spec.DataSize / int64(spec.K)

	n := &Node{
		NodeSpec:    spec,
		id:          id,
		blockSize:   blockSize,
		localBlocks: blockset.Full(spec.N),
		backedUp:    make([]NodeID, spec.N),
		freeSpace:   spec.StorageSize - blockSize*int64(spec.N),
	}
	for i := range n.backedUp {
		n.backedUp[i] = NoPeer
	}

	return n
}

// ID returns the node's arena index.
func (n *Node) ID() NodeID { return n.id }

// findBlockToBackUp returns the first block held locally but not backed up
// anywhere, or ok=false if there is none.
func (n *Node) findBlockToBackUp() (int, bool) {
	for i := 0; i < n.N; i++ {
		if n.localBlocks.Has(i) && n.backedUp[i] == NoPeer {
			return i, true
		}
	}
	return 0, false
}

// hasBackupOn reports whether any of the node's blocks is stored on peer.
func (n *Node) hasBackupOn(peer NodeID) bool {
	for _, p := range n.backedUp {
		if p == peer {
			return true
		}
	}
	return false
}

// backedUpCount returns how many of the node's blocks have a remote copy.
func (n *Node) backedUpCount() int {
	count := 0
	for _, p := range n.backedUp {
		if p != NoPeer {
			count++
		}
	}
	return count
}

// holdsFor returns the block index this node stores for owner.
func (n *Node) holdsFor(owner NodeID) (int, bool) {
	for _, h := range n.remoteHeld {
		if h.owner == owner {
			return h.block, true
		}
	}
	return 0, false
}

// setHeld records that this node stores block for owner, replacing any
// previous entry for the same owner.
func (n *Node) setHeld(owner NodeID, block int) {
	for i, h := range n.remoteHeld {
		if h.owner == owner {
			n.remoteHeld[i].block = block
			return
		}
	}
	n.remoteHeld = append(n.remoteHeld, heldBlock{owner: owner, block: block})
}

func (n *Node) String() string { return n.Name }
