package sim

import (
	"fmt"
	"strings"

	"github.com/mpilipov/2a-p2p-backup/pkg/utils/timespan"
)

// Summary aggregates the per-node counters of a finished run. Collecting
// it is read-only over the final state.
type Summary struct {
	SimulatedTime float64
	Nodes         int

	DataLossEvents int
	DataRecovered  int

	// RecoveryRatePct is data recovered over data lost, in percent; 100
	// when nothing was ever lost.
	RecoveryRatePct float64

	// NodesFailedPct is the share of nodes that failed at least once.
	NodesFailedPct float64

	BackupsMade  int
	RestoresMade int

	// VulnerableBlocks counts backed-up blocks whose owner has all its
	// remote copies on a single peer: one more failure loses them.
	VulnerableBlocks int
	TotalBlocks      int
}

// Summarize collects the summary for the current state.
func (s *Simulation) Summarize() Summary {
	sum := Summary{
		SimulatedTime: s.t,
		Nodes:         len(s.nodes),
	}

	failedNodes := 0
	for _, n := range s.nodes {
		sum.DataLossEvents += n.dataLossEvents
		sum.DataRecovered += n.dataRecovered
		sum.BackupsMade += n.backupsMade
		sum.RestoresMade += n.restoresMade
		if n.dataLossEvents > 0 {
			failedNodes++
		}

		sum.TotalBlocks += n.N
		for _, p := range n.backedUp {
			if p == NoPeer {
				continue
			}
			if s.holderCount(n.id) == 1 {
				sum.VulnerableBlocks++
			}
		}
	}

	if sum.DataLossEvents > 0 {
		sum.RecoveryRatePct = 100 * float64(sum.DataRecovered) / float64(sum.DataLossEvents)
	} else {
		sum.RecoveryRatePct = 100
	}
	if len(s.nodes) > 0 {
		sum.NodesFailedPct = 100 * float64(failedNodes) / float64(len(s.nodes))
	}

	return sum
}

// holderCount returns how many distinct peers currently store blocks for
// owner.
func (s *Simulation) holderCount(owner NodeID) int {
	count := 0
	for _, other := range s.nodes {
		if _, held := other.holdsFor(owner); held {
			count++
		}
	}
	return count
}

func (sum Summary) String() string {
	var sb strings.Builder

	sb.WriteString("Summary of the simulation:\n")
	fmt.Fprintf(&sb, "Simulated time: %s\n", timespan.Format(sum.SimulatedTime))
	fmt.Fprintf(&sb, "Total nodes: %d\n", sum.Nodes)
	fmt.Fprintf(&sb, "Total data loss events: %d\n", sum.DataLossEvents)
	fmt.Fprintf(&sb, "Total data recovery events: %d\n", sum.DataRecovered)
	fmt.Fprintf(&sb, "Data recovery success rate: %.2f%%\n", sum.RecoveryRatePct)
	fmt.Fprintf(&sb, "Nodes that experienced at least one failure: %.2f%%\n", sum.NodesFailedPct)
	fmt.Fprintf(&sb, "Total backups made: %d\n", sum.BackupsMade)
	fmt.Fprintf(&sb, "Total restores made: %d\n", sum.RestoresMade)
	fmt.Fprintf(&sb, "Vulnerable blocks: %d / %d", sum.VulnerableBlocks, sum.TotalBlocks)

	return sb.String()
}
