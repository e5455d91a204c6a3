package sim

import "testing"

// clusterSpec is a node that never fails and reconnects instantly, with
// enough storage to host four remote blocks besides its own.
func clusterSpec(name string) NodeSpec {
	spec := testSpec(name)
	spec.StorageSize = 24576
	return spec
}

func TestScenario_ClusterBacksUpEverything(t *testing.T) {
	var specs []NodeSpec
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		specs = append(specs, clusterSpec(name))
	}

	s := newTestSim(t, "cluster", specs...)
	if err := s.Run(30 * 86400); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for id := 0; id < s.NodeCount(); id++ {
		n := s.Node(NodeID(id))
		if got := n.backedUpCount(); got != n.N {
			t.Fatalf("%s: %d of %d blocks backed up", n.Name, got, n.N)
		}
		if n.backupsMade < n.N {
			t.Fatalf("%s: backupsMade = %d, want >= %d", n.Name, n.backupsMade, n.N)
		}
		if n.dataLossEvents != 0 {
			t.Fatalf("%s: no failures were configured", n.Name)
		}
	}

	if err := invariantError(s); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestScenario_TwoNodesExchangeOneBlockEach(t *testing.T) {
	// with a single peer available, the one-block-per-peer rule caps each
	// node at exactly one backup
	s := newTestSim(t, "pair", clusterSpec("a"), clusterSpec("b"))
	if err := s.Run(86400); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for id := 0; id < 2; id++ {
		n := s.Node(NodeID(id))
		if n.backupsMade != 1 || n.backedUpCount() != 1 {
			t.Fatalf("%s: backups=%d backed-up=%d, want exactly 1 each",
				n.Name, n.backupsMade, n.backedUpCount())
		}
	}
}

func TestScenario_ZeroFreeSpaceMeansNoBackups(t *testing.T) {
	spec := testSpec("tight")
	spec.StorageSize = spec.DataSize / int64(spec.K) * int64(spec.N)

	s := newTestSim(t, "tight", spec, spec, spec)
	if err := s.Run(86400); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sum := s.Summarize()
	if sum.BackupsMade != 0 {
		t.Fatalf("no peer has free space, yet %d backups happened", sum.BackupsMade)
	}
}

func TestScenario_KEqualsN(t *testing.T) {
	// every block is necessary: losing one keeps the node below recovery
	// until that very block is restored
	dspec := testSpec("d")
	dspec.N, dspec.K = 2, 2

	s := newBareSim(t, dspec, testSpec("p"))
	d, p := s.Node(0), s.Node(1)
	d.online, p.online = true, true

	// block 1 is on p and lost locally
	d.localBlocks.Remove(1)
	d.backedUp[1] = p.id
	p.setHeld(d.id, 1)
	p.freeSpace -= d.blockSize

	s.scheduleNextDownload(d)
	if err := s.Run(3600); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !d.localBlocks.Has(1) {
		t.Fatalf("the lost block was not restored")
	}
	if d.dataRecovered != 1 {
		t.Fatalf("dataRecovered = %d, want 1 after restoring the single lost block", d.dataRecovered)
	}
}

func TestScenario_Determinism(t *testing.T) {
	churny := func(name string) NodeSpec {
		spec := testSpec(name)
		spec.StorageSize = 24576
		spec.AverageUptime = 600
		spec.AverageDowntime = 60
		spec.AverageLifetime = 1800
		spec.AverageRecoverTime = 120
		return spec
	}

	run := func() (*Simulation, Summary) {
		specs := []NodeSpec{churny("a"), churny("b"), churny("c"), churny("d")}
		s := newTestSim(t, "determinism", specs...)
		if err := s.Run(86400); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return s, s.Summarize()
	}

	s1, sum1 := run()
	s2, sum2 := run()

	if sum1 != sum2 {
		t.Fatalf("summaries differ:\n%+v\n%+v", sum1, sum2)
	}
	if !snapshot(s1).equal(snapshot(s2)) {
		t.Fatalf("final node states differ between identical runs")
	}
	if s1.T() != s2.T() {
		t.Fatalf("final clocks differ: %v vs %v", s1.T(), s2.T())
	}
}

func TestScenario_ChurnyRunKeepsInvariants(t *testing.T) {
	churny := func(name string) NodeSpec {
		spec := testSpec(name)
		spec.StorageSize = 24576
		spec.AverageUptime = 900
		spec.AverageDowntime = 120
		spec.AverageLifetime = 3600
		spec.AverageRecoverTime = 300
		return spec
	}

	specs := []NodeSpec{churny("a"), churny("b"), churny("c"), churny("d"), churny("e")}
	s := newTestSim(t, "churn", specs...)

	// step the loop by hand so invariants are checked after every event
	last := 0.0
	steps := 0
	for {
		next, ok := s.queue.Dequeue()
		if !ok || next.at > 86400 {
			break
		}
		if next.at < last {
			t.Fatalf("time went backwards: %v after %v", next.at, last)
		}
		last = next.at

		s.t = next.at
		if err := s.process(next.ev); err != nil {
			t.Fatalf("process: %v", err)
		}
		if err := invariantError(s); err != nil {
			t.Fatalf("after event %d at t=%v: %v", steps, s.t, err)
		}
		steps++
	}

	if steps == 0 {
		t.Fatalf("nothing was simulated")
	}
}
