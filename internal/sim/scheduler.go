package sim

// Transfer selection. Invoked on every transition that might unblock a
// node: coming online, finishing a transfer, or seeing a backup slot freed
// by a holder's failure. All scans run in deterministic order (held blocks
// in insertion order, peers in declared order), which, together with the
// stable event queue, makes whole runs reproducible.

// scheduleNextUpload picks the most useful thing for n to upload, if any.
// Returning a lost block to its owner always beats pushing out a backup of
// n's own data.
func (s *Simulation) scheduleNextUpload(n *Node) {
	if !n.online {
		panic("sim: upload scheduling on an offline node")
	}
	if n.currentUpload != nil {
		return
	}

	// a remote owner that lost its block needs it back first
	for _, h := range n.remoteHeld {
		owner := s.nodes[h.owner]
		if owner.online && owner.currentDownload == nil && !owner.localBlocks.Has(h.block) {
			s.scheduleTransfer(n, owner, h.block, true)
			return
		}
	}

	block, ok := n.findBlockToBackUp()
	if !ok {
		return
	}

	// first eligible peer in declared order: online, not already holding
	// one of our blocks, download slot free, room for the block
	for _, peer := range s.nodes {
		if peer == n || !peer.online || n.hasBackupOn(peer.id) {
			continue
		}
		if peer.currentDownload != nil || peer.freeSpace < n.blockSize {
			continue
		}
		s.scheduleTransfer(n, peer, block, false)
		return
	}
}

// scheduleNextDownload picks the most useful thing for n to download, if
// any. Restoring n's own lost blocks beats accepting a backup from a peer.
func (s *Simulation) scheduleNextDownload(n *Node) {
	if !n.online {
		panic("sim: download scheduling on an offline node")
	}
	if n.currentDownload != nil {
		return
	}

	// pull back a lost block whose holder is reachable and idle
	for block, p := range n.backedUp {
		if n.localBlocks.Has(block) || p == NoPeer {
			continue
		}
		holder := s.nodes[p]
		if holder.online && holder.currentUpload == nil {
			s.scheduleTransfer(holder, n, block, true)
			return
		}
	}

	// otherwise offer storage to the first peer that has something to
	// back up and no block of its own here yet
	for _, peer := range s.nodes {
		if peer == n || !peer.online || peer.currentUpload != nil {
			continue
		}
		if _, held := n.holdsFor(peer.id); held {
			continue
		}
		if n.freeSpace < peer.blockSize {
			continue
		}
		if block, ok := peer.findBlockToBackUp(); ok {
			s.scheduleTransfer(peer, n, block, false)
			return
		}
	}
}

// scheduleTransfer marks both endpoints busy and enqueues the completion.
// The transfer takes blockSize over the slower of the two link speeds; the
// block belongs to the downloader on a restore and to the uploader on a
// backup.
func (s *Simulation) scheduleTransfer(uploader, downloader *Node, block int, restore bool) {
	if uploader == downloader {
		panic("sim: transfer with identical endpoints")
	}
	if uploader.currentUpload != nil || downloader.currentDownload != nil {
		panic("sim: transfer scheduled on a busy endpoint")
	}

	blockSize := uploader.blockSize
	if restore {
		blockSize = downloader.blockSize
	}

	speed := min(uploader.UploadSpeed, downloader.DownloadSpeed)
	delay := float64(blockSize) / speed

	ev := &TransferEvent{
		Uploader:   uploader.id,
		Downloader: downloader.id,
		Block:      block,
		Restore:    restore,
	}
	s.Schedule(delay, ev)

	uploader.currentUpload = ev
	downloader.currentDownload = ev
}
