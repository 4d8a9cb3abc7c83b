package neat

import (
	"fmt"
	"sync"
)

// NodeSplit records the structure produced by splitting a connection gene:
// the key of the inserted hidden node and the innovation ids of the two
// replacement connections. The same split performed in different genomes
// yields the same NodeSplit.
type NodeSplit struct {
	NodeKey       int // key of the hidden node inserted by the split
	InInnovation  int // innovation id of the (source -> node) connection
	OutInnovation int // innovation id of the (node -> target) connection
}

type splitRecord struct {
	Split NodeSplit
	Key   ConnectionKey // endpoints of the split connection, kept to detect misuse
}

// InnovationTracker is the process-wide ledger of structural innovations for
// one evolutionary run. It assigns a stable, monotonically growing innovation
// id to each distinct structural mutation (a new connection between an
// ordered node pair, or a node inserted by splitting a connection), so the
// same structural change arising independently in different genomes receives
// the same id and crossover can align genes by history.
//
// A single tracker instance is shared by every genome mutated during a run
// and passed explicitly into the structural operators. It is never reset
// mid-run and entries are never removed. All methods are safe for concurrent
// use; workers racing to register the same descriptor all observe a single
// winner's ids.
type InnovationTracker struct {
	mu             sync.Mutex
	nextInnovation int
	nextNodeKey    int
	connections    map[ConnectionKey]int
	splits         map[int]splitRecord
}

// NewInnovationTracker creates an empty tracker. firstNodeKey is the key the
// first hidden node created by a split will receive; it must be past the keys
// reserved for the fixed input/output/hidden nodes of the run's genomes.
func NewInnovationTracker(firstNodeKey int) *InnovationTracker {
	return &InnovationTracker{
		nextInnovation: 1,
		nextNodeKey:    firstNodeKey,
		connections:    make(map[ConnectionKey]int),
		splits:         make(map[int]splitRecord),
	}
}

// ConnectionInnovation returns the innovation id for a connection between the
// ordered pair (in, out), assigning the next sequential id the first time the
// pair is seen anywhere in the population.
func (t *InnovationTracker) ConnectionInnovation(in, out int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectionInnovationLocked(ConnectionKey{InNodeID: in, OutNodeID: out})
}

func (t *InnovationTracker) connectionInnovationLocked(key ConnectionKey) int {
	if id, ok := t.connections[key]; ok {
		return id
	}
	id := t.nextInnovation
	t.nextInnovation++
	t.connections[key] = id
	return id
}

// SplitConnection returns the NodeSplit for splitting the connection with the
// given innovation id and endpoints. The first caller for an innovation id
// allocates a fresh hidden node key and two fresh connection innovations;
// later callers (other genomes performing the same split) get the recorded
// structure back.
//
// A request whose endpoints disagree with the recorded split returns
// ErrRegistryConflict: the caller's gene history no longer matches the
// ledger, which is unrecoverable.
func (t *InnovationTracker) SplitConnection(innovation int, key ConnectionKey) (NodeSplit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.splits[innovation]; ok {
		if rec.Key != key {
			return NodeSplit{}, fmt.Errorf("%w: split of innovation %d recorded for %d->%d, requested for %d->%d",
				ErrRegistryConflict, innovation, rec.Key.InNodeID, rec.Key.OutNodeID, key.InNodeID, key.OutNodeID)
		}
		return rec.Split, nil
	}

	nodeKey := t.nextNodeKey
	t.nextNodeKey++

	// Register the two replacement connections as ordinary pair descriptors
	// too, so a later add-connection of the same pair reuses their ids.
	split := NodeSplit{
		NodeKey:       nodeKey,
		InInnovation:  t.connectionInnovationLocked(ConnectionKey{InNodeID: key.InNodeID, OutNodeID: nodeKey}),
		OutInnovation: t.connectionInnovationLocked(ConnectionKey{InNodeID: nodeKey, OutNodeID: key.OutNodeID}),
	}
	t.splits[innovation] = splitRecord{Split: split, Key: key}
	return split, nil
}

// NextInnovation reports the id the next fresh registration would receive.
func (t *InnovationTracker) NextInnovation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextInnovation
}

// TrackerState is the plain-data form of an InnovationTracker, used by
// checkpointing so a resumed run keeps its historical markings.
type TrackerState struct {
	NextInnovation int
	NextNodeKey    int
	Connections    map[ConnectionKey]int
	Splits         map[int]SplitState
}

// SplitState is the plain-data form of a recorded node split.
type SplitState struct {
	Split NodeSplit
	Key   ConnectionKey
}

// Snapshot copies the tracker's state into a TrackerState.
func (t *InnovationTracker) Snapshot() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := TrackerState{
		NextInnovation: t.nextInnovation,
		NextNodeKey:    t.nextNodeKey,
		Connections:    make(map[ConnectionKey]int, len(t.connections)),
		Splits:         make(map[int]SplitState, len(t.splits)),
	}
	for k, v := range t.connections {
		state.Connections[k] = v
	}
	for innov, rec := range t.splits {
		state.Splits[innov] = SplitState{Split: rec.Split, Key: rec.Key}
	}
	return state
}

// Restore replaces the tracker's state with a previously taken snapshot.
func (t *InnovationTracker) Restore(state TrackerState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextInnovation = state.NextInnovation
	t.nextNodeKey = state.NextNodeKey
	t.connections = make(map[ConnectionKey]int, len(state.Connections))
	for k, v := range state.Connections {
		t.connections[k] = v
	}
	t.splits = make(map[int]splitRecord, len(state.Splits))
	for innov, s := range state.Splits {
		t.splits[innov] = splitRecord{Split: s.Split, Key: s.Key}
	}
}
