package consensus

// voteEntry is what the inner per-voter map of a VoteMap stores: the raw
// materials of a vote, kept around for debugging/test snapshots.
type voteEntry struct {
	Signature EncodedSignature
	Data      VoteData
	Token     VoteToken
}

// orderedVoters is an insertion-ordered map keyed by encoded voter-key
// bytes. Any equality-by-content map suffices for correctness; ordering is
// kept only so a tally's vote list serializes deterministically
// for debug/test snapshots. No third-party ordered-map dependency appears
// anywhere in the retrieved corpus, so this is hand-rolled over the
// standard library (see DESIGN.md).
type orderedVoters struct {
	index map[string]int
	keys  []string
	vals  []voteEntry
}

func newOrderedVoters() *orderedVoters {
	return &orderedVoters{index: make(map[string]int)}
}

func (m *orderedVoters) contains(key EncodedPublicKey) bool {
	_, ok := m.index[string(key)]
	return ok
}

func (m *orderedVoters) insert(key EncodedPublicKey, v voteEntry) {
	k := string(key)
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

func (m *orderedVoters) len() int { return len(m.keys) }

// entries returns the voteEntry values in insertion order (without their
// keys).
func (m *orderedVoters) entries() []voteEntry {
	return m.vals
}

// tally is the per-commitment accounting a VoteMap keeps: how much stake
// has been cast for this commitment, and who cast it.
type tally struct {
	AccumulatedStake uint64
	voters           *orderedVoters
}

func newTally() *tally {
	return &tally{voters: newOrderedVoters()}
}

// VoteMap is a per-payload tally keyed by content commitment. Votes over
// different commitments aggregate independently: a voter proposing
// divergent payloads cannot combine stake across them.
type VoteMap struct {
	byCommitment map[Commitment]*tally
}

func newVoteMap() *VoteMap {
	return &VoteMap{byCommitment: make(map[Commitment]*tally)}
}

// entry returns the tally for c, materializing an empty one if absent.
func (m *VoteMap) entry(c Commitment) *tally {
	t, ok := m.byCommitment[c]
	if !ok {
		t = newTally()
		m.byCommitment[c] = t
	}
	return t
}

// contains reports whether voterKey already has a vote recorded for c.
func (m *VoteMap) contains(c Commitment, voterKey EncodedPublicKey) bool {
	t, ok := m.byCommitment[c]
	if !ok {
		return false
	}
	return t.voters.contains(voterKey)
}

// credit adds the voter's stake to c's tally and records their entry.
// Tally consistency holds by construction: AccumulatedStake is only ever
// incremented alongside a voters.insert of the same stake. Stake overflow
// is a programmer-error fault and panics.
func (m *VoteMap) credit(c Commitment, voterKey EncodedPublicKey, stake uint64, e voteEntry) {
	t := m.entry(c)
	if t.AccumulatedStake+stake < t.AccumulatedStake {
		panic("consensus: accumulated stake overflows uint64")
	}
	t.AccumulatedStake += stake
	t.voters.insert(voterKey, e)
}

// stakeFor returns the accumulated stake recorded for c (zero if none).
func (m *VoteMap) stakeFor(c Commitment) uint64 {
	t, ok := m.byCommitment[c]
	if !ok {
		return 0
	}
	return t.AccumulatedStake
}

// clear drops a commitment's tally once its outcome has fired.
func (m *VoteMap) clear(c Commitment) {
	delete(m.byCommitment, c)
}
