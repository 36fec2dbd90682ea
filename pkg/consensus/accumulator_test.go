package consensus

import (
	"fmt"
	"testing"

	"github.com/bits-and-blooms/bitset"
)

// fakeScheme is a deterministic stand-in for a real BLS SignatureScheme: it
// treats signature bytes as already "pure" and assembles into a summary
// struct cheap enough to assert on directly.
type fakeScheme struct{}

type fakeAggregate struct {
	Threshold uint64
	Count     int
}

func (fakeScheme) DecodeSignature(encoded EncodedSignature) (PureSignature, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("empty signature")
	}
	return encoded, nil
}

func (fakeScheme) PublicParameter(entries []StakeTableEntry, threshold uint64) PublicParameter {
	return threshold
}

func (fakeScheme) Assemble(pp PublicParameter, signers *bitset.BitSet, sigs []PureSignature) AggregatedSignature {
	return fakeAggregate{Threshold: pp.(uint64), Count: len(sigs)}
}

func voterKey(i int) EncodedPublicKey { return EncodedPublicKey([]byte(fmt.Sprintf("voter-%d", i))) }

func uniformEntries(n int) []StakeTableEntry {
	entries := make([]StakeTableEntry, n)
	for i := range entries {
		entries[i] = StakeTableEntry{Key: voterKey(i), Stake: 1}
	}
	return entries
}

func sigFor(i int) EncodedSignature { return EncodedSignature([]byte(fmt.Sprintf("sig-%d", i))) }

// TestDAAccumulator_HappyPath exercises the happy path: three of four
// equally-weighted voters cross a success threshold of 3 and fire a DA cert.
func TestDAAccumulator_HappyPath(t *testing.T) {
	acc := NewDAAccumulator(4, 3, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("block-a"))

	for i := 0; i < 2; i++ {
		cert, fired, err := acc.Append(Vote{
			VoterKey: voterKey(i), Signature: sigFor(i),
			Token: VoteToken{VoteCount: 1}, Data: DA(c),
		}, i, entries)
		if err != nil {
			t.Fatalf("vote %d: unexpected error: %v", i, err)
		}
		if fired {
			t.Fatalf("vote %d: fired early", i)
		}
		_ = cert
	}

	cert, fired, err := acc.Append(Vote{
		VoterKey: voterKey(2), Signature: sigFor(2),
		Token: VoteToken{VoteCount: 1}, Data: DA(c),
	}, 2, entries)
	if err != nil {
		t.Fatalf("third vote: unexpected error: %v", err)
	}
	if !fired {
		t.Fatalf("expected certificate to fire on third vote")
	}
	if cert.Kind != KindDA {
		t.Errorf("cert kind = %v, want DA", cert.Kind)
	}
	agg := cert.Agg.(fakeAggregate)
	if agg.Count != 3 {
		t.Errorf("aggregated %d shares, want 3", agg.Count)
	}
	if acc.popcount() != 3 {
		t.Errorf("popcount = %d, want 3", acc.popcount())
	}

	if _, _, err := acc.Append(Vote{
		VoterKey: voterKey(3), Signature: sigFor(3),
		Token: VoteToken{VoteCount: 1}, Data: DA(c),
	}, 3, entries); err != ErrSealed {
		t.Errorf("post-fire append error = %v, want ErrSealed", err)
	}
}

// TestQuorumAccumulator_Yes checks the Yes side of the race.
func TestQuorumAccumulator_Yes(t *testing.T) {
	acc := NewQuorumAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("leaf-a"))

	for i := 0; i < 3; i++ {
		cert, fired, err := acc.Append(Vote{
			VoterKey: voterKey(i), Signature: sigFor(i),
			Token: VoteToken{VoteCount: 1}, Data: Yes(c),
		}, i, entries)
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		if i < 2 && fired {
			t.Fatalf("vote %d fired early", i)
		}
		if i == 2 {
			if !fired {
				t.Fatalf("expected Yes certificate on third vote")
			}
			if cert.Kind != KindYes {
				t.Errorf("cert kind = %v, want Yes", cert.Kind)
			}
		}
	}
}

// TestQuorumAccumulator_No checks that No fires at the lower
// failure threshold once total quorum is also reached.
func TestQuorumAccumulator_No(t *testing.T) {
	acc := NewQuorumAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("leaf-b"))

	acc.Append(Vote{VoterKey: voterKey(0), Signature: sigFor(0), Token: VoteToken{VoteCount: 1}, Data: Yes(c)}, 0, entries)
	acc.Append(Vote{VoterKey: voterKey(1), Signature: sigFor(1), Token: VoteToken{VoteCount: 1}, Data: No(c)}, 1, entries)
	cert, fired, err := acc.Append(Vote{VoterKey: voterKey(2), Signature: sigFor(2), Token: VoteToken{VoteCount: 1}, Data: No(c)}, 2, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fired {
		t.Fatalf("expected No certificate to fire: total=3 (quorum met), no=2 (>= failure threshold)")
	}
	if cert.Kind != KindNo {
		t.Errorf("cert kind = %v, want No", cert.Kind)
	}
}

// TestQuorumAccumulator_Starved checks that a minority that
// never reaches total quorum never fires, on either side.
func TestQuorumAccumulator_Starved(t *testing.T) {
	acc := NewQuorumAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("leaf-c"))

	_, fired, err := acc.Append(Vote{VoterKey: voterKey(0), Signature: sigFor(0), Token: VoteToken{VoteCount: 1}, Data: Yes(c)}, 0, entries)
	if err != nil || fired {
		t.Fatalf("fired=%v err=%v, want no fire", fired, err)
	}
	_, fired, err = acc.Append(Vote{VoterKey: voterKey(1), Signature: sigFor(1), Token: VoteToken{VoteCount: 1}, Data: No(c)}, 1, entries)
	if err != nil || fired {
		t.Fatalf("fired=%v err=%v, want no fire", fired, err)
	}
	if acc.sealed {
		t.Errorf("accumulator sealed without ever reaching quorum")
	}
}

// TestViewSyncAccumulator_PreCommit checks that PreCommit
// fires at the lower failure threshold.
func TestViewSyncAccumulator_PreCommit(t *testing.T) {
	acc := NewViewSyncAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	data := ViewSyncData{RelayKey: voterKey(99), Round: 7}
	c := data.Commitment()

	acc.Append(Vote{VoterKey: voterKey(0), Signature: sigFor(0), Token: VoteToken{VoteCount: 1}, Data: ViewSyncPreCommit(c)}, 0, entries)
	cert, fired, err := acc.Append(Vote{VoterKey: voterKey(1), Signature: sigFor(1), Token: VoteToken{VoteCount: 1}, Data: ViewSyncPreCommit(c)}, 1, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fired {
		t.Fatalf("expected PreCommit certificate to fire at failure threshold")
	}
	if cert.Kind != KindViewSyncPreCommit {
		t.Errorf("cert kind = %v, want ViewSyncPreCommit", cert.Kind)
	}
}

// TestDuplicateVoteRejected checks that a repeated vote from
// the same voter is a silent no-op, not an error, and does not double-count
// stake.
func TestDuplicateVoteRejected(t *testing.T) {
	acc := NewDAAccumulator(4, 3, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("block-dup"))

	vote := Vote{VoterKey: voterKey(0), Signature: sigFor(0), Token: VoteToken{VoteCount: 1}, Data: DA(c)}
	if _, fired, err := acc.Append(vote, 0, entries); err != nil || fired {
		t.Fatalf("first vote: fired=%v err=%v", fired, err)
	}
	if _, fired, err := acc.Append(vote, 0, entries); err != nil || fired {
		t.Fatalf("duplicate vote: fired=%v err=%v, want silent no-op", fired, err)
	}
	if acc.votes.stakeFor(c) != 1 {
		t.Errorf("stake = %d, want 1 (duplicate must not double-count)", acc.votes.stakeFor(c))
	}
	if acc.popcount() != 1 {
		t.Errorf("popcount = %d, want 1", acc.popcount())
	}
}

// TestDuplicateCommitteePosition exercises the other half of the dup check:
// two distinct voter keys mapped to the same committee index (a caller
// bug) must not double-count the signers bitset.
func TestDuplicateCommitteePosition(t *testing.T) {
	acc := NewDAAccumulator(4, 3, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("block-pos"))

	acc.Append(Vote{VoterKey: voterKey(0), Signature: sigFor(0), Token: VoteToken{VoteCount: 1}, Data: DA(c)}, 0, entries)
	_, fired, err := acc.Append(Vote{VoterKey: voterKey(1), Signature: sigFor(1), Token: VoteToken{VoteCount: 1}, Data: DA(c)}, 0, entries)
	if err != nil || fired {
		t.Fatalf("fired=%v err=%v, want silent reject on reused committee index", fired, err)
	}
	if acc.popcount() != 1 {
		t.Errorf("popcount = %d, want 1 (second share must not be counted)", acc.popcount())
	}
}

// TestSignersSigListsBijection checks that the signers bitset's
// cardinality always equals the number of pure signature shares collected.
func TestSignersSigListsBijection(t *testing.T) {
	acc := NewDAAccumulator(5, 10, fakeScheme{}, nil)
	entries := uniformEntries(5)
	c := CommitmentOf([]byte("block-bij"))

	for i := 0; i < 4; i++ {
		acc.Append(Vote{VoterKey: voterKey(i), Signature: sigFor(i), Token: VoteToken{VoteCount: 1}, Data: DA(c)}, i, entries)
		if int(acc.popcount()) != len(acc.sigLists) {
			t.Fatalf("after vote %d: popcount=%d sigLists=%d, want equal", i, acc.popcount(), len(acc.sigLists))
		}
	}
}

// TestQuorumAccumulator_OrderIndependence checks that the final
// outcome does not depend on the order votes arrive in.
func TestQuorumAccumulator_OrderIndependence(t *testing.T) {
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("leaf-order"))

	run := func(order []int) VoteKind {
		acc := NewQuorumAccumulator(4, 3, 2, fakeScheme{}, nil)
		var lastKind VoteKind
		for _, i := range order {
			cert, fired, _ := acc.Append(Vote{
				VoterKey: voterKey(i), Signature: sigFor(i),
				Token: VoteToken{VoteCount: 1}, Data: Yes(c),
			}, i, entries)
			if fired {
				lastKind = cert.Kind
			}
		}
		return lastKind
	}

	a := run([]int{0, 1, 2})
	b := run([]int{2, 0, 1})
	if a != b || a != KindYes {
		t.Errorf("order produced different outcomes: %v vs %v", a, b)
	}
}

// TestUnifiedAccumulator_DispatchesByKind spot-checks the superset
// accumulator's per-kind routing alongside the per-kind accumulators above.
func TestUnifiedAccumulator_DispatchesByKind(t *testing.T) {
	acc := NewUnifiedAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("unified-a"))

	for i := 0; i < 2; i++ {
		_, fired, err := acc.Append(Vote{
			VoterKey: voterKey(i), Signature: sigFor(i),
			Token: VoteToken{VoteCount: 1}, Data: DA(c),
		}, i, entries)
		if err != nil || fired {
			t.Fatalf("vote %d: fired=%v err=%v", i, fired, err)
		}
	}
	cert, fired, err := acc.Append(Vote{
		VoterKey: voterKey(2), Signature: sigFor(2),
		Token: VoteToken{VoteCount: 1}, Data: DA(c),
	}, 2, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fired || cert.Kind != KindDA {
		t.Fatalf("fired=%v kind=%v, want DA certificate", fired, cert.Kind)
	}
}

// TestUnifiedAccumulator_TimeoutNeverFires documents the left-open timeout
// hook: a Timeout vote is accepted as a no-op, never credited.
func TestUnifiedAccumulator_TimeoutNeverFires(t *testing.T) {
	acc := NewUnifiedAccumulator(4, 3, 2, fakeScheme{}, nil)
	entries := uniformEntries(4)
	c := CommitmentOf([]byte("unified-timeout"))

	for i := 0; i < 4; i++ {
		_, fired, err := acc.Append(Vote{
			VoterKey: voterKey(i), Signature: sigFor(i),
			Token: VoteToken{VoteCount: 1}, Data: Timeout(c),
		}, i, entries)
		if err != nil || fired {
			t.Fatalf("timeout vote %d: fired=%v err=%v, want perpetual no-op", i, fired, err)
		}
	}
	if acc.popcount() != 0 {
		t.Errorf("popcount = %d, want 0 (timeout votes must not consume committee positions)", acc.popcount())
	}
}
