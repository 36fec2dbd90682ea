package consensus

import "go.uber.org/zap"

// ViewSyncAccumulator races three view-synchronization phases —
// PreCommit, Commit, Finalize — over the same (relay, round) commitment.
//
// Known limitation, carried forward from the original design: signers/
// sigLists are shared across all three phases, so a voter who casts
// PreCommit and then Commit against the *same* accumulator instance has
// their Commit silently rejected at the duplicate check below, same as a
// repeated vote within one phase. Allocating a fresh accumulator per phase
// transition would change that, but deciding when to do so is a
// driver-level policy this package leaves to the caller rather than
// guessing.
type ViewSyncAccumulator struct {
	base
	successThreshold uint64
	failureThreshold uint64
	precommit        *VoteMap
	commit           *VoteMap
	finalize         *VoteMap
}

func NewViewSyncAccumulator(committeeSize int, successThreshold, failureThreshold uint64, scheme SignatureScheme, log *zap.SugaredLogger) *ViewSyncAccumulator {
	return &ViewSyncAccumulator{
		base:             newBase("viewsync", committeeSize, scheme, log),
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
		precommit:        newVoteMap(),
		commit:           newVoteMap(),
		finalize:         newVoteMap(),
	}
}

func (a *ViewSyncAccumulator) Append(vote Vote, voterIndex int, entries []StakeTableEntry) (AssembledSignature, bool, error) {
	if a.sealed {
		return AssembledSignature{}, false, ErrSealed
	}

	switch vote.Data.Kind {
	case KindViewSyncPreCommit, KindViewSyncCommit, KindViewSyncFinalize:
	default:
		return AssembledSignature{}, false, nil
	}
	c := vote.Data.Commitment

	// Duplicate detection runs against all three maps before any mutation:
	// a voter may not double-vote across phases.
	if a.precommit.contains(c, vote.VoterKey) || a.commit.contains(c, vote.VoterKey) || a.finalize.contains(c, vote.VoterKey) {
		return AssembledSignature{}, false, nil
	}

	pure := a.decodeShare(vote.Signature)

	if !a.commitShare(voterIndex, pure) {
		return AssembledSignature{}, false, nil
	}

	entry := voteEntry{Signature: vote.Signature, Data: vote.Data, Token: vote.Token}
	var target *VoteMap
	switch vote.Data.Kind {
	case KindViewSyncPreCommit:
		target = a.precommit
	case KindViewSyncCommit:
		target = a.commit
	case KindViewSyncFinalize:
		target = a.finalize
	}
	target.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)

	// PreCommit fires at the lower failure threshold (~f+1) to signal a
	// relay that view-sync is merely needed, without requiring full quorum.
	if p := a.precommit.stakeFor(c); p >= a.failureThreshold {
		agg := a.assemble(entries, a.failureThreshold)
		a.clearAll(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncPreCommit, Agg: agg}, true, nil
	}
	if cm := a.commit.stakeFor(c); cm >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.clearAll(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncCommit, Agg: agg}, true, nil
	}
	if f := a.finalize.stakeFor(c); f >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.clearAll(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncFinalize, Agg: agg}, true, nil
	}

	return AssembledSignature{}, false, nil
}

func (a *ViewSyncAccumulator) clearAll(c Commitment) {
	a.precommit.clear(c)
	a.commit.clear(c)
	a.finalize.clear(c)
}
