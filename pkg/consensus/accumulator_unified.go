package consensus

import "go.uber.org/zap"

// UnifiedAccumulator is the historical superset accumulator combining DA,
// Quorum, and ViewSync into one struct, dispatching on VoteData's tag
// inside Append. Retained for migration only; new drivers should prefer
// the per-kind accumulators above. VoteData::Timeout is accepted by the
// kind switch but has no threshold logic — it is simply never credited.
type UnifiedAccumulator struct {
	base
	successThreshold uint64
	failureThreshold uint64

	da        *VoteMap
	total     *VoteMap
	yes       *VoteMap
	no        *VoteMap
	precommit *VoteMap
	commit    *VoteMap
	finalize  *VoteMap
}

func NewUnifiedAccumulator(committeeSize int, successThreshold, failureThreshold uint64, scheme SignatureScheme, log *zap.SugaredLogger) *UnifiedAccumulator {
	return &UnifiedAccumulator{
		base:             newBase("unified", committeeSize, scheme, log),
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
		da:               newVoteMap(),
		total:            newVoteMap(),
		yes:              newVoteMap(),
		no:               newVoteMap(),
		precommit:        newVoteMap(),
		commit:           newVoteMap(),
		finalize:         newVoteMap(),
	}
}

func (a *UnifiedAccumulator) Append(vote Vote, voterIndex int, entries []StakeTableEntry) (AssembledSignature, bool, error) {
	if a.sealed {
		return AssembledSignature{}, false, ErrSealed
	}

	c := vote.Data.Commitment

	if a.isDuplicate(vote.Data.Kind, c, vote.VoterKey) {
		return AssembledSignature{}, false, nil
	}

	switch vote.Data.Kind {
	case KindTimeout:
		// Hook left for a fourth accumulator or orthogonal mechanism; not
		// credited.
		return AssembledSignature{}, false, nil
	case KindDA, KindYes, KindNo, KindViewSyncPreCommit, KindViewSyncCommit, KindViewSyncFinalize:
	default:
		return AssembledSignature{}, false, nil
	}

	pure := a.decodeShare(vote.Signature)
	if !a.commitShare(voterIndex, pure) {
		return AssembledSignature{}, false, nil
	}

	entry := voteEntry{Signature: vote.Signature, Data: vote.Data, Token: vote.Token}
	switch vote.Data.Kind {
	case KindDA:
		a.da.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindYes:
		a.total.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
		a.yes.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindNo:
		a.total.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
		a.no.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindViewSyncPreCommit:
		a.precommit.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindViewSyncCommit:
		a.commit.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindViewSyncFinalize:
		a.finalize.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	}

	// Checked in order: Yes, No, DA, ViewSyncCommit, ViewSyncFinalize
	// (each gated by quorum-level thresholds), then ViewSyncPreCommit gated
	// by the lower failure threshold.
	total := a.total.stakeFor(c)
	if total >= a.successThreshold {
		if yes := a.yes.stakeFor(c); yes >= a.successThreshold {
			agg := a.assemble(entries, a.successThreshold)
			a.total.clear(c)
			a.yes.clear(c)
			a.no.clear(c)
			a.sealed = true
			return AssembledSignature{Kind: KindYes, Agg: agg}, true, nil
		}
		if no := a.no.stakeFor(c); no >= a.failureThreshold {
			agg := a.assemble(entries, a.failureThreshold)
			a.total.clear(c)
			a.yes.clear(c)
			a.no.clear(c)
			a.sealed = true
			return AssembledSignature{Kind: KindNo, Agg: agg}, true, nil
		}
	}
	if da := a.da.stakeFor(c); da >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.da.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindDA, Agg: agg}, true, nil
	}
	if cm := a.commit.stakeFor(c); cm >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.commit.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncCommit, Agg: agg}, true, nil
	}
	if f := a.finalize.stakeFor(c); f >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.finalize.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncFinalize, Agg: agg}, true, nil
	}
	if p := a.precommit.stakeFor(c); p >= a.failureThreshold {
		agg := a.assemble(entries, a.failureThreshold)
		a.precommit.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindViewSyncPreCommit, Agg: agg}, true, nil
	}

	return AssembledSignature{}, false, nil
}

// isDuplicate scopes the per-outcome duplicate check to the maps relevant
// for this vote's kind: DA only checks itself; Yes/No share the total
// map; the three ViewSync phases check each other.
func (a *UnifiedAccumulator) isDuplicate(kind VoteKind, c Commitment, voterKey EncodedPublicKey) bool {
	switch kind {
	case KindDA:
		return a.da.contains(c, voterKey)
	case KindYes, KindNo:
		return a.total.contains(c, voterKey)
	case KindViewSyncPreCommit, KindViewSyncCommit, KindViewSyncFinalize:
		return a.precommit.contains(c, voterKey) || a.commit.contains(c, voterKey) || a.finalize.contains(c, voterKey)
	default:
		return false
	}
}
