package consensus

import "go.uber.org/zap"

// QuorumAccumulator races Yes against No over a single leaf commitment.
// Every accepted vote credits the shared "total" tally plus one of
// "yes"/"no". VoteData::Timeout is not handled here: timeout certificates
// are collected by a mechanism outside this package's scope.
type QuorumAccumulator struct {
	base
	successThreshold uint64
	failureThreshold uint64
	total            *VoteMap
	yes              *VoteMap
	no               *VoteMap
}

func NewQuorumAccumulator(committeeSize int, successThreshold, failureThreshold uint64, scheme SignatureScheme, log *zap.SugaredLogger) *QuorumAccumulator {
	return &QuorumAccumulator{
		base:             newBase("quorum", committeeSize, scheme, log),
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
		total:            newVoteMap(),
		yes:              newVoteMap(),
		no:               newVoteMap(),
	}
}

func (a *QuorumAccumulator) Append(vote Vote, voterIndex int, entries []StakeTableEntry) (AssembledSignature, bool, error) {
	if a.sealed {
		return AssembledSignature{}, false, ErrSealed
	}

	// Step 1: kind filter - only Yes/No are raced here.
	if vote.Data.Kind != KindYes && vote.Data.Kind != KindNo {
		return AssembledSignature{}, false, nil
	}
	c := vote.Data.Commitment

	// Step 3: per-outcome duplicate check against the shared total tally
	// (one vote per voter per accumulator, regardless of which outcome).
	if a.total.contains(c, vote.VoterKey) {
		return AssembledSignature{}, false, nil
	}

	pure := a.decodeShare(vote.Signature)

	if !a.commitShare(voterIndex, pure) {
		return AssembledSignature{}, false, nil
	}

	entry := voteEntry{Signature: vote.Signature, Data: vote.Data, Token: vote.Token}
	a.total.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	switch vote.Data.Kind {
	case KindYes:
		a.yes.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	case KindNo:
		a.no.credit(c, vote.VoterKey, vote.Token.VoteCount, entry)
	}

	total := a.total.stakeFor(c)
	if total < a.successThreshold {
		return AssembledSignature{}, false, nil
	}

	// Yes is checked first, then No gated on total quorum so a premature No
	// can't fire from a small minority of dissent alone.
	yes := a.yes.stakeFor(c)
	if yes >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.total.clear(c)
		a.yes.clear(c)
		a.no.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindYes, Agg: agg}, true, nil
	}

	no := a.no.stakeFor(c)
	if no >= a.failureThreshold {
		agg := a.assemble(entries, a.failureThreshold)
		a.total.clear(c)
		a.yes.clear(c)
		a.no.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindNo, Agg: agg}, true, nil
	}

	return AssembledSignature{}, false, nil
}
