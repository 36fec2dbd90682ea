package consensus

import "go.uber.org/zap"

// DAAccumulator collects data-availability votes for a single outcome:
// once accumulated stake over one block commitment crosses
// successThreshold, it fires a DA certificate.
type DAAccumulator struct {
	base
	successThreshold uint64
	votes            *VoteMap
}

// NewDAAccumulator creates a DA accumulator for a view's committee. The
// bitset is sized to committeeSize exactly at construction and never
// resized.
func NewDAAccumulator(committeeSize int, successThreshold uint64, scheme SignatureScheme, log *zap.SugaredLogger) *DAAccumulator {
	return &DAAccumulator{
		base:             newBase("da", committeeSize, scheme, log),
		successThreshold: successThreshold,
		votes:            newVoteMap(),
	}
}

// Append ingests one vote. It returns (cert, true, nil) when the vote
// crosses threshold and fires a certificate; (zero, false, nil) when the
// vote was accepted but nothing fired, or was a no-op (wrong kind,
// duplicate voter, duplicate committee position); and a non-nil error only
// once the accumulator has already fired and is sealed.
func (a *DAAccumulator) Append(vote Vote, voterIndex int, entries []StakeTableEntry) (AssembledSignature, bool, error) {
	if a.sealed {
		return AssembledSignature{}, false, ErrSealed
	}

	// Step 1: kind filter.
	if vote.Data.Kind != KindDA {
		return AssembledSignature{}, false, nil
	}
	c := vote.Data.Commitment

	// Step 3: per-outcome duplicate check.
	if a.votes.contains(c, vote.VoterKey) {
		return AssembledSignature{}, false, nil
	}

	// Step 2: decode signature share (total; panics on invariant violation).
	pure := a.decodeShare(vote.Signature)

	// Steps 4-5: committee-position duplicate check + commit share.
	if !a.commitShare(voterIndex, pure) {
		return AssembledSignature{}, false, nil
	}

	// Step 6: credit the outcome tally.
	a.votes.credit(c, vote.VoterKey, vote.Token.VoteCount, voteEntry{
		Signature: vote.Signature,
		Data:      vote.Data,
		Token:     vote.Token,
	})

	// Step 7: threshold check.
	if a.votes.stakeFor(c) >= a.successThreshold {
		agg := a.assemble(entries, a.successThreshold)
		a.votes.clear(c)
		a.sealed = true
		return AssembledSignature{Kind: KindDA, Agg: agg}, true, nil
	}

	return AssembledSignature{}, false, nil
}
