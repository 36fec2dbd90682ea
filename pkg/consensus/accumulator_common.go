package consensus

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// ErrSealed is returned by Append once an accumulator has already fired a
// certificate. A terminal accumulator never accepts further appends.
var ErrSealed = fmt.Errorf("accumulator: sealed, cannot append")

// base is the shared state and append-protocol machinery every accumulator
// kind embeds: the signers bitset, the parallel pure-signature list, and
// the sealed flag. Go has no move semantics, so "consume self, return
// evolved self or certificate" is modeled as in-place mutation guarded by
// sealed, rather than by generic type parameters over vote kind
// — collapsing the repetitive per-kind branches the original's phantom
// type parameters produced.
type base struct {
	label         string // for log fields: "da", "quorum", "viewsync", "unified"
	committeeSize int
	scheme        SignatureScheme
	signers       *bitset.BitSet
	sigLists      []PureSignature
	sealed        bool
	log           *zap.SugaredLogger
}

func newBase(label string, committeeSize int, scheme SignatureScheme, log *zap.SugaredLogger) base {
	return base{
		label:         label,
		committeeSize: committeeSize,
		scheme:        scheme,
		signers:       bitset.New(uint(committeeSize)),
		log:           log,
	}
}

// decodeShare performs step 2 of the common append protocol: decode the
// signature share into pure form. A decode failure is a programmer-error
// fault (the producer already validated the bytes at the byte level) and
// panics rather than returning an error.
func (b *base) decodeShare(sig EncodedSignature) PureSignature {
	pure, err := b.scheme.DecodeSignature(sig)
	if err != nil {
		panic(fmt.Errorf("consensus: signature decode failed, invariant violated upstream: %w", err))
	}
	return pure
}

// commitShare performs steps 4-5 of the common append protocol: the
// committee-position duplicate check and the paired signers/sigLists
// write. Returns false (silent reject) if voterIndex was already counted.
func (b *base) commitShare(voterIndex int, pure PureSignature) bool {
	if b.signers.Test(uint(voterIndex)) {
		if b.log != nil {
			b.log.Errorw("duplicate_committee_position",
				"kind", b.label, "voter_index", voterIndex)
		}
		return false
	}
	b.signers.Set(uint(voterIndex))
	b.sigLists = append(b.sigLists, pure)
	return true
}

// assemble performs step 7's certificate construction: public parameters
// from the committee snapshot and threshold, then the aggregate over the
// signers bitset and the accumulated pure signatures.
func (b *base) assemble(entries []StakeTableEntry, threshold uint64) AggregatedSignature {
	pp := b.scheme.PublicParameter(entries, threshold)
	return b.scheme.Assemble(pp, b.signers, b.sigLists)
}

// popcount exposes the signers bitset's cardinality, used by property
// tests to check the I2 signers/sigLists bijection invariant.
func (b *base) popcount() uint {
	return b.signers.Count()
}
