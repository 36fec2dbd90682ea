package consensus

import "github.com/bits-and-blooms/bitset"

// EncodedPublicKey and EncodedSignature are the canonical wire byte forms
// of a voter key and a signature share. The core treats both as opaque
// byte vectors suitable for use as map keys; (de)serialization is owned by
// the signature capability (pkg/crypto).
type EncodedPublicKey []byte
type EncodedSignature []byte

func (k EncodedPublicKey) String() string { return string(k) }

// PureSignature is a signature share decoded into the form the aggregator
// operates on. Opaque to this package; scheme-specific (e.g. a BLS
// signature value).
type PureSignature any

// PublicParameter is the per-threshold aggregation parameter built from a
// committee snapshot. Opaque to this package; scheme-specific.
type PublicParameter any

// AggregatedSignature is the threshold-signed aggregate carried inside an
// AssembledSignature certificate.
type AggregatedSignature any

// StakeTableEntry is a voter's public material plus its stake weight for
// this view, as required by the threshold signature scheme to verify and
// aggregate shares.
type StakeTableEntry struct {
	Key   EncodedPublicKey
	Stake uint64
}

// SignatureScheme is the signature/key capability the core consumes. It is
// assumed total and correct; the core never re-verifies individual shares
// and never constructs the
// threshold primitive itself — that stays with whatever concrete scheme
// (pkg/crypto) implements this interface.
type SignatureScheme interface {
	// DecodeSignature converts an encoded signature share into its pure
	// aggregation form. Assumed total for well-formed input; a decode
	// failure here is a programmer-error fault (base.decodeShare panics).
	DecodeSignature(encoded EncodedSignature) (PureSignature, error)

	// PublicParameter builds the aggregation parameter for a committee
	// snapshot and a threshold.
	PublicParameter(entries []StakeTableEntry, threshold uint64) PublicParameter

	// Assemble produces the aggregated threshold signature from the set of
	// committee positions that signed (the signers bitset, indexing into
	// entries) and their pure-form signature shares, in signer order.
	Assemble(pp PublicParameter, signers *bitset.BitSet, sigs []PureSignature) AggregatedSignature
}
