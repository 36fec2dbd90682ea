package crypto

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hotqc/node/pkg/consensus"
)

// LocalTestScheme is a non-cryptographic consensus.SignatureScheme:
// "signing" is identity and "aggregation" is concatenation. It backs
// pkg/driver's own tests and local smoke runs where standing up real BLS
// keys for every committee member is unnecessary ceremony; it must never
// back a committee that needs actual unforgeability.
type LocalTestScheme struct{}

func (LocalTestScheme) DecodeSignature(encoded consensus.EncodedSignature) (consensus.PureSignature, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("crypto: empty signature share")
	}
	return []byte(encoded), nil
}

func (LocalTestScheme) PublicParameter(entries []consensus.StakeTableEntry, threshold uint64) consensus.PublicParameter {
	return threshold
}

func (LocalTestScheme) Assemble(pp consensus.PublicParameter, signers *bitset.BitSet, sigs []consensus.PureSignature) consensus.AggregatedSignature {
	var buf bytes.Buffer
	for _, s := range sigs {
		buf.Write(s.([]byte))
	}
	return buf.Bytes()
}
