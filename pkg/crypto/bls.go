package crypto

import (
	"fmt"

	bls "github.com/cloudflare/circl/sign/bls"

	"github.com/bits-and-blooms/bitset"

	"github.com/hotqc/node/pkg/consensus"
)

type scheme = bls.KeyG1SigG2

type BLSPubKey = bls.PublicKey[scheme]

// BLSSigner holds one committee member's keypair and produces vote shares
// in the encoded form pkg/consensus expects.
type BLSSigner struct {
	sk *bls.PrivateKey[scheme]
	pk *BLSPubKey
}

// NewBLSSignerFromSeed derives a keypair deterministically from seed.
// Intended for tests and local devnets; production key material should
// come from a dedicated key-management flow outside this package's scope.
func NewBLSSignerFromSeed(seed []byte) *BLSSigner {
	sk, _ := bls.KeyGen[scheme](seed, nil, nil)
	return &BLSSigner{sk: sk, pk: sk.PublicKey()}
}

func (s *BLSSigner) Pubkey() *BLSPubKey { return s.pk }

// EncodedPubkey returns the canonical wire form pkg/consensus keys its
// StakeTableEntry and VoteMap lookups on.
func (s *BLSSigner) EncodedPubkey() consensus.EncodedPublicKey {
	b, err := s.pk.MarshalBinary()
	if err != nil {
		panic(fmt.Errorf("crypto: public key failed to marshal: %w", err))
	}
	return consensus.EncodedPublicKey(b)
}

// SignVote produces the encoded signature share a Vote carries over msg
// (the commitment bytes being voted on).
func (s *BLSSigner) SignVote(msg []byte) consensus.EncodedSignature {
	return consensus.EncodedSignature(bls.Sign(s.sk, msg))
}

// BLSScheme implements consensus.SignatureScheme over circl's BLS
// (G1 public keys, G2 signatures, min-pubkey-size variant), the scheme
// named throughout SPEC_FULL.md's domain stack table.
type BLSScheme struct{}

func (BLSScheme) DecodeSignature(encoded consensus.EncodedSignature) (consensus.PureSignature, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("crypto: empty signature share")
	}
	return bls.Signature(encoded), nil
}

// blsParams is this scheme's pure PublicParameter: the committee's decoded
// public keys in committee-index order, ready for Assemble to pick out the
// signer subset without re-parsing encoded bytes.
type blsParams struct {
	pubkeys []*BLSPubKey
}

func (BLSScheme) PublicParameter(entries []consensus.StakeTableEntry, threshold uint64) consensus.PublicParameter {
	pubkeys := make([]*BLSPubKey, len(entries))
	for i, e := range entries {
		pk := new(BLSPubKey)
		if err := pk.UnmarshalBinary(e.Key); err != nil {
			panic(fmt.Errorf("crypto: invalid committee public key at index %d: %w", i, err))
		}
		pubkeys[i] = pk
	}
	return blsParams{pubkeys: pubkeys}
}

// BLSAggregate is the AggregatedSignature this scheme produces: the
// combined BLS signature plus the public keys of everyone who signed, in
// no particular order (the aggregate check in VerifyAggregate below is
// order-independent when every share signs the same message).
type BLSAggregate struct {
	Signature []byte
	Signers   []*BLSPubKey
}

func (BLSScheme) Assemble(pp consensus.PublicParameter, signers *bitset.BitSet, sigs []consensus.PureSignature) consensus.AggregatedSignature {
	params := pp.(blsParams)

	raw := make([]bls.Signature, 0, len(sigs))
	for _, s := range sigs {
		raw = append(raw, s.(bls.Signature))
	}

	signerKeys := make([]*BLSPubKey, 0, signers.Count())
	for i, ok := signers.NextSet(0); ok; i, ok = signers.NextSet(i + 1) {
		signerKeys = append(signerKeys, params.pubkeys[i])
	}

	agg, err := bls.Aggregate(bls.G1{}, raw)
	if err != nil {
		panic(fmt.Errorf("crypto: aggregation failed on %d shares: %w", len(raw), err))
	}
	return BLSAggregate{Signature: agg, Signers: signerKeys}
}

// VerifyAggregate checks an assembled certificate against msg, the payload
// every contributing share signed.
func VerifyAggregate(agg BLSAggregate, msg []byte) bool {
	if len(agg.Signers) == 0 {
		return false
	}
	return bls.VerifyAggregate(agg.Signers, [][]byte{msg}, bls.Signature(agg.Signature))
}
