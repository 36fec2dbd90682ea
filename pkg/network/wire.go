package network

import (
	"bytes"
	"encoding/gob"

	"github.com/hotqc/node/pkg/consensus"
	"github.com/hotqc/node/pkg/crypto"
)

func init() {
	gob.Register(VoteWire{})
	gob.Register(CertWire{})
	gob.Register(crypto.BLSAggregate{})
	gob.Register([]byte(nil)) // LocalTestScheme's AggregatedSignature form
}

// VoteWire is the gob envelope a Vote travels the gossip mesh in.
type VoteWire struct {
	VoterKey  consensus.EncodedPublicKey
	Signature consensus.EncodedSignature
	VoteCount uint64
	Kind      consensus.VoteKind
	Commitment consensus.Commitment
	View      consensus.ViewNumber
}

func toWire(v consensus.Vote) VoteWire {
	return VoteWire{
		VoterKey:   v.VoterKey,
		Signature:  v.Signature,
		VoteCount:  v.Token.VoteCount,
		Kind:       v.Data.Kind,
		Commitment: v.Data.Commitment,
		View:       v.View,
	}
}

func (w VoteWire) toVote() consensus.Vote {
	return consensus.Vote{
		VoterKey:  w.VoterKey,
		Signature: w.Signature,
		Token:     consensus.VoteToken{VoteCount: w.VoteCount},
		Data:      consensus.VoteData{Kind: w.Kind, Commitment: w.Commitment},
		View:      w.View,
	}
}

// CertWire is the gob envelope a fired AssembledSignature travels in.
type CertWire struct {
	View consensus.ViewNumber
	Kind consensus.VoteKind
	Agg  consensus.AggregatedSignature
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
