package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hotqc/node/pkg/consensus"
	"github.com/hotqc/node/pkg/crypto"
)

func testCommittee(n int) Committee {
	entries := make([]consensus.StakeTableEntry, n)
	for i := range entries {
		entries[i] = consensus.StakeTableEntry{
			Key:   consensus.EncodedPublicKey([]byte(fmt.Sprintf("voter-%d", i))),
			Stake: 1,
		}
	}
	return Committee{Entries: entries, Success: uint64(n) - 1, Failure: uint64(n) / 2}
}

func TestRegistry_OpenViewRejectsDuplicate(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	committee := testCommittee(4)

	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("first OpenView: %v", err)
	}
	if err := r.OpenView(1, committee, false); err == nil {
		t.Fatalf("expected error reopening view 1")
	}
}

func TestRegistry_OpenViewRejectsEmptyCommittee(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	if err := r.OpenView(1, Committee{}, false); err != ErrEmptyCommittee {
		t.Fatalf("err = %v, want ErrEmptyCommittee", err)
	}
}

func TestRegistry_DispatchUnknownViewErrors(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	_, _, err := r.Dispatch(consensus.Vote{View: 99})
	if err == nil {
		t.Fatalf("expected error dispatching to a view never opened")
	}
}

func TestRegistry_DispatchFiresDACertificate(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	committee := testCommittee(4)
	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("OpenView: %v", err)
	}

	c := consensus.CommitmentOf([]byte("block-x"))
	var fired bool
	for i := 0; i < 3; i++ {
		key := committee.Entries[i].Key
		_, f, err := r.Dispatch(consensus.Vote{
			VoterKey:  key,
			Signature: consensus.EncodedSignature([]byte("sig")),
			Token:     consensus.VoteToken{VoteCount: 1},
			Data:      consensus.DA(c),
			View:      1,
		})
		if err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
		fired = f
	}
	if !fired {
		t.Fatalf("expected DA certificate to fire across the open view")
	}
}

func TestRegistry_AbandonViewDropsState(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	committee := testCommittee(4)
	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("OpenView: %v", err)
	}
	r.AbandonView(1)

	if _, _, err := r.Dispatch(consensus.Vote{View: 1}); err == nil {
		t.Fatalf("expected dispatch to an abandoned view to error")
	}
	// Reopening after abandonment must succeed.
	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("reopen after abandon: %v", err)
	}
}

func TestRegistry_VoteFromUnknownVoterIsSilentlyDropped(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	committee := testCommittee(4)
	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("OpenView: %v", err)
	}

	_, fired, err := r.Dispatch(consensus.Vote{
		VoterKey: consensus.EncodedPublicKey([]byte("not-in-committee")),
		View:     1,
		Data:     consensus.DA(consensus.CommitmentOf([]byte("block-y"))),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fired {
		t.Fatalf("vote from unknown committee member must not fire a certificate")
	}
}

// stubSource replays a fixed sequence of votes, signaling drained once
// they're all consumed, then blocks until ctx is canceled — exercising
// Run's full loop deterministically, without a real network or a sleep.
type stubSource struct {
	votes   []consensus.Vote
	i       int
	drained chan struct{}
	once    sync.Once
}

func (s *stubSource) Recv(ctx context.Context) (consensus.Vote, error) {
	if s.i < len(s.votes) {
		v := s.votes[s.i]
		s.i++
		if s.i == len(s.votes) {
			s.once.Do(func() { close(s.drained) })
		}
		return v, nil
	}
	<-ctx.Done()
	return consensus.Vote{}, ctx.Err()
}

type stubSink struct {
	mu        sync.Mutex
	published []consensus.AssembledSignature
}

func (s *stubSink) Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, cert)
	return nil
}

func TestRegistry_RunPublishesFiredCertificates(t *testing.T) {
	r := NewRegistry(crypto.LocalTestScheme{}, nil)
	committee := testCommittee(4)
	if err := r.OpenView(1, committee, false); err != nil {
		t.Fatalf("OpenView: %v", err)
	}

	c := consensus.CommitmentOf([]byte("block-z"))
	votes := make([]consensus.Vote, 3)
	for i := range votes {
		votes[i] = consensus.Vote{
			VoterKey:  committee.Entries[i].Key,
			Signature: consensus.EncodedSignature([]byte("sig")),
			Token:     consensus.VoteToken{VoteCount: 1},
			Data:      consensus.DA(c),
			View:      1,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	source := &stubSource{votes: votes, drained: make(chan struct{})}
	sink := &stubSink{}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, source, sink) }()

	<-source.drained
	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.published) != 1 {
		t.Fatalf("published %d certificates, want 1", len(sink.published))
	}
	if sink.published[0].Kind != consensus.KindDA {
		t.Errorf("cert kind = %v, want DA", sink.published[0].Kind)
	}
}
