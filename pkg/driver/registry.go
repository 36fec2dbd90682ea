package driver

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hotqc/node/pkg/consensus"
)

// Committee is the per-view snapshot an accumulator needs to be
// constructed: the stake table and the two thresholds.
type Committee struct {
	Entries []consensus.StakeTableEntry
	Success uint64
	Failure uint64
}

func (c Committee) indexOf(key consensus.EncodedPublicKey) (int, bool) {
	for i, e := range c.Entries {
		if string(e.Key) == string(key) {
			return i, true
		}
	}
	return 0, false
}

// VoteSource is the inbound collaborator: something that hands the
// registry one decoded, byte-verified vote at a time.
type VoteSource interface {
	Recv(ctx context.Context) (consensus.Vote, error)
}

// CertSink is the outbound collaborator: the registry fans every fired
// certificate out to one or more of these.
type CertSink interface {
	Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error
}

var (
	ErrViewAlreadyOpen = fmt.Errorf("driver: view already open")
	ErrViewNotOpen     = fmt.Errorf("driver: view not open")
	ErrEmptyCommittee  = fmt.Errorf("driver: committee has no entries")
)

type viewSet struct {
	committee Committee
	da        *consensus.DAAccumulator
	quorum    *consensus.QuorumAccumulator
	viewSync  *consensus.ViewSyncAccumulator
	unified   *consensus.UnifiedAccumulator
}

// Registry is the per-view dispatcher: it selects the right accumulator
// for a vote's kind and view, holding one live accumulator set per open
// view and routing decoded votes to it. It does NOT elect leaders, run
// pacemaker timers, or advance views — that is out of scope here.
type Registry struct {
	mu     sync.Mutex
	scheme consensus.SignatureScheme
	log    *zap.SugaredLogger
	byView map[consensus.ViewNumber]*viewSet
}

func NewRegistry(scheme consensus.SignatureScheme, log *zap.SugaredLogger) *Registry {
	return &Registry{
		scheme: scheme,
		log:    log,
		byView: make(map[consensus.ViewNumber]*viewSet),
	}
}

// OpenView allocates a fresh accumulator set for view, sized to committee.
// By default it allocates the three per-kind accumulators (DA, Quorum,
// ViewSync); useUnified switches to the single legacy superset accumulator
// instead, for drivers migrating off it gradually.
func (r *Registry) OpenView(view consensus.ViewNumber, committee Committee, useUnified bool) error {
	if len(committee.Entries) == 0 {
		return ErrEmptyCommittee
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byView[view]; ok {
		return fmt.Errorf("%w: view %d", ErrViewAlreadyOpen, view)
	}

	n := len(committee.Entries)
	vs := &viewSet{committee: committee}
	if useUnified {
		vs.unified = consensus.NewUnifiedAccumulator(n, committee.Success, committee.Failure, r.scheme, r.log)
	} else {
		vs.da = consensus.NewDAAccumulator(n, committee.Success, r.scheme, r.log)
		vs.quorum = consensus.NewQuorumAccumulator(n, committee.Success, committee.Failure, r.scheme, r.log)
		vs.viewSync = consensus.NewViewSyncAccumulator(n, committee.Success, committee.Failure, r.scheme, r.log)
	}
	r.byView[view] = vs
	return nil
}

// AbandonView discards view's accumulator set, whether or not it ever
// fired: a view that times out or is superseded is simply dropped, not
// drained.
func (r *Registry) AbandonView(view consensus.ViewNumber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byView, view)
}

// Dispatch resolves vote's committee index and routes it to the
// accumulator matching its kind within its view: the caller resolves
// vote.VoterKey to a committee index before calling append.
func (r *Registry) Dispatch(vote consensus.Vote) (consensus.AssembledSignature, bool, error) {
	r.mu.Lock()
	vs, ok := r.byView[vote.View]
	r.mu.Unlock()
	if !ok {
		return consensus.AssembledSignature{}, false, fmt.Errorf("%w: view %d", ErrViewNotOpen, vote.View)
	}

	idx, ok := vs.committee.indexOf(vote.VoterKey)
	if !ok {
		if r.log != nil {
			r.log.Debugw("vote_from_unknown_committee_member", "view", vote.View, "kind", vote.Data.Kind)
		}
		return consensus.AssembledSignature{}, false, nil
	}

	if vs.unified != nil {
		return vs.unified.Append(vote, idx, vs.committee.Entries)
	}

	switch vote.Data.Kind {
	case consensus.KindDA:
		return vs.da.Append(vote, idx, vs.committee.Entries)
	case consensus.KindYes, consensus.KindNo:
		return vs.quorum.Append(vote, idx, vs.committee.Entries)
	case consensus.KindViewSyncPreCommit, consensus.KindViewSyncCommit, consensus.KindViewSyncFinalize:
		return vs.viewSync.Append(vote, idx, vs.committee.Entries)
	default:
		return consensus.AssembledSignature{}, false, nil
	}
}

// Run drains source until ctx is canceled or Recv errors, dispatching every
// vote and publishing whatever certificates fire to sink. A vote for a
// view that isn't open (e.g. already closed, or never opened) is logged
// and skipped rather than treated as fatal — the registry tolerates a
// noisy network same as the accumulators tolerate noisy votes.
func (r *Registry) Run(ctx context.Context, source VoteSource, sink CertSink) error {
	for {
		vote, err := source.Recv(ctx)
		if err != nil {
			return err
		}

		cert, fired, err := r.Dispatch(vote)
		if err != nil {
			if r.log != nil {
				r.log.Debugw("dispatch_skipped", "view", vote.View, "err", err)
			}
			continue
		}
		if !fired {
			continue
		}
		if err := sink.Publish(vote.View, cert); err != nil && r.log != nil {
			r.log.Errorw("publish_failed", "view", vote.View, "err", err)
		}
	}
}
