package network

import (
	"context"
	"errors"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/hotqc/node/pkg/consensus"
)

const (
	topicVotes = "qc-votes"
	topicCerts = "qc-certs"
)

// Libp2pMesh is the validator-to-validator gossip mesh: votes flow in over
// topicVotes, fired certificates flow out over topicCerts. It implements
// driver.VoteSource (Recv) and driver.CertSink (Publish); the core never
// imports this package directly — networking is an external collaborator
// consumed only through capability interfaces.
type Libp2pMesh struct {
	h  host.Host
	ps *pubsub.PubSub
	log *zap.SugaredLogger

	tVotes, tCerts     *pubsub.Topic
	subVotes, subCerts *pubsub.Subscription
}

type MeshConfig struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

func NewLibp2pMesh(ctx context.Context, cfg MeshConfig) (*Libp2pMesh, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}

	m := &Libp2pMesh{h: h, ps: ps, log: cfg.Logger}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	if err := m.joinTopics(); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Infow("mesh_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	}
	return m, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (m *Libp2pMesh) joinTopics() error {
	var err error
	if m.tVotes, err = m.ps.Join(topicVotes); err != nil {
		return err
	}
	if m.tCerts, err = m.ps.Join(topicCerts); err != nil {
		return err
	}
	if m.subVotes, err = m.tVotes.Subscribe(); err != nil {
		return err
	}
	if m.subCerts, err = m.tCerts.Subscribe(); err != nil {
		return err
	}
	return nil
}

func (m *Libp2pMesh) Host() host.Host { return m.h }

// BroadcastVote gossips a locally-produced vote share to the rest of the
// committee.
func (m *Libp2pMesh) BroadcastVote(ctx context.Context, v consensus.Vote) error {
	data, err := gobEncode(toWire(v))
	if err != nil {
		return err
	}
	return m.tVotes.Publish(ctx, data)
}

// Recv implements driver.VoteSource: it blocks until a vote arrives over
// the mesh or ctx is canceled.
func (m *Libp2pMesh) Recv(ctx context.Context) (consensus.Vote, error) {
	msg, err := m.subVotes.Next(ctx)
	if err != nil {
		return consensus.Vote{}, err
	}
	var w VoteWire
	if err := gobDecode(msg.Data, &w); err != nil {
		if m.log != nil {
			m.log.Warnw("vote_decode_failed", "err", err)
		}
		return consensus.Vote{}, errors.New("network: malformed vote on wire")
	}
	return w.toVote(), nil
}

// Publish implements driver.CertSink: it gossips a fired certificate to
// every other validator in the mesh.
func (m *Libp2pMesh) Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error {
	data, err := gobEncode(CertWire{View: view, Kind: cert.Kind, Agg: cert.Agg})
	if err != nil {
		return err
	}
	return m.tCerts.Publish(context.Background(), data)
}

// RecvCert reads a certificate gossiped by a peer (used by observers that
// want the mesh's copy instead of waiting on their own accumulator to fire).
func (m *Libp2pMesh) RecvCert(ctx context.Context) (consensus.ViewNumber, consensus.AssembledSignature, error) {
	msg, err := m.subCerts.Next(ctx)
	if err != nil {
		return 0, consensus.AssembledSignature{}, err
	}
	var w CertWire
	if err := gobDecode(msg.Data, &w); err != nil {
		return 0, consensus.AssembledSignature{}, errors.New("network: malformed certificate on wire")
	}
	return w.View, consensus.AssembledSignature{Kind: w.Kind, Agg: w.Agg}, nil
}
