package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hotqc/node/pkg/config"
	"github.com/hotqc/node/pkg/consensus"
	"github.com/hotqc/node/pkg/crypto"
	"github.com/hotqc/node/pkg/driver"
	"github.com/hotqc/node/pkg/network"
	"github.com/hotqc/node/pkg/storage"
	"github.com/hotqc/node/pkg/util"
)

// fanoutSink publishes a fired certificate to every configured collaborator
// (observer broadcast, validator gossip, durable storage, audit log). A
// failure in one does not stop the others — the accumulator has already
// sealed by the time Publish runs, so there is nothing left to roll back.
type fanoutSink struct {
	sinks []driver.CertSink
	wal   storage.WAL
	log   interface {
		Errorw(string, ...interface{})
	}
}

func (f *fanoutSink) Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error {
	if f.wal != nil {
		f.wal.Append(storage.CertificateLine(view, cert))
	}
	for _, s := range f.sinks {
		if err := s.Publish(view, cert); err != nil && f.log != nil {
			f.log.Errorw("sink_publish_failed", "view", view, "kind", cert.Kind, "err", err)
		}
	}
	return nil
}

// storageSink adapts storage.CertStore to driver.CertSink, reducing the
// scheme-opaque AggregatedSignature to bytes via the scheme's
// AggregateCodec before it touches disk.
type storageSink struct {
	store storage.CertStore
	codec storage.AggregateCodec
}

func (s *storageSink) Publish(view consensus.ViewNumber, cert consensus.AssembledSignature) error {
	raw, err := s.codec.EncodeAggregate(cert.Agg)
	if err != nil {
		return err
	}
	if err := s.store.SaveCertificate(storage.CertRecord{
		View:         view,
		Kind:         cert.Kind,
		RawAggregate: raw,
	}); err != nil {
		return err
	}
	s.store.SetCheckpoint(view)
	return nil
}

func main() {
	cfg := config.LoadFromEnv("")

	logPath := os.Getenv("LOG_FILE")
	if logPath == "" {
		logPath = filepath.Join(cfg.DataDir, "qcnode.log")
	}
	logger, err := util.NewLoggerWithFile(logPath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		sugar.Fatalw("data_dir_failed", "dir", cfg.DataDir, "err", err)
	}

	var scheme consensus.SignatureScheme
	var codec storage.AggregateCodec
	if os.Getenv("INSECURE_LOCAL_SCHEME") == "true" {
		sugar.Warn("running with crypto.LocalTestScheme — NOT cryptographically sound, devnet only")
		scheme = crypto.LocalTestScheme{}
		codec = crypto.LocalTestScheme{}
	} else {
		scheme = crypto.BLSScheme{}
		codec = crypto.BLSScheme{}
	}

	seed := []byte(os.Getenv("NODE_SEED"))
	if len(seed) == 0 {
		seed = []byte("qcnode-devnet-seed")
	}
	self := crypto.NewBLSSignerFromSeed(seed)

	committee := buildCommittee(self, cfg)
	sugar.Infow("committee_loaded", "size", len(committee.Entries),
		"success_threshold", committee.Success, "failure_threshold", committee.Failure)

	registry := driver.NewRegistry(scheme, sugar)
	const genesisView = consensus.ViewNumber(1)
	if err := registry.OpenView(genesisView, committee, cfg.UseUnified); err != nil {
		sugar.Fatalw("open_view_failed", "view", genesisView, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mesh, err := network.NewLibp2pMesh(ctx, network.MeshConfig{
		ListenAddr: cfg.ListenAddr,
		Bootstrap:  cfg.Bootstrap,
		Logger:     sugar,
	})
	if err != nil {
		sugar.Fatalw("mesh_init_failed", "err", err)
	}

	certStore, err := storage.NewPebbleCertStore(filepath.Join(cfg.DataDir, "certs"))
	if err != nil {
		sugar.Fatalw("cert_store_init_failed", "err", err)
	}
	defer certStore.Close()

	wal, err := storage.NewFileWAL(filepath.Join(cfg.DataDir, "certs.wal"))
	if err != nil {
		sugar.Fatalw("wal_init_failed", "err", err)
	}

	wsServer := network.NewServer()

	sink := &fanoutSink{
		sinks: []driver.CertSink{
			wsServer,
			mesh,
			&storageSink{store: certStore, codec: codec},
		},
		wal: wal,
		log: sugar,
	}

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.APIAddr)
		if err := wsServer.Start(cfg.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("registry_starting", "view", genesisView)
	if err := registry.Run(ctx, mesh, sink); err != nil && ctx.Err() == nil {
		sugar.Fatalw("registry_failed", "err", err)
	}
}

// buildCommittee resolves the committee snapshot for the genesis view. In
// production this would come from a discovery service; here it's either
// the env-provided key list or, in devnet mode, just this node.
func buildCommittee(self *crypto.BLSSigner, cfg config.Config) driver.Committee {
	keysEnv := os.Getenv("COMMITTEE_KEYS")
	if keysEnv == "" {
		return driver.Committee{
			Entries: []consensus.StakeTableEntry{{Key: self.EncodedPubkey(), Stake: 1}},
			Success: 1,
			Failure: 1,
		}
	}

	var entries []consensus.StakeTableEntry
	for _, k := range strings.Split(keysEnv, ",") {
		entries = append(entries, consensus.StakeTableEntry{
			Key:   consensus.EncodedPublicKey([]byte(k)),
			Stake: 1,
		})
	}
	return driver.Committee{
		Entries: entries,
		Success: cfg.SuccessThreshold,
		Failure: cfg.FailureThreshold,
	}
}
