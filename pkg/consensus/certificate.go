package consensus

// AssembledSignature is the terminal certificate payload an accumulator
// produces. The driver persists and broadcasts these; the core neither
// touches disk nor the network.
type AssembledSignature struct {
	Kind VoteKind
	Agg  AggregatedSignature
}
