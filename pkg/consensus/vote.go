package consensus

// VoteKind discriminates what a VoteData commits to.
type VoteKind uint8

const (
	KindDA VoteKind = iota
	KindYes
	KindNo
	KindTimeout
	KindViewSyncPreCommit
	KindViewSyncCommit
	KindViewSyncFinalize
)

func (k VoteKind) String() string {
	switch k {
	case KindDA:
		return "DA"
	case KindYes:
		return "Yes"
	case KindNo:
		return "No"
	case KindTimeout:
		return "Timeout"
	case KindViewSyncPreCommit:
		return "ViewSyncPreCommit"
	case KindViewSyncCommit:
		return "ViewSyncCommit"
	case KindViewSyncFinalize:
		return "ViewSyncFinalize"
	default:
		return "Unknown"
	}
}

// VoteData tags a commitment with what it's being voted on. A tagged
// variant rather than a type-parameterized enum, per the design notes:
// payload kinds live inside VoteData instead of threading a phantom
// COMMITTABLE type parameter through every accumulator.
type VoteData struct {
	Kind       VoteKind
	Commitment Commitment
}

func DA(c Commitment) VoteData                { return VoteData{Kind: KindDA, Commitment: c} }
func Yes(c Commitment) VoteData               { return VoteData{Kind: KindYes, Commitment: c} }
func No(c Commitment) VoteData                { return VoteData{Kind: KindNo, Commitment: c} }
func Timeout(c Commitment) VoteData           { return VoteData{Kind: KindTimeout, Commitment: c} }
func ViewSyncPreCommit(c Commitment) VoteData { return VoteData{Kind: KindViewSyncPreCommit, Commitment: c} }
func ViewSyncCommit(c Commitment) VoteData    { return VoteData{Kind: KindViewSyncCommit, Commitment: c} }
func ViewSyncFinalize(c Commitment) VoteData  { return VoteData{Kind: KindViewSyncFinalize, Commitment: c} }

// VoteToken carries the voter's effective stake for this view.
type VoteToken struct {
	VoteCount uint64
}

// Vote is the immutable record delivered by the network decoder: a voter's
// signature share over some VoteData, cast in a given view. Signature
// byte-validity is assumed already established by the caller; the core
// never re-verifies individual shares.
type Vote struct {
	VoterKey  EncodedPublicKey
	Signature EncodedSignature
	Token     VoteToken
	Data      VoteData
	View      ViewNumber
}
