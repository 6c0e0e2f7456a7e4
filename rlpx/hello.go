package rlpx

// Capability names a devp2p subprotocol this node speaks, as advertised
// in a Hello message.
type Capability struct {
	Name    string
	Version uint
}

// HelloMessage is the RLPx subprotocol hello exchanged immediately after
// the authenticated session is established, over the newly-framed
// transport, per §4.3/§6.
type HelloMessage struct {
	ProtocolVersion uint
	ClientID        string
	Capabilities    []Capability
	ListenPort      uint
	NodeID          [64]byte
}
