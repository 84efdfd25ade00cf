package protocol

// StreamDirection says which side of a stream session we are: the side that
// initiates toward a remote audience, or the side that accepts an incoming
// connection (optionally announcing the audience it receives as).
type StreamDirection struct {
	initiating      bool
	remote          Audience
	receiveAudience string
}

// Initiate returns the direction for a stream we open toward a remote peer.
func Initiate(remote Audience) StreamDirection {
	return StreamDirection{initiating: true, remote: remote}
}

// Accept returns the direction for a stream a peer opened toward us.
func Accept() StreamDirection {
	return StreamDirection{}
}

// AcceptAs is Accept with an explicit audience to receive messages as, for
// hosts that serve more than one audience on a single listener.
func AcceptAs(receiveAudience string) StreamDirection {
	return StreamDirection{receiveAudience: receiveAudience}
}

// Initiating reports whether we are the connecting side.
func (d StreamDirection) Initiating() bool { return d.initiating }

// Remote returns the audience we initiate toward. Zero for accepting streams.
func (d StreamDirection) Remote() Audience { return d.remote }

// ReceiveAudience returns the audience an accepting side receives as, or ""
// for the host default.
func (d StreamDirection) ReceiveAudience() string { return d.receiveAudience }

// String returns a short form for logs and traces.
func (d StreamDirection) String() string {
	if d.initiating {
		return "initiate(" + d.remote.String() + ")"
	}
	if d.receiveAudience != "" {
		return "accept(" + d.receiveAudience + ")"
	}
	return "accept"
}
