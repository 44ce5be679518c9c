package interfaces

// Restriction limits an element handler to one side of the stream, per
// §4.5's "usage restriction" metadata.
type Restriction string

const (
	RestrictionNone      Restriction = ""
	RestrictionInitiator Restriction = "initiator"
	RestrictionReceiver  Restriction = "receiver"
)

// FeatureResult is the outcome of StreamFeatureHandler.HandleStreamFeatures,
// one of Handled, NotHandled, or nil (continue to the next handler).
// Per §9's redesign note, this is modeled as an explicit tagged struct
// rather than a duck-typed return, avoiding open objects.
type FeatureResult struct {
	Handled   bool
	Name      string
	Mandatory bool
}

// Handled builds a FeatureResult reporting that this handler consumed the
// features element.
func Handled(name string, mandatory bool) *FeatureResult {
	return &FeatureResult{Handled: true, Name: name, Mandatory: mandatory}
}

// NotHandled builds a FeatureResult reporting that this handler recognized
// but did not (yet) satisfy the feature, e.g. because a collaborator
// (SASL, StartTLS) hasn't been configured.
func NotHandled(name string, mandatory bool) *FeatureResult {
	return &FeatureResult{Handled: false, Name: name, Mandatory: mandatory}
}

// StreamFeatureHandler is a pluggable extension point for stream-level
// negotiation: StartTLS, SASL, resource binding, compression, and so on
// (§6 "Stream feature handler interface").
type StreamFeatureHandler interface {
	// Name identifies the handler for registry bookkeeping and logging.
	Name() string
	// HandleStreamFeatures is consulted on the initiator side whenever a
	// <features/> element is received. Returning nil means "not
	// applicable, try the next handler."
	HandleStreamFeatures(stream StreamHandle, features *Element) *FeatureResult
	// MakeStreamFeatures is consulted on the receiver side to contribute
	// this handler's advertisement into the outgoing <features/> element.
	MakeStreamFeatures(stream StreamHandle, features *Element)
	// ElementHandlers returns the (qname, restriction, fn) tuples this
	// handler wants installed into Stream.element_handlers, per §9's
	// "explicit registration API" redesign (no reflective introspection).
	ElementHandlers() []ElementHandlerEntry
}

// ElementHandlerEntry is one explicit registration tuple: the qualified
// name this handler answers for, the side it applies to, and the
// function to invoke. Fn returns true to stop dispatch (§4.5).
type ElementHandlerEntry struct {
	QName       string
	Restriction Restriction
	Fn          func(stream StreamHandle, el *Element) bool
}

// StreamHandle is the subset of Stream a feature handler is allowed to
// call back into — deliberately narrower than the full Stream type so
// feature-handler packages don't need to import package stream (avoiding
// an import cycle between stream and interfaces).
type StreamHandle interface {
	Me() JID
	Peer() JID
	SetMe(JID)
	SetPeer(JID)
	StreamID() string
	Initiator() bool
	Send(el *Element) error
	SetTLSEstablished(bool)
	TLSEstablished() bool
	SetAuthenticated(me JID, authMethod string, restart bool)
	SetPeerAuthenticated(peer JID, authMethod string, restart bool)
	Authenticated() bool
	PeerAuthenticated() bool
	RestartStream()
	Logger() Logger
}
