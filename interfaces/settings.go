package interfaces

// Settings is the configuration object a Stream consults at setup time
// (§6 "settings object" — named as an external collaborator, not
// specified beyond its call sites). Grounded on the teacher's
// interfaces.Account: a small, read-only, application-supplied
// configuration provider.
type Settings interface {
	// StanzaNamespace is the default namespace for stanzas on this stream,
	// e.g. "jabber:client" or "jabber:server".
	StanzaNamespace() string
	// StreamsNamespace is the XMPP streams namespace the root element's
	// "stream" prefix must resolve to, e.g.
	// "http://etherx.jabber.org/streams".
	StreamsNamespace() string
	// CanonicalStreamRootLocal is the expected local name of the stream
	// root element, e.g. "stream".
	CanonicalStreamRootLocal() string
	// SupportedLanguages lists the xml:lang tags this side can negotiate
	// to, most preferred first.
	SupportedLanguages() []string
	// ExpectedPeer returns the JID this side expects to connect to/from,
	// if pinned, and whether one is configured.
	ExpectedPeer() (JID, bool)
	// Initiator reports whether this side opens the stream (true) or
	// responds to it (false).
	Initiator() bool
	// EventQueue returns the external event queue lifecycle events are
	// put onto.
	EventQueue() EventQueue
	// CheckTo validates a receiver-side `to` attribute against the
	// configured server identity, returning the resolved JID this side
	// should bind to `me`.
	CheckTo(to string) (JID, error)
}
