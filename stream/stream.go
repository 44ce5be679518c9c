// Package stream implements the XMPP stream state machine: header
// exchange, version negotiation, feature advertisement, stream restart
// after SASL/StartTLS, stanza dispatch, and stream-error handling.
// Grounded on the teacher's core package (the root orchestration type
// that owns a registry, dispatches to pluggable handlers, and carries
// its own concurrency-guarded state).
package stream

import (
	"sync"
	"time"

	"github.com/maximhq/xmppstream/interfaces"
)

// ioState is a stream direction's lifecycle stage (§3 input_state /
// output_state): null → "open" → ("restart" → "open")* → "closed".
type ioState int

const (
	ioNull ioState = iota
	ioOpen
	ioRestart
	ioClosed
)

func (s ioState) String() string {
	switch s {
	case ioOpen:
		return "open"
	case ioRestart:
		return "restart"
	case ioClosed:
		return "closed"
	default:
		return ""
	}
}

// version is the stream's negotiated protocol version (§3).
type version struct {
	Major, Minor int
}

// Stream implements interfaces.ParserTarget and interfaces.StreamHandle:
// the XMPP stream state machine described by §3/§4.5. Fields are
// mutated only under mu (§5's "Stream lock"), except for transport,
// settings, and the handler registry which are set once at
// construction and read without locking thereafter.
type Stream struct {
	mu sync.Mutex

	settings  interfaces.Settings
	transport interfaces.Transport
	logger    interfaces.Logger

	registry *Registry

	stanzaNamespace string
	initiator       bool

	me, peer JID
	streamID string
	ver      version
	language, peerLanguage string

	features *interfaces.Element

	authenticated     bool
	peerAuthenticated bool
	tlsEstablished    bool
	authMethodUsed    string

	inputState, outputState ioState

	elementHandlers map[string]elementHandlerBinding

	stanzaProcessor interfaces.StanzaProcessor
	stanzaFactory   func(*interfaces.Element) (interfaces.Stanza, error)
}

// SetStanzaFactory installs the external stanza-construction
// collaborator (§1 "stanza factory", out of scope for this module) used
// by processElement to turn a stanza-namespace Element into a Stanza.
func (s *Stream) SetStanzaFactory(factory func(*interfaces.Element) (interfaces.Stanza, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stanzaFactory = factory
}

type elementHandlerBinding struct {
	restriction interfaces.Restriction
	fn          func(interfaces.StreamHandle, *interfaces.Element) bool
}

// New constructs a Stream bound to the given settings, transport, and
// feature-handler registry. It installs the registry's element handlers
// for this side immediately; the stanza processor's pre-auth handler set
// is installed by Initiate, and its post-auth set by SetAuthenticated /
// SetPeerAuthenticated.
func New(settings interfaces.Settings, transport interfaces.Transport, registry *Registry, processor interfaces.StanzaProcessor, logger interfaces.Logger) *Stream {
	s := &Stream{
		settings:        settings,
		transport:       transport,
		logger:          logger,
		registry:        registry,
		stanzaNamespace: settings.StanzaNamespace(),
		initiator:       settings.Initiator(),
		stanzaProcessor: processor,
		elementHandlers: make(map[string]elementHandlerBinding),
	}
	s.installElementHandlers()
	transport.SetTarget(s)
	return s
}

// Initiate implements §4.5's _initiate: the initiator-side operation
// that opens the wire by transitioning output_state from null to open.
// Element handlers are already installed by New; Initiate additionally
// switches the stanza processor to its pre-auth handler set before
// sending the very first <stream:stream> head. Callers on the receiver
// side never call this: a receiver's first outgoing stream head is
// sent from StreamStart once the peer's header has been validated.
func (s *Stream) Initiate() {
	s.installPreAuthHandlers()
	s.sendStreamStart()
}

func (s *Stream) installElementHandlers() {
	mode := interfaces.RestrictionReceiver
	if s.initiator {
		mode = interfaces.RestrictionInitiator
	}
	for _, entry := range s.registry.ElementHandlerEntries() {
		if entry.Restriction != interfaces.RestrictionNone && entry.Restriction != mode {
			continue
		}
		if _, exists := s.elementHandlers[entry.QName]; exists {
			continue // first registered wins, per §4.5 handler discovery
		}
		s.elementHandlers[entry.QName] = elementHandlerBinding{restriction: entry.Restriction, fn: entry.Fn}
	}
}

// --- interfaces.StreamHandle ---

func (s *Stream) Me() interfaces.JID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.me
}

func (s *Stream) SetMe(j interfaces.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.me = j
}

func (s *Stream) Peer() interfaces.JID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

func (s *Stream) SetPeer(j interfaces.JID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = j
}

func (s *Stream) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

func (s *Stream) Initiator() bool { return s.initiator }

func (s *Stream) TLSEstablished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlsEstablished
}

func (s *Stream) SetTLSEstablished(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tlsEstablished = v
}

func (s *Stream) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Stream) PeerAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerAuthenticated
}

func (s *Stream) Logger() interfaces.Logger { return s.logger }

// Version returns the stream's negotiated protocol version.
func (s *Stream) Version() (major, minor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ver.Major, s.ver.Minor
}

// Language returns the negotiated xml:lang for this stream, and the
// raw tag the peer advertised.
func (s *Stream) Language() (negotiated, peerTag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language, s.peerLanguage
}

// Disconnect implements §4.5's disconnect(): sets output state to
// "closed" gracefully via the transport.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	s.outputState = ioClosed
	s.mu.Unlock()
	s.transport.Disconnect()
}

// Close implements §4.5's close(): forcible, clears state.
func (s *Stream) Close() {
	s.mu.Lock()
	s.inputState = ioClosed
	s.outputState = ioClosed
	s.mu.Unlock()
	s.transport.Close()
}

// RegularTasks implements §4.5's regular_tasks(): expires pending IQ
// response handlers and returns the suggested next-call delay.
func (s *Stream) RegularTasks() time.Duration {
	if s.stanzaProcessor != nil {
		s.stanzaProcessor.ExpireIQResponseHandlers()
	}
	return 60 * time.Second
}

// JID is a local alias so stream.go's field declarations read naturally;
// it is identical to interfaces.JID.
type JID = interfaces.JID
