package stream

import (
	"encoding/xml"
	"testing"

	"github.com/maximhq/xmppstream/interfaces"
)

type fakeTransport struct {
	connected     bool
	sentElements  []*interfaces.Element
	sentHeads     int
	lastHeadID    *string
	disconnected  bool
	closed        bool
	target        interfaces.ParserTarget
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) SendStreamHead(namespace string, from, to, id *string, language string) error {
	f.sentHeads++
	f.lastHeadID = id
	return nil
}

func (f *fakeTransport) SendElement(el *interfaces.Element) error {
	f.sentElements = append(f.sentElements, el)
	return nil
}

func (f *fakeTransport) Disconnect() { f.disconnected = true }
func (f *fakeTransport) Close()      { f.closed = true }

func (f *fakeTransport) SetTarget(target interfaces.ParserTarget) { f.target = target }

type fakeEventQueue struct {
	events  []interfaces.Event
	claimed bool
}

func (q *fakeEventQueue) Put(event interfaces.Event) bool {
	q.events = append(q.events, event)
	return q.claimed
}

type fakeSettings struct {
	stanzaNS    string
	streamsNS   string
	rootLocal   string
	languages   []string
	expected    interfaces.JID
	hasExpected bool
	initiator   bool
	queue       *fakeEventQueue
	checkToErr  error
	checkToJID  interfaces.JID
	lastCheckTo string
}

func (s *fakeSettings) StanzaNamespace() string            { return s.stanzaNS }
func (s *fakeSettings) StreamsNamespace() string            { return s.streamsNS }
func (s *fakeSettings) CanonicalStreamRootLocal() string    { return s.rootLocal }
func (s *fakeSettings) SupportedLanguages() []string        { return s.languages }
func (s *fakeSettings) ExpectedPeer() (interfaces.JID, bool) { return s.expected, s.hasExpected }
func (s *fakeSettings) Initiator() bool                     { return s.initiator }
func (s *fakeSettings) EventQueue() interfaces.EventQueue    { return s.queue }
func (s *fakeSettings) CheckTo(to string) (interfaces.JID, error) {
	s.lastCheckTo = to
	if s.checkToErr != nil {
		return interfaces.JID{}, s.checkToErr
	}
	return s.checkToJID, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(error)  {}

func newTestStream(initiator bool) (*Stream, *fakeTransport, *fakeSettings) {
	transport := &fakeTransport{}
	settings := &fakeSettings{
		stanzaNS:  "jabber:client",
		streamsNS: "http://etherx.jabber.org/streams",
		rootLocal: "stream",
		languages: []string{"en", "fr"},
		initiator: initiator,
		queue:     &fakeEventQueue{},
		checkToJID: interfaces.JID{Domain: "example.com"},
	}
	s := New(settings, transport, NewRegistry(), nil, nopLogger{})
	return s, transport, settings
}

func TestStreamVersionFallbackDefaultsTo09(t *testing.T) {
	s, _, settings := newTestStream(true)

	root := &interfaces.Element{
		Name: xml.Name{Space: settings.StreamsNamespace(), Local: settings.CanonicalStreamRootLocal()},
		Attr: map[string]string{"from": "example.com"},
	}
	s.StreamStart(root)

	major, minor := s.Version()
	if major != 0 || minor != 9 {
		t.Fatalf("expected fallback version (0,9), got (%d,%d)", major, minor)
	}
	if len(settings.queue.events) != 1 {
		t.Fatalf("expected one StreamConnectedEvent, got %d", len(settings.queue.events))
	}
	if _, ok := settings.queue.events[0].(interfaces.StreamConnectedEvent); !ok {
		t.Fatalf("expected StreamConnectedEvent, got %T", settings.queue.events[0])
	}
}

func TestStreamUnsupportedVersionRaisesFatalError(t *testing.T) {
	s, transport, settings := newTestStream(true)

	root := &interfaces.Element{
		Name: xml.Name{Space: settings.StreamsNamespace(), Local: settings.CanonicalStreamRootLocal()},
		Attr: map[string]string{"version": "2.0", "from": "example.com"},
	}
	s.StreamStart(root)

	if len(transport.sentElements) != 1 {
		t.Fatalf("expected one stream error element sent, got %d", len(transport.sentElements))
	}
	errEl := transport.sentElements[0]
	if errEl.Name.Local != "error" || len(errEl.Children) == 0 || errEl.Children[0].Name.Local != "unsupported-version" {
		t.Fatalf("expected unsupported-version stream error, got %+v", errEl)
	}
	if !transport.disconnected {
		t.Fatal("expected fatal error to abort the stream")
	}
}

func TestMandatoryFeatureUnsupportedRaisesFatalError(t *testing.T) {
	s, transport, settings := newTestStream(true)
	settings.queue.claimed = false

	s.registry.Register(&alwaysNotHandledMandatory{})

	features := interfaces.NewElement(settings.StreamsNamespace(), "features")
	s.gotFeatures(features)

	if len(transport.sentElements) != 1 {
		t.Fatalf("expected one stream error element sent, got %d", len(transport.sentElements))
	}
	errEl := transport.sentElements[0]
	if len(errEl.Children) == 0 || errEl.Children[0].Name.Local != "unsupported-feature" {
		t.Fatalf("expected unsupported-feature stream error, got %+v", errEl)
	}
}

func TestRestartStreamReusesStreamID(t *testing.T) {
	s, transport, _ := newTestStream(true)

	s.mu.Lock()
	s.streamID = "abc123"
	s.outputState = ioOpen
	s.mu.Unlock()

	s.RestartStream()

	if transport.sentHeads != 1 {
		t.Fatalf("expected a fresh stream head on restart, got %d sends", transport.sentHeads)
	}
	if transport.lastHeadID == nil || *transport.lastHeadID != "abc123" {
		t.Fatalf("expected restart to reuse stream_id abc123, got %v", transport.lastHeadID)
	}
}

func TestInitiateSendsFirstStreamHead(t *testing.T) {
	s, transport, _ := newTestStream(true)

	s.Initiate()

	if transport.sentHeads != 1 {
		t.Fatalf("expected Initiate to send exactly one stream head, got %d", transport.sentHeads)
	}
	if len(transport.sentElements) != 0 {
		t.Fatalf("expected no elements sent before the stream head, got %d", len(transport.sentElements))
	}
	s.mu.Lock()
	state := s.outputState
	s.mu.Unlock()
	if state != ioOpen {
		t.Fatalf("expected output_state open after Initiate, got %v", state)
	}
}

func TestRaiseStreamErrorSendsStreamHeadFirstWhenOutputNull(t *testing.T) {
	s, transport, settings := newTestStream(false)

	root := &interfaces.Element{
		Name: xml.Name{Space: "wrong-namespace", Local: settings.CanonicalStreamRootLocal()},
	}
	s.StreamStart(root)

	if transport.sentHeads != 1 {
		t.Fatalf("expected the stream head to be sent before the stream error, got %d head sends", transport.sentHeads)
	}
	if len(transport.sentElements) != 1 || transport.sentElements[0].Name.Local != "error" {
		t.Fatalf("expected one stream error element, got %+v", transport.sentElements)
	}
}

func TestStreamStartNormalizesToAttributeViaIDNA(t *testing.T) {
	s, _, settings := newTestStream(false)

	root := &interfaces.Element{
		Name: xml.Name{Space: settings.StreamsNamespace(), Local: settings.CanonicalStreamRootLocal()},
		Attr: map[string]string{"to": "EXAMPLE.com"},
	}
	s.StreamStart(root)

	if settings.lastCheckTo != "example.com" {
		t.Fatalf("expected CheckTo to receive the idna-normalized domain, got %q", settings.lastCheckTo)
	}
}

// alwaysNotHandledMandatory is a test-only feature handler that always
// reports its feature as mandatory and unhandled.
type alwaysNotHandledMandatory struct{}

func (h *alwaysNotHandledMandatory) Name() string { return "test-mandatory" }
func (h *alwaysNotHandledMandatory) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	return interfaces.NotHandled(h.Name(), true)
}
func (h *alwaysNotHandledMandatory) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
}
func (h *alwaysNotHandledMandatory) ElementHandlers() []interfaces.ElementHandlerEntry { return nil }
