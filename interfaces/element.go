package interfaces

import "encoding/xml"

// Element is the minimal parsed-XML node the stream dispatch layer
// operates on. Full XML parsing/serialization is out of scope (§1) and is
// the job of an external parser; Element is the pass-through data type
// that parser hands to Stream.StreamElement, built on encoding/xml.Name
// for qualified-name representation since no domain-specific XML library
// is warranted for a plain tree node (see DESIGN.md).
type Element struct {
	Name     xml.Name
	Attr     map[string]string
	Children []*Element
	CharData string
}

// QName returns the "{namespace}local" qualified name used as the key
// into element_handlers, matching how Stream resolves dispatch.
func (e *Element) QName() string {
	if e == nil {
		return ""
	}
	if e.Name.Space == "" {
		return e.Name.Local
	}
	return "{" + e.Name.Space + "}" + e.Name.Local
}

// Attribute looks up an unprefixed attribute by local name.
func (e *Element) Attribute(name string) (string, bool) {
	if e == nil || e.Attr == nil {
		return "", false
	}
	v, ok := e.Attr[name]
	return v, ok
}

// NewElement constructs an Element with the given namespace and local
// name.
func NewElement(namespace, local string) *Element {
	return &Element{Name: xml.Name{Space: namespace, Local: local}, Attr: map[string]string{}}
}

// Stanza is a top-level XMPP stanza (message/presence/iq) constructed by
// the external stanza factory (§1) from an Element whose namespace
// matches the stream's stanza_namespace.
type Stanza interface {
	// Element returns the underlying wire representation.
	Element() *Element
	// Kind returns "message", "presence", or "iq".
	Kind() string
}

// StanzaProcessor is the inherited processor hook set a Stream delegates
// stanza-shaped work to (§6 "Stanza processor hooks").
type StanzaProcessor interface {
	// SetupStanzaHandlers installs handlers for the given lifecycle phase.
	SetupStanzaHandlers(handlers map[string]func(Stanza), phase string)
	// ProcessStanza handles a fully constructed stanza.
	ProcessStanza(stanza Stanza)
	// FixOutStanza mutates an outgoing stanza before serialization (e.g.
	// filling in a missing `from`).
	FixOutStanza(stanza Stanza)
	// ExpireIQResponseHandlers expires pending IQ response handlers whose
	// deadline has passed; called from Stream.RegularTasks.
	ExpireIQResponseHandlers()
}
