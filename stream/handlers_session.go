package stream

import "github.com/maximhq/xmppstream/interfaces"

const sessionNS = "urn:ietf:params:xml:ns:xmpp-session"

// SessionEstablisher carries out the legacy RFC 3921 session
// establishment IQ round trip some deployments still advertise and
// some clients still require before sending stanzas.
type SessionEstablisher interface {
	EstablishSession(stream interfaces.StreamHandle) error
}

// SessionHandler implements legacy session establishment. Unlike Bind,
// deployments vary on whether this is mandatory; MakeStreamFeatures
// lets the caller decide via the mandatory flag.
type SessionHandler struct {
	establisher SessionEstablisher
	mandatory   bool
}

// NewSessionHandler constructs a SessionHandler. mandatory controls
// whether the advertised <session/> carries <optional/> and whether an
// unhandled offer is treated as a fatal unsupported-feature.
func NewSessionHandler(establisher SessionEstablisher, mandatory bool) *SessionHandler {
	return &SessionHandler{establisher: establisher, mandatory: mandatory}
}

func (h *SessionHandler) Name() string { return "session" }

// HandleStreamFeatures runs on the initiator side: if session is
// offered, establish it.
func (h *SessionHandler) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	offer := findChild(features, sessionNS, "session")
	if offer == nil {
		return nil
	}
	mandatory := h.mandatory && findChild(offer, sessionNS, "optional") == nil

	if err := h.establisher.EstablishSession(stream); err != nil {
		stream.Logger().Warn("session establishment failed: " + err.Error())
		return interfaces.NotHandled(h.Name(), mandatory)
	}
	return interfaces.Handled(h.Name(), mandatory)
}

// MakeStreamFeatures runs on the receiver side: advertise <session/>,
// with <optional/> when not mandatory.
func (h *SessionHandler) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
	offer := interfaces.NewElement(sessionNS, "session")
	if !h.mandatory {
		offer.Children = append(offer.Children, interfaces.NewElement(sessionNS, "optional"))
	}
	features.Children = append(features.Children, offer)
}

// ElementHandlers is empty: the session IQ itself travels as a
// stanza-namespace element via the stanza processor.
func (h *SessionHandler) ElementHandlers() []interfaces.ElementHandlerEntry {
	return nil
}
