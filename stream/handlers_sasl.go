package stream

import "github.com/maximhq/xmppstream/interfaces"

const saslNS = "urn:ietf:params:xml:ns:xmpp-sasl"

// SASLMechanism is the external SASL mechanism-execution collaborator
// (§1 "SASL mechanisms ... modeled as abstract interfaces"): it drives
// its own challenge/response exchange over the stream and returns the
// authenticated identity.
type SASLMechanism interface {
	Name() string
	Authenticate(stream interfaces.StreamHandle) (interfaces.JID, error)
}

// SASLHandler negotiates SASL authentication (RFC 6120 §6). Mandatory
// by construction: an unauthenticated stream has nothing else useful to
// offer.
type SASLHandler struct {
	mechanisms []SASLMechanism
}

// NewSASLHandler constructs a SASLHandler offering/accepting the given
// mechanisms, most preferred first.
func NewSASLHandler(mechanisms ...SASLMechanism) *SASLHandler {
	return &SASLHandler{mechanisms: mechanisms}
}

func (h *SASLHandler) Name() string { return "sasl" }

// HandleStreamFeatures runs on the initiator side: pick the first
// locally supported mechanism the peer also offers and run it.
func (h *SASLHandler) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	offer := findChild(features, saslNS, "mechanisms")
	if offer == nil {
		return nil
	}

	offered := make(map[string]bool)
	for _, m := range offer.Children {
		if m.Name.Space == saslNS && m.Name.Local == "mechanism" {
			offered[m.CharData] = true
		}
	}

	for _, mech := range h.mechanisms {
		if !offered[mech.Name()] {
			continue
		}
		me, err := mech.Authenticate(stream)
		if err != nil {
			stream.Logger().Warn("sasl mechanism " + mech.Name() + " failed: " + err.Error())
			return interfaces.NotHandled(h.Name(), true)
		}
		stream.SetAuthenticated(me, mech.Name(), true)
		return interfaces.Handled(h.Name(), true)
	}

	return interfaces.NotHandled(h.Name(), true)
}

// MakeStreamFeatures runs on the receiver side: advertise the
// configured mechanisms, unless the peer has already authenticated on
// this stream (no further SASL needed once authenticated).
func (h *SASLHandler) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
	if stream.PeerAuthenticated() {
		return
	}
	offer := interfaces.NewElement(saslNS, "mechanisms")
	for _, mech := range h.mechanisms {
		m := interfaces.NewElement(saslNS, "mechanism")
		m.CharData = mech.Name()
		offer.Children = append(offer.Children, m)
	}
	features.Children = append(features.Children, offer)
}

// ElementHandlers installs the receiver-side <auth/> handler that
// dispatches to the matching mechanism.
func (h *SASLHandler) ElementHandlers() []interfaces.ElementHandlerEntry {
	return []interfaces.ElementHandlerEntry{
		{
			QName:       "{" + saslNS + "}auth",
			Restriction: interfaces.RestrictionReceiver,
			Fn:          h.handleAuthRequest,
		},
	}
}

func (h *SASLHandler) handleAuthRequest(stream interfaces.StreamHandle, el *interfaces.Element) bool {
	requested, _ := el.Attribute("mechanism")
	for _, mech := range h.mechanisms {
		if mech.Name() != requested {
			continue
		}
		peer, err := mech.Authenticate(stream)
		if err != nil {
			stream.Logger().Warn("sasl mechanism " + mech.Name() + " failed: " + err.Error())
			_ = stream.Send(interfaces.NewElement(saslNS, "failure"))
			return true
		}
		stream.SetPeerAuthenticated(peer, mech.Name(), true)
		return true
	}
	_ = stream.Send(interfaces.NewElement(saslNS, "failure"))
	return true
}
