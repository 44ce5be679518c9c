package stream

import (
	"github.com/maximhq/xmppstream/interfaces"
)

const starttlsNS = "urn:ietf:params:xml:ns:xmpp-tls"

// CertVerifier is the external TLS certificate verification
// collaborator (§1 "TLS certificate parsing (cert)"): given a peer
// connection identity, it returns a validated identity or a rejection.
// Not specified beyond this call site.
type CertVerifier interface {
	Verify(peer interfaces.JID) (interfaces.JID, error)
}

// StartTLSHandler negotiates StartTLS (RFC 6120 §5). Grounded on
// providers/anthropic.go's shape: one feature, one request/response
// pair, delegating the actual cryptographic work to an external
// collaborator rather than reimplementing it.
type StartTLSHandler struct {
	verifier CertVerifier
	required bool
}

// NewStartTLSHandler constructs a StartTLSHandler. When required is
// true, MakeStreamFeatures advertises <required/> under <starttls/>.
func NewStartTLSHandler(verifier CertVerifier, required bool) *StartTLSHandler {
	return &StartTLSHandler{verifier: verifier, required: required}
}

func (h *StartTLSHandler) Name() string { return "starttls" }

// HandleStreamFeatures runs on the initiator side: if the peer
// advertised <starttls/>, request it and, on success, mark TLS
// established and trigger a stream restart.
func (h *StartTLSHandler) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	offer := findChild(features, starttlsNS, "starttls")
	if offer == nil {
		return nil
	}

	mandatory := findChild(offer, starttlsNS, "required") != nil

	if err := stream.Send(interfaces.NewElement(starttlsNS, "starttls")); err != nil {
		stream.Logger().Warn("starttls request failed: " + err.Error())
		return interfaces.NotHandled(h.Name(), mandatory)
	}

	identity, err := h.verifier.Verify(stream.Peer())
	if err != nil {
		stream.Logger().Warn("starttls certificate verification failed: " + err.Error())
		return interfaces.NotHandled(h.Name(), mandatory)
	}

	stream.SetPeer(identity)
	stream.SetTLSEstablished(true)
	stream.RestartStream()
	return interfaces.Handled(h.Name(), mandatory)
}

// MakeStreamFeatures runs on the receiver side: advertise <starttls/>,
// omitted once TLS is already established.
func (h *StartTLSHandler) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
	if stream.TLSEstablished() {
		return
	}
	offer := interfaces.NewElement(starttlsNS, "starttls")
	if h.required {
		offer.Children = append(offer.Children, interfaces.NewElement(starttlsNS, "required"))
	}
	features.Children = append(features.Children, offer)
}

// ElementHandlers installs the receiver-side <starttls/> request
// handler.
func (h *StartTLSHandler) ElementHandlers() []interfaces.ElementHandlerEntry {
	return []interfaces.ElementHandlerEntry{
		{
			QName:       "{" + starttlsNS + "}starttls",
			Restriction: interfaces.RestrictionReceiver,
			Fn:          h.handleStartTLSRequest,
		},
	}
}

func (h *StartTLSHandler) handleStartTLSRequest(stream interfaces.StreamHandle, el *interfaces.Element) bool {
	identity, err := h.verifier.Verify(stream.Peer())
	if err != nil {
		stream.Logger().Warn("starttls certificate verification failed: " + err.Error())
		_ = stream.Send(interfaces.NewElement(starttlsNS, "failure"))
		return true
	}

	if err := stream.Send(interfaces.NewElement(starttlsNS, "proceed")); err != nil {
		stream.Logger().Warn("failed to send starttls proceed: " + err.Error())
		return true
	}

	stream.SetPeer(identity)
	stream.SetTLSEstablished(true)
	stream.RestartStream()
	return true
}

// findChild locates the first direct child with the given namespace
// and local name, or nil.
func findChild(el *interfaces.Element, namespace, local string) *interfaces.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.Children {
		if c.Name.Space == namespace && c.Name.Local == local {
			return c
		}
	}
	return nil
}
