package stream

import "github.com/maximhq/xmppstream/interfaces"

const bindNS = "urn:ietf:params:xml:ns:xmpp-bind"

// ResourceBinder resolves a desired resource (possibly empty, meaning
// "server-assigned") into the final bound JID. The actual <iq
// type='set'><bind/></iq> round trip is carried out through the
// external stanza processor (§6 "Stanza processor hooks"); this
// handler is only responsible for feature advertisement and recording
// the result.
type ResourceBinder interface {
	Bind(stream interfaces.StreamHandle, requestedResource string) (interfaces.JID, error)
}

// BindHandler implements resource binding (RFC 6120 §7): mandatory,
// receiver-only advertisement, initiator-only negotiation.
type BindHandler struct {
	binder ResourceBinder
}

// NewBindHandler constructs a BindHandler delegating the bind exchange
// to the given ResourceBinder.
func NewBindHandler(binder ResourceBinder) *BindHandler {
	return &BindHandler{binder: binder}
}

func (h *BindHandler) Name() string { return "bind" }

// HandleStreamFeatures runs on the initiator side only: if bind is
// offered, request it (resource left to the binder/server to choose)
// and record the bound JID.
func (h *BindHandler) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	if !stream.Initiator() {
		return nil
	}
	if findChild(features, bindNS, "bind") == nil {
		return nil
	}

	bound, err := h.binder.Bind(stream, "")
	if err != nil {
		stream.Logger().Warn("resource bind failed: " + err.Error())
		return interfaces.NotHandled(h.Name(), true)
	}

	stream.SetMe(bound)
	return interfaces.Handled(h.Name(), true)
}

// MakeStreamFeatures runs on the receiver side only: advertise
// <bind/>, mandatory.
func (h *BindHandler) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
	if stream.Initiator() {
		return
	}
	features.Children = append(features.Children, interfaces.NewElement(bindNS, "bind"))
}

// ElementHandlers is empty: the bind request/response itself travels
// as a stanza-namespace IQ, routed through the stanza processor rather
// than stream-level element_handlers.
func (h *BindHandler) ElementHandlers() []interfaces.ElementHandlerEntry {
	return nil
}
