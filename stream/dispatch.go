package stream

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/maximhq/xmppstream/interfaces"
	"github.com/maximhq/xmppstream/internal/ptrutil"
)

// streamErrorsNS is the RFC 6120 §4.9.3 defined-condition namespace for
// <stream:error/> children.
const streamErrorsNS = "urn:ietf:params:xml:ns:xmpp-streams"

// StreamStart implements interfaces.ParserTarget.StreamStart and §4.5's
// stream_start(element): header validation, version/language
// negotiation, initiator/receiver-specific handling, and the
// connected/restarted event.
func (s *Stream) StreamStart(root *interfaces.Element) {
	if root.Name.Space != s.settings.StreamsNamespace() {
		s.raiseStreamError("invalid-namespace", "", true)
		return
	}
	if root.Name.Local != s.settings.CanonicalStreamRootLocal() {
		s.raiseStreamError("bad-format", "", true)
		return
	}

	ver := defaultVersion
	if raw, ok := root.Attribute("version"); ok {
		parsed, valid := parseVersion(raw)
		if !valid {
			s.raiseStreamError("unsupported-version", raw, true)
			return
		}
		ver = parsed
	}

	peerLang, _ := root.Attribute("xml:lang")
	negotiated := ""
	if !s.initiator {
		if match, ok := negotiateLanguage(peerLang, s.settings.SupportedLanguages()); ok {
			negotiated = match
		}
	}

	s.mu.Lock()
	s.ver = ver
	s.peerLanguage = peerLang
	if negotiated != "" {
		s.language = negotiated
	}
	wasRestart := s.inputState == ioRestart
	s.mu.Unlock()

	if s.initiator {
		if id, ok := root.Attribute("id"); ok {
			s.mu.Lock()
			s.streamID = id
			s.mu.Unlock()
		}
		if from, ok := root.Attribute("from"); ok {
			expected, hasExpected := s.settings.ExpectedPeer()
			peerJID := interfaces.JID{Domain: from}
			if hasExpected && !expected.Equal(peerJID) {
				s.logger.Warn("stream peer mismatch: expected " + expected.String() + ", got " + from)
			}
			s.SetPeer(peerJID)
		}
	} else {
		to, _ := root.Attribute("to")
		if to != "" {
			normalized, err := normalizeDomain(to)
			if err != nil {
				s.raiseStreamError("host-unknown", to, true)
				return
			}
			to = normalized
		}
		me, err := s.settings.CheckTo(to)
		if err != nil {
			s.raiseStreamError("host-unknown", to, true)
			return
		}
		s.SetMe(me)

		s.mu.Lock()
		s.streamID = uuid.NewString()
		s.mu.Unlock()

		s.sendStreamStart()
		s.sendInitialFeatures()
	}

	s.mu.Lock()
	s.inputState = ioOpen
	s.mu.Unlock()

	queue := s.settings.EventQueue()
	if queue != nil {
		if wasRestart {
			queue.Put(interfaces.StreamRestartedEvent{StreamID: s.StreamID()})
		} else {
			queue.Put(interfaces.StreamConnectedEvent{StreamID: s.StreamID()})
		}
	}
}

// StreamEnd implements interfaces.ParserTarget.StreamEnd: input closes
// and the transport is forced to disconnect, per §4.5.
func (s *Stream) StreamEnd() {
	s.mu.Lock()
	s.inputState = ioClosed
	s.outputState = ioClosed
	s.mu.Unlock()
	s.transport.Disconnect()
}

// StreamEOF implements interfaces.ParserTarget.StreamEOF: identical
// closing behavior to StreamEnd, triggered by transport-level EOF
// rather than a well-formed </stream:stream>.
func (s *Stream) StreamEOF() {
	s.StreamEnd()
}

// StreamParseError implements interfaces.ParserTarget.StreamParseError:
// an XML well-formedness failure always corresponds to not-well-formed
// and is fatal (§7).
func (s *Stream) StreamParseError(description string) {
	s.logger.Error(fmt.Errorf("stream parse error: %s", description))
	s.raiseStreamError("not-well-formed", description, true)
}

// StreamElement implements interfaces.ParserTarget.StreamElement and is
// the entry point for §4.5's _process_element dispatch.
func (s *Stream) StreamElement(el *interfaces.Element) {
	s.processElement(el)
}

func (s *Stream) processElement(el *interfaces.Element) {
	qname := el.QName()

	s.mu.Lock()
	binding, ok := s.elementHandlers[qname]
	s.mu.Unlock()
	if ok {
		if binding.fn(s, el) {
			return
		}
	}

	switch {
	case el.Name.Space == s.stanzaNamespace:
		if s.stanzaFactory == nil {
			s.logger.Warn("no stanza factory configured, dropping stanza element " + qname)
			return
		}
		stanza, err := s.stanzaFactory(el)
		if err != nil {
			s.logger.Warn("failed to construct stanza from " + qname + ": " + err.Error())
			return
		}
		if s.stanzaProcessor != nil {
			s.stanzaProcessor.ProcessStanza(stanza)
		}
	case qname == "{"+s.settings.StreamsNamespace()+"}error":
		s.processStreamError(el)
	case qname == "{"+s.settings.StreamsNamespace()+"}features":
		s.mu.Lock()
		s.features = el
		s.mu.Unlock()
		s.gotFeatures(el)
	default:
		s.logger.Debug("dropping unrecognized element " + qname)
	}
}

// processStreamError implements §4.5's default process_stream_error
// handling: log the peer-sent error.
func (s *Stream) processStreamError(el *interfaces.Element) {
	condition := "unknown"
	for _, child := range el.Children {
		if child.Name.Space == streamErrorsNS {
			condition = child.Name.Local
			break
		}
	}
	s.logger.Error(fmt.Errorf("peer sent stream error: %s", condition))
}

// gotFeatures implements §4.5's _got_features (initiator only): fire
// GotFeaturesEvent; if the event queue doesn't claim it, run the
// stream_feature_handlers pass.
func (s *Stream) gotFeatures(features *interfaces.Element) {
	queue := s.settings.EventQueue()
	if queue != nil && queue.Put(interfaces.GotFeaturesEvent{Features: features}) {
		return
	}

	var mandatoryHandled, mandatoryNotHandled bool

	for _, handler := range s.registry.Handlers() {
		result := handler.HandleStreamFeatures(s, features)
		if result == nil {
			continue
		}
		if result.Handled {
			mandatoryHandled = mandatoryHandled || result.Mandatory
			break
		}
		if result.Mandatory {
			mandatoryNotHandled = true
			break
		}
	}

	if mandatoryNotHandled && !mandatoryHandled {
		s.raiseStreamError("unsupported-feature", "", true)
	}
}

// Send implements interfaces.StreamHandle.Send: hand a raw element to
// the transport, refusing once output_state is "closed" (§4.5 "Sending
// a stanza").
func (s *Stream) Send(el *interfaces.Element) error {
	s.mu.Lock()
	closed := s.outputState == ioClosed
	s.mu.Unlock()
	if closed {
		return &interfaces.ConfigurationError{Reason: "stream output is closed"}
	}
	return s.transport.SendElement(el)
}

// SendStanza applies the inherited fix_out_stanza processor hook before
// serializing and handing the stanza to the transport (§4.5 "Sending a
// stanza").
func (s *Stream) SendStanza(stanza interfaces.Stanza) error {
	if s.stanzaProcessor != nil {
		s.stanzaProcessor.FixOutStanza(stanza)
	}
	return s.Send(stanza.Element())
}

// sendStreamStart implements §4.5's _send_stream_start: refuse if
// already open or closed (value comparison against the typed ioState
// constant, not string identity — §9's _send_stream_start fix); choose
// to/from per the documented rules; commit output_state = open.
func (s *Stream) sendStreamStart() {
	s.mu.Lock()
	if s.outputState == ioOpen || s.outputState == ioClosed {
		s.mu.Unlock()
		return
	}

	var to, from *string
	if s.initiator {
		if peer, ok := s.settings.ExpectedPeer(); ok {
			to = ptrutil.String(peer.String())
		}
	}
	if s.tlsEstablished || !s.initiator {
		from = ptrutil.String(s.me.String())
	}
	id := s.streamID
	lang := s.language
	s.outputState = ioOpen
	s.mu.Unlock()

	var idPtr *string
	if id != "" {
		idPtr = ptrutil.String(id)
	}
	_ = s.transport.SendStreamHead(s.settings.StreamsNamespace(), from, to, idPtr, lang)
}

// sendInitialFeatures builds and sends the receiver-side initial
// <stream:features/> element by asking every registered feature
// handler to contribute via MakeStreamFeatures.
func (s *Stream) sendInitialFeatures() {
	features := interfaces.NewElement(s.settings.StreamsNamespace(), "features")
	for _, handler := range s.registry.Handlers() {
		handler.MakeStreamFeatures(s, features)
	}
	_ = s.Send(features)
}

// RestartStream implements §4.5's _restart_stream: set both states to
// "restart", clear features, and (initiator only) emit a fresh stream
// head reusing the existing stream_id.
func (s *Stream) RestartStream() {
	s.mu.Lock()
	s.inputState = ioRestart
	s.outputState = ioRestart
	s.features = nil
	s.mu.Unlock()

	if s.initiator {
		s.sendStreamStart()
	}
}

// raiseStreamError sends a <stream:error/> element to the peer (§7
// "stream errors are always sent to the peer before the Go error is
// returned") and, if fatal, aborts the stream. Mirrors
// _send_stream_error: if output_state is still null or restart, the
// stream head goes out first so the error element always has an
// enclosing <stream:stream> (§8 "no element is sent before the stream
// head").
func (s *Stream) raiseStreamError(condition, text string, fatal bool) {
	s.mu.Lock()
	needsStart := s.outputState == ioNull || s.outputState == ioRestart
	s.mu.Unlock()
	if needsStart {
		s.sendStreamStart()
	}

	errEl := interfaces.NewElement(s.settings.StreamsNamespace(), "error")
	condEl := interfaces.NewElement(streamErrorsNS, condition)
	errEl.Children = append(errEl.Children, condEl)
	if text != "" {
		textEl := interfaces.NewElement(streamErrorsNS, "text")
		textEl.CharData = text
		errEl.Children = append(errEl.Children, textEl)
	}

	if err := s.transport.SendElement(errEl); err != nil {
		s.logger.Error(fmt.Errorf("failed to send stream error %s: %w", condition, err))
	}

	if fatal {
		s.logger.Error(fmt.Errorf("fatal stream error: %s", condition))
		s.Disconnect()
	}
}
