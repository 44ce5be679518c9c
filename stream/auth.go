package stream

import "github.com/maximhq/xmppstream/interfaces"

// SetAuthenticated implements interfaces.StreamHandle.SetAuthenticated
// and §4.5's set_authenticated: records this side's authenticated JID
// under lock, restarts the stream if requested, installs the post-auth
// stanza handler set, and emits AuthenticatedEvent.
func (s *Stream) SetAuthenticated(me interfaces.JID, authMethod string, restart bool) {
	s.mu.Lock()
	s.me = me
	s.authenticated = true
	s.authMethodUsed = authMethod
	s.mu.Unlock()

	if restart {
		s.RestartStream()
	}
	s.installPostAuthHandlers()

	if queue := s.settings.EventQueue(); queue != nil {
		queue.Put(interfaces.AuthenticatedEvent{JID: me, PeerSide: false, AuthMethod: authMethod})
	}
}

// SetPeerAuthenticated implements
// interfaces.StreamHandle.SetPeerAuthenticated and §4.5's
// set_peer_authenticated: the receiver-side counterpart of
// SetAuthenticated.
func (s *Stream) SetPeerAuthenticated(peer interfaces.JID, authMethod string, restart bool) {
	s.mu.Lock()
	s.peer = peer
	s.peerAuthenticated = true
	s.authMethodUsed = authMethod
	s.mu.Unlock()

	if restart {
		s.RestartStream()
	}
	s.installPostAuthHandlers()

	if queue := s.settings.EventQueue(); queue != nil {
		queue.Put(interfaces.AuthenticatedEvent{JID: peer, PeerSide: true, AuthMethod: authMethod})
	}
}

// installPostAuthHandlers notifies the stanza processor collaborator
// to switch from pre-auth to post-auth stanza handling (§6 "Stanza
// processor hooks").
func (s *Stream) installPostAuthHandlers() {
	if s.stanzaProcessor == nil {
		return
	}
	s.stanzaProcessor.SetupStanzaHandlers(nil, "post-auth")
}

// installPreAuthHandlers notifies the stanza processor collaborator to
// install the pre-auth stanza handler set, the counterpart of
// installPostAuthHandlers used by Initiate before the very first stream
// head goes out.
func (s *Stream) installPreAuthHandlers() {
	if s.stanzaProcessor == nil {
		return
	}
	s.stanzaProcessor.SetupStanzaHandlers(nil, "pre-auth")
}
