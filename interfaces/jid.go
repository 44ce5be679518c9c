package interfaces

import "strings"

// JID is an XMPP address of the form local@domain/resource, with the
// local and resource parts optional. Parsing untrusted strings into a JID
// (stringprep/nodeprep normalization, length limits) is explicitly out of
// scope for this module (§1) and is expected to live in an external JID
// library; JID here is a plain value type for already-validated parts,
// constructed via NewJID or assembled field by field by the caller.
type JID struct {
	Local    string
	Domain   string
	Resource string
}

// NewJID builds a JID from already-validated parts. Domain must be
// non-empty; Local and Resource may be empty.
func NewJID(local, domain, resource string) (JID, error) {
	if domain == "" {
		return JID{}, &JIDError{Input: local + "@" + domain + "/" + resource, Reason: "domain part is required"}
	}
	return JID{Local: local, Domain: domain, Resource: resource}, nil
}

// Bare returns the bare JID (local@domain, or just domain), dropping any
// resource part.
func (j JID) Bare() JID {
	j.Resource = ""
	return j
}

// Equal reports whether two JIDs refer to the same address, comparing
// parts verbatim (no case-folding or stringprep — that normalization is
// the job of the external JID collaborator before values reach here).
func (j JID) Equal(other JID) bool {
	return j.Local == other.Local && j.Domain == other.Domain && j.Resource == other.Resource
}

// IsZero reports whether this is the zero-value JID (no domain).
func (j JID) IsZero() bool {
	return j.Domain == ""
}

// String renders the JID in local@domain/resource form, omitting absent
// parts.
func (j JID) String() string {
	var b strings.Builder
	if j.Local != "" {
		b.WriteString(j.Local)
		b.WriteByte('@')
	}
	b.WriteString(j.Domain)
	if j.Resource != "" {
		b.WriteByte('/')
		b.WriteString(j.Resource)
	}
	return b.String()
}
