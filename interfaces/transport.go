package interfaces

// ProxyType defines the type of proxy to use for a Transport's outbound
// connections, grounded on the teacher's interfaces.ProxyConfig (consumed
// by providers/utils.go's configureProxy).
type ProxyType string

const (
	NoProxy     ProxyType = "none"
	HTTPProxy   ProxyType = "http"
	Socks5Proxy ProxyType = "socks5"
	EnvProxy    ProxyType = "environment"
)

// ProxyConfig holds proxy configuration for a Transport implementation.
type ProxyConfig struct {
	Type     ProxyType
	URL      string
	Username string
	Password string
}

// NetworkConfig carries timeout/retry tuning for a Transport
// implementation, grounded on the teacher's interfaces.NetworkConfig.
type NetworkConfig struct {
	DialTimeoutSeconds int
	MaxRetries         int
}

// Transport is the socket-I/O capability a Stream consumes (§6). Socket
// I/O itself, SASL mechanisms, and StartTLS negotiation details are
// external collaborators modeled behind this interface, not specified
// here.
type Transport interface {
	// IsConnected reports whether the underlying connection is still up.
	IsConnected() bool
	// SendStreamHead writes the opening <stream:stream> tag.
	SendStreamHead(namespace string, from, to, id *string, language string) error
	// SendElement serializes and writes a single element.
	SendElement(el *Element) error
	// Disconnect closes the stream gracefully (sends </stream:stream>
	// first where applicable).
	Disconnect()
	// Close closes the connection forcibly, without a graceful
	// </stream:stream>.
	Close()
	// SetTarget registers the given parser-event target (a Stream) as the
	// recipient of StreamStart/StreamElement/StreamEnd/StreamEOF/
	// StreamParseError callbacks.
	SetTarget(target ParserTarget)
}

// ParserTarget is the parser/handler interface a Stream implements and a
// Transport's XML parser drives (§6).
type ParserTarget interface {
	StreamStart(root *Element)
	StreamEnd()
	StreamEOF()
	StreamElement(el *Element)
	StreamParseError(description string)
}
