package stream

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/maximhq/xmppstream/interfaces"
)

const compressionNS = "http://jabber.org/protocol/compress"

// CompressionHandler implements Stream Compression (XEP-0138-style):
// once negotiated, the transport's subsequent bytes are expected to be
// wrapped in a zlib stream. This handler only runs the negotiation
// handshake over <compress>/<compressed>/<failure>; swapping the
// transport's underlying reader/writer for a klauspost/compress/zlib
// pair is the transport's responsibility, signaled via onEstablished.
type CompressionHandler struct {
	// onEstablished is invoked once compression is negotiated, letting
	// the transport wrap its connection in zlib readers/writers.
	onEstablished func(stream interfaces.StreamHandle)
}

// NewCompressionHandler constructs a CompressionHandler. onEstablished
// may be nil if the transport wires compression some other way.
func NewCompressionHandler(onEstablished func(stream interfaces.StreamHandle)) *CompressionHandler {
	return &CompressionHandler{onEstablished: onEstablished}
}

func (h *CompressionHandler) Name() string { return "compression" }

// HandleStreamFeatures runs on the initiator side: request zlib
// compression if offered.
func (h *CompressionHandler) HandleStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) *interfaces.FeatureResult {
	offer := findChild(features, compressionNS, "compression")
	if offer == nil {
		return nil
	}

	supportsZlib := false
	for _, m := range offer.Children {
		if m.Name.Space == compressionNS && m.Name.Local == "method" && m.CharData == "zlib" {
			supportsZlib = true
		}
	}
	if !supportsZlib {
		return interfaces.NotHandled(h.Name(), false)
	}

	req := interfaces.NewElement(compressionNS, "compress")
	method := interfaces.NewElement(compressionNS, "method")
	method.CharData = "zlib"
	req.Children = append(req.Children, method)

	if err := stream.Send(req); err != nil {
		stream.Logger().Warn("compression request failed: " + err.Error())
		return interfaces.NotHandled(h.Name(), false)
	}

	if h.onEstablished != nil {
		h.onEstablished(stream)
	}
	stream.RestartStream()
	return interfaces.Handled(h.Name(), false)
}

// MakeStreamFeatures runs on the receiver side: advertise zlib
// compression support.
func (h *CompressionHandler) MakeStreamFeatures(stream interfaces.StreamHandle, features *interfaces.Element) {
	offer := interfaces.NewElement(compressionNS, "compression")
	method := interfaces.NewElement(compressionNS, "method")
	method.CharData = "zlib"
	offer.Children = append(offer.Children, method)
	features.Children = append(features.Children, offer)
}

// ElementHandlers installs the receiver-side <compress/> request
// handler.
func (h *CompressionHandler) ElementHandlers() []interfaces.ElementHandlerEntry {
	return []interfaces.ElementHandlerEntry{
		{
			QName:       "{" + compressionNS + "}compress",
			Restriction: interfaces.RestrictionReceiver,
			Fn:          h.handleCompressRequest,
		},
	}
}

func (h *CompressionHandler) handleCompressRequest(stream interfaces.StreamHandle, el *interfaces.Element) bool {
	method := findChild(el, compressionNS, "method")
	if method == nil || method.CharData != "zlib" {
		failure := interfaces.NewElement(compressionNS, "failure")
		failure.Children = append(failure.Children, interfaces.NewElement(compressionNS, "unsupported-method"))
		_ = stream.Send(failure)
		return true
	}

	if err := stream.Send(interfaces.NewElement(compressionNS, "compressed")); err != nil {
		stream.Logger().Warn("failed to send compressed ack: " + err.Error())
		return true
	}

	if h.onEstablished != nil {
		h.onEstablished(stream)
	}
	stream.RestartStream()
	return true
}

// newZlibWriter and newZlibReader wrap a buffer in a klauspost/compress
// zlib writer/reader. They are unexported and are not passed to
// onEstablished; within this module only the package's tests call them.
func newZlibWriter(buf *bytes.Buffer) (*zlib.Writer, error) {
	return zlib.NewWriterLevel(buf, zlib.DefaultCompression)
}

func newZlibReader(buf *bytes.Buffer) (io.ReadCloser, error) {
	return zlib.NewReader(buf)
}
