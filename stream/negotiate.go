package stream

import (
	"strconv"
	"strings"

	"github.com/maximhq/xmppstream/interfaces"
	"golang.org/x/net/idna"
	"golang.org/x/text/language"
)

// defaultVersion is the version assumed when a peer omits the
// `version` attribute (§4.5 step 3).
var defaultVersion = version{Major: 0, Minor: 9}

// parseVersion parses a stream header's optional version attribute as
// "major.minor". Accepts major=1 (any minor) or the legacy major=0,
// minor=9. Any other value, or a malformed string, is reported as
// unsupported so the caller can raise unsupported-version (§4.5 step 3).
func parseVersion(raw string) (version, bool) {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return version{}, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return version{}, false
	}
	if major == 1 {
		return version{Major: major, Minor: minor}, true
	}
	if major == 0 && minor == 9 {
		return version{Major: major, Minor: minor}, true
	}
	return version{}, false
}

// negotiateLanguage resolves a peer-offered xml:lang tag against the
// configured supported languages using BCP-47 best-match negotiation
// (golang.org/x/text/language), replacing the source's
// subtag-stripping regex loop that the spec documents as potentially
// non-terminating (§4.5 step 4, §9).
func negotiateLanguage(tag string, supported []string) (string, bool) {
	if tag == "" || len(supported) == 0 {
		return "", false
	}

	want, err := language.Parse(tag)
	if err != nil {
		return "", false
	}

	tags := make([]language.Tag, 0, len(supported))
	valid := make([]string, 0, len(supported))
	for _, s := range supported {
		t, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, t)
		valid = append(valid, s)
	}
	if len(tags) == 0 {
		return "", false
	}

	matcher := language.NewMatcher(tags)
	_, index, confidence := matcher.Match(want)
	if confidence == language.No {
		return "", false
	}
	return valid[index], true
}

// normalizeDomain validates and normalizes a JID domain/host label
// using golang.org/x/net/idna, for comparing a receiver-side `to`
// attribute against the configured server identity (§4.5 step 6's
// check_to collaborator).
func normalizeDomain(host string) (string, error) {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &interfaces.JIDError{Input: host, Reason: err.Error()}
	}
	return ascii, nil
}
