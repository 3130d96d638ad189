package call

import (
	"fmt"
	"strings"

	"github.com/nordcall/rtcstack/sip/message"
)

// extractTag returns the ;tag= parameter of a From/To header value, or
// "" if absent (the case for the To header of an initial INVITE, which
// identifies it as creating a new dialog rather than belonging to one).
func extractTag(headerValue string) string {
	for _, seg := range strings.Split(headerValue, ";") {
		seg = strings.TrimSpace(seg)
		if kv := strings.SplitN(seg, "=", 2); len(kv) == 2 && strings.EqualFold(kv[0], "tag") {
			return kv[1]
		}
	}
	return ""
}

// addTag appends ;tag=value to a From/To header value lacking one.
func addTag(headerValue, tag string) string {
	return headerValue + ";tag=" + tag
}

// cseqHeader formats a request's CSeq header value.
func cseqHeader(n uint32, method string) string {
	return fmt.Sprintf("%d %s", n, method)
}

func parseCSeqNumber(headerValue string) (uint32, error) {
	n, _, err := message.ParseCSeq(headerValue)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// formatContactURI renders a URI as a Contact/From/To header's
// angle-bracketed name-addr form.
func formatContactURI(uri *message.URI) string {
	return "<" + uri.String() + ">"
}
