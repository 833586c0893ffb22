// Package correlation pulls trace and request identifiers out of incoming HTTP headers so a
// page action or an MCP message can be matched with the caller's own logs.
package correlation

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Key is one normalized identifier, typed request_id, correlation_id or trace_id.
type Key struct {
	Type  string
	Value string
}

var (
	traceparentPattern = regexp.MustCompile(`(?i)^([0-9a-f]{2})-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})$`)
	cloudTracePattern  = regexp.MustCompile(`(?i)^([0-9a-f]{32})(?:/[0-9]+)?(?:;o=\d+)?$`)
	b3SinglePattern    = regexp.MustCompile(`(?i)^([0-9a-f]{16,32})-[0-9a-f]{16}(?:-[01d](?:-[0-9a-f]{16})?)?$`)
)

type extractor struct {
	typ   string
	parse func(string) string
}

func verbatim(v string) string { return v }

func submatch(re *regexp.Regexp, group int) func(string) string {
	return func(v string) string {
		m := re.FindStringSubmatch(v)
		if len(m) <= group {
			return ""
		}
		return m[group]
	}
}

// headers maps lower-cased header names to the key they carry. Order matters only for the
// output of FromRequest, which walks headerOrder.
var headers = map[string]extractor{
	"x-request-id":          {"request_id", verbatim},
	"request-id":            {"request_id", verbatim},
	"x-correlation-id":      {"correlation_id", verbatim},
	"correlation-id":        {"correlation_id", verbatim},
	"x-trace-id":            {"trace_id", verbatim},
	"x-b3-traceid":          {"trace_id", verbatim},
	"traceparent":           {"trace_id", submatch(traceparentPattern, 2)},
	"x-cloud-trace-context": {"trace_id", submatch(cloudTracePattern, 1)},
	"b3":                    {"trace_id", submatch(b3SinglePattern, 1)},
}

var headerOrder = []string{
	"x-request-id", "request-id",
	"x-correlation-id", "correlation-id",
	"traceparent", "x-cloud-trace-context", "b3", "x-trace-id", "x-b3-traceid",
}

// FromHeader returns the key carried by one header, if any.
func FromHeader(name, value string) (Key, bool) {
	ex, ok := headers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Key{}, false
	}
	v := normalize(ex.parse(normalize(value)))
	if v == "" {
		return Key{}, false
	}
	return Key{Type: ex.typ, Value: v}, true
}

// FromRequest collects the keys of every recognised header in h, without duplicates.
func FromRequest(h http.Header) []Key {
	var keys []Key
	seen := make(map[Key]struct{})
	for _, name := range headerOrder {
		for _, value := range h.Values(name) {
			key, ok := FromHeader(name, value)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// Fields renders keys as log fields. Repeated types get an index suffix.
func Fields(keys []Key) []zap.Field {
	fields := make([]zap.Field, 0, len(keys))
	count := make(map[string]int, len(keys))
	for _, k := range keys {
		name := "caller_" + k.Type
		if n := count[k.Type]; n > 0 {
			name = name + "_" + strconv.Itoa(n)
		}
		count[k.Type]++
		fields = append(fields, zap.String(name, k.Value))
	}
	return fields
}

func normalize(value string) string {
	v := strings.TrimSpace(strings.ToLower(value))
	v = strings.Trim(v, "\"'`")
	return strings.TrimRight(v, ".,;:)]}")
}
