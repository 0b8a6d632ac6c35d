package lifecycle

import (
	"strconv"
	"strings"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// ParsedParams is the outcome of splitting a raw argv slice into the
// built-in parameters the SLE consumes and the ordered key/value pairs
// forwarded to the derived ParseParams hook (spec.md "Parameter parsing").
type ParsedParams struct {
	Port     int // 0 means "not supplied, use ServerDescriptor.DefaultPort"
	Max      int // 0 means "not supplied"
	Forwarded []ParamPair
}

// maxClientCeiling is the transport-defined ceiling /Max= is clamped to.
// The framework owns no transport of its own (spec.md Non-goals), so this
// is a conservative default a derived transport may lower further.
const maxClientCeiling = 10000

// ParseArgs splits raw CLI arguments into built-ins and forwarded pairs.
// Every argument must start with "/"; anything else is a fatal parse
// error (KindFatalConfig).
func ParseArgs(args []string) (ParsedParams, error) {
	var pp ParsedParams

	for _, arg := range args {
		if !strings.HasPrefix(arg, "/") {
			return ParsedParams{}, cqcerrors.FatalConfig("args", "argument does not begin with '/': "+arg)
		}
		body := arg[1:]

		key, value, hasValue := splitKeyValue(body)

		switch strings.EqualFold(key, "Port") {
		case true:
			if !hasValue {
				return ParsedParams{}, cqcerrors.FatalConfig("Port", "missing value")
			}
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return ParsedParams{}, cqcerrors.FatalConfig("Port", "value must be 1..65535: "+value)
			}
			pp.Port = port
			continue
		}

		if strings.EqualFold(key, "Max") {
			if !hasValue {
				return ParsedParams{}, cqcerrors.FatalConfig("Max", "missing value")
			}
			maxClients, err := strconv.Atoi(value)
			if err != nil || maxClients < 0 {
				return ParsedParams{}, cqcerrors.FatalConfig("Max", "invalid value: "+value)
			}
			if maxClients > maxClientCeiling {
				maxClients = maxClientCeiling
			}
			pp.Max = maxClients
			continue
		}

		pair := ParamPair{Key: key}
		if hasValue {
			pair.Value = value
		}
		pp.Forwarded = append(pp.Forwarded, pair)
	}

	return pp, nil
}

func splitKeyValue(body string) (key, value string, hasValue bool) {
	idx := strings.IndexByte(body, '=')
	if idx < 0 {
		return body, "", false
	}
	return body[:idx], body[idx+1:], true
}
