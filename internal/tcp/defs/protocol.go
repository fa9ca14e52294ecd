package defs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Protocol constants. Control-plane messages are single lines of text;
// fields within a line are pipe-delimited.
const (
	FieldDelimiter = "|"

	// InitialRequestTimeout bounds how long the controller waits for the
	// first request on a fresh connection.
	InitialRequestTimeout = 30 * time.Second
	ConnectionRetryDelay  = 1 * time.Second
)

// RequestKind discriminates the control-channel request shapes.
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindRegistration
	KindHeartbeat
	KindDataServerAnnounce
	KindDataServerLookup
)

func (k RequestKind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindHeartbeat:
		return "heartbeat"
	case KindDataServerAnnounce:
		return "dataserver-announce"
	case KindDataServerLookup:
		return "dataserver-lookup"
	}
	return "unknown"
}

// ControlRequest is a classified control-plane request.
//
// Grammar, by field count:
//
//	name                   heartbeat
//	name|ports             registration (second field integer)
//	name|broker            data server lookup (second field non-integer)
//	name|broker|port       data server announce
//
// Port is -1 on an announce whose port field did not parse; the handler
// answers that with MissingDataServerInfo rather than dropping the request.
type ControlRequest struct {
	Kind          RequestKind
	Name          string
	RequiredPorts int
	Broker        string
	Port          int
	Raw           string
}

// ParseControlRequest classifies one request line. It never fails: lines that
// fit no shape come back as KindUnknown and are answered with UnknownRequest.
func ParseControlRequest(line string) ControlRequest {
	req := ControlRequest{Kind: KindUnknown, Raw: line}
	if line == "" {
		return req
	}

	fields := strings.Split(line, FieldDelimiter)
	req.Name = fields[0]

	switch len(fields) {
	case 1:
		req.Kind = KindHeartbeat
	case 2:
		if n, err := strconv.Atoi(fields[1]); err == nil {
			req.Kind = KindRegistration
			req.RequiredPorts = n
		} else {
			req.Kind = KindDataServerLookup
			req.Broker = fields[1]
		}
	case 3:
		req.Kind = KindDataServerAnnounce
		req.Broker = fields[1]
		if p, err := strconv.Atoi(fields[2]); err == nil {
			req.Port = p
		} else {
			req.Port = -1
		}
	}

	return req
}

// EncodeRegistration renders the first message a worker sends on its control
// channel.
func EncodeRegistration(name string, requiredPorts int) string {
	return fmt.Sprintf("%s%s%d", name, FieldDelimiter, requiredPorts)
}

// EncodeHeartbeat renders a liveness ping. A heartbeat is the bare worker
// name, no delimiter.
func EncodeHeartbeat(name string) string { return name }

// EncodeDataServerAnnounce renders a data server announcement.
func EncodeDataServerAnnounce(name, broker string, port int) string {
	return fmt.Sprintf("%s%s%s%s%d", name, FieldDelimiter, broker, FieldDelimiter, port)
}

// EncodeDataServerLookup renders a data server directory query.
func EncodeDataServerLookup(name, broker string) string {
	return fmt.Sprintf("%s%s%s", name, FieldDelimiter, broker)
}
