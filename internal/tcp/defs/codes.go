package defs

import (
	"fmt"
	"strconv"
)

// Code is the controller's enumerated outcome for a control-plane operation.
// Values are wire-stable: they travel as decimal strings and must never be
// renumbered.
type Code int

const (
	Succeeded               Code = 0
	AlreadyRegistered       Code = -1
	MissingRequiredResource Code = -2
	NotInRegistry           Code = -3
	UnknownRequest          Code = -4
	UnknownBroker           Code = -5
	ServerNotOnline         Code = -6
	MissingDataServerInfo   Code = -7
	MissingName             Code = -8
)

// Message renders the operator-facing text for a code, naming the worker
// where the text calls for it.
func (c Code) Message(name string) string {
	switch c {
	case Succeeded:
		return "succeeded"
	case AlreadyRegistered:
		return fmt.Sprintf("%s already registered", name)
	case MissingRequiredResource:
		return fmt.Sprintf("%s declared no required ports", name)
	case NotInRegistry:
		return fmt.Sprintf("%s not in registry", name)
	case UnknownRequest:
		return fmt.Sprintf("unknown request from %s", name)
	case UnknownBroker:
		return fmt.Sprintf("unknown broker requested by %s", name)
	case ServerNotOnline:
		return "data server not online"
	case MissingDataServerInfo:
		return fmt.Sprintf("missing data server info from %s", name)
	case MissingName:
		return "registration missing worker name"
	}
	return fmt.Sprintf("unrecognized controller code %d", int(c))
}

// Reply is a decoded control-plane answer. On the wire a reply is a single
// decimal integer whose sign is overloaded: negative values are error codes,
// non-negative values are success payloads (0 for a plain ack, an assigned
// value such as a base port otherwise). Decoding branches on the sign once so
// nothing downstream has to.
type Reply struct {
	Code  Code // error code; Succeeded when the request was accepted
	Value int  // success payload, 0 for a plain ack
}

// Rejected reports whether the controller answered with an error code.
func (r Reply) Rejected() bool { return r.Code != Succeeded }

// ParseReply decodes a reply line. Malformed (non-integer) replies are
// returned as errors; callers treat them as fatal rather than retry.
func ParseReply(line string) (Reply, error) {
	n, err := strconv.Atoi(line)
	if err != nil {
		return Reply{}, fmt.Errorf("malformed controller reply %q", line)
	}
	if n < 0 {
		return Reply{Code: Code(n)}, nil
	}
	return Reply{Code: Succeeded, Value: n}, nil
}

// EncodeReply renders a reply to its wire form.
func EncodeReply(r Reply) string {
	if r.Code != Succeeded {
		return strconv.Itoa(int(r.Code))
	}
	return strconv.Itoa(r.Value)
}

// CodeReply is shorthand for an error-code reply.
func CodeReply(c Code) Reply { return Reply{Code: c} }

// ValueReply is shorthand for a success reply carrying a payload.
func ValueReply(v int) Reply { return Reply{Code: Succeeded, Value: v} }
