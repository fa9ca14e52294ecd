package domain

// Broker identifies an execution/data venue supported by the platform.
// Name and value are kept identical since they travel on the wire as-is.
type Broker string

const (
	BrokerMock Broker = "MOCK" // for testing purpose
	BrokerIB   Broker = "IB"
	BrokerDWX  Broker = "DWX" // Darwinex
)

// ParseBroker validates a wire broker string against the catalog.
func ParseBroker(s string) (Broker, bool) {
	switch Broker(s) {
	case BrokerMock, BrokerIB, BrokerDWX:
		return Broker(s), true
	}
	return "", false
}
