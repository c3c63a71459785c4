// Package topology loads the relay endpoint list a connection driver
// dials in order, per spec.md §6's Topology JSON format.
package topology

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Endpoint is one relay address the driver may dial.
type Endpoint struct {
	Host string
	Port int
}

// String renders "host:port" for net.Dial.
func (e Endpoint) String() string {
	return e.Host + ":" + strconv.Itoa(e.Port)
}

type rawEndpoint struct {
	Addr    string `json:"addr"`
	Address string `json:"address"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type rawTopology struct {
	Producers    []rawEndpoint `json:"Producers"`
	AccessPoints []rawEndpoint `json:"AccessPoints"`
}

// Parse decodes topology JSON into a de-duplicated, order-preserving
// endpoint list. "addr"/"address"/"host" are accepted interchangeably,
// per spec.md §6.
func Parse(data []byte) ([]Endpoint, error) {
	var raw rawTopology
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &chain.MalformedError{Where: fmt.Sprintf("topology: JSON decode: %v", err)}
	}

	seen := map[string]bool{}
	var out []Endpoint
	for _, re := range append(raw.Producers, raw.AccessPoints...) {
		host := re.Addr
		if host == "" {
			host = re.Address
		}
		if host == "" {
			host = re.Host
		}
		if host == "" || re.Port == 0 {
			continue
		}
		ep := Endpoint{Host: host, Port: re.Port}
		key := ep.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ep)
	}
	return out, nil
}
