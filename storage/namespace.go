package storage

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// userNamespace validates an address for use as a single path element.
func userNamespace(address string) (string, error) {
	if address == "" || address == "." || address == ".." ||
		strings.ContainsAny(address, `/\`) || path.Clean(address) != address {
		return "", fmt.Errorf("invalid user namespace %q", address)
	}
	return address, nil
}

func mustUserdata(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("encoding driver userdata: %v", err))
	}
	return data
}
