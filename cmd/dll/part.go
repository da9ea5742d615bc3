package main

import (
	"fmt"

	"github.com/logicossoftware/go-opc"
)

// partPayload returns the payload of a non-directory part. A zero-length
// part yields an empty, non-nil slice.
func partPayload(m *opc.PackageModel, name string) ([]byte, error) {
	e, ok := m.Entry(name)
	if !ok || e.IsDirectory {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	if e.Payload == nil {
		return []byte{}, nil
	}
	return e.Payload, nil
}

// bufferSize is the C allocation for n result bytes. It is never zero, so
// a successful result always carries a non-NULL data pointer.
func bufferSize(n int) int {
	return max(n, 1)
}
