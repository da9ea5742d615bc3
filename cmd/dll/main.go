// Package main provides C-compatible exports for the opc library.
// Build with: go build -buildmode=c-shared -o opc.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data.
// On success data is non-NULL and error is NULL; data_len may be 0.
typedef struct {
    char* data;
    int   data_len;
    char* error;
} OpcResult;
*/
import "C"

import (
	"bytes"
	"encoding/json"
	"unsafe"

	"github.com/logicossoftware/go-opc"
)

func main() {}

// OpcFreeResult frees memory allocated by other Opc functions.
// Must be called to avoid memory leaks.
//
//export OpcFreeResult
func OpcFreeResult(result C.OpcResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// OpcFreeString frees a C string allocated by Go.
//
//export OpcFreeString
func OpcFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// makeResult copies data into C memory. An empty payload still gets a
// one-byte allocation so callers can tell success from failure by data.
func makeResult(data []byte) C.OpcResult {
	var result C.OpcResult
	buf := C.malloc(C.size_t(bufferSize(len(data))))
	copy(unsafe.Slice((*byte)(buf), len(data)), data)
	result.data = (*C.char)(buf)
	result.data_len = C.int(len(data))
	return result
}

// makeError carries the user-facing message, not the raw error chain.
func makeError(err error) C.OpcResult {
	var result C.OpcResult
	result.error = C.CString(opc.UserMessage(err))
	return result
}

func load(data *C.char, dataLen C.int) (*opc.PackageModel, error) {
	return opc.Load(C.GoBytes(unsafe.Pointer(data), dataLen))
}

// OpcInspect loads a package and returns its manifest as JSON.
// Returns OpcResult with JSON bytes or error. Call OpcFreeResult when done.
//
//export OpcInspect
func OpcInspect(data *C.char, dataLen C.int) C.OpcResult {
	m, err := load(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	out, err := json.Marshal(opc.BuildManifest(m))
	if err != nil {
		return makeError(err)
	}
	return makeResult(out)
}

// OpcEncodeManifest loads a package and returns its manifest in the framed
// binary form, compressed with compression (0=None, 1=ZIP, 2=ZSTD, 3=LZ4, 4=Brotli).
//
//export OpcEncodeManifest
func OpcEncodeManifest(data *C.char, dataLen C.int, compression C.uint16_t) C.OpcResult {
	m, err := load(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	var buf bytes.Buffer
	if err := opc.EncodeManifest(&buf, opc.BuildManifest(m), opc.Compression(compression)); err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}

// OpcGetPart returns the decompressed payload of one part. A zero-length
// part succeeds with a non-NULL data pointer and data_len 0.
//
//export OpcGetPart
func OpcGetPart(data *C.char, dataLen C.int, partName *C.char) C.OpcResult {
	m, err := load(data, dataLen)
	if err != nil {
		return makeError(err)
	}
	payload, err := partPayload(m, C.GoString(partName))
	if err != nil {
		var result C.OpcResult
		result.error = C.CString(err.Error())
		return result
	}
	return makeResult(payload)
}

// OpcValidate loads a package without returning anything.
// Returns NULL on success, or an error message string on failure.
// Call OpcFreeString on the result if non-NULL.
//
//export OpcValidate
func OpcValidate(data *C.char, dataLen C.int) *C.char {
	if _, err := load(data, dataLen); err != nil {
		return C.CString(opc.UserMessage(err))
	}
	return nil
}

// OpcGetEntryCount returns the number of entries in a package.
// Returns -1 on error.
//
//export OpcGetEntryCount
func OpcGetEntryCount(data *C.char, dataLen C.int) C.int {
	m, err := load(data, dataLen)
	if err != nil {
		return -1
	}
	return C.int(len(m.Entries))
}
