// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpfront

import (
	"encoding/json"
	"net/http"
)

// JSON-RPC error codes assigned by spec.md §6/§4.10. These are transport-
// level protocol errors, distinct from the pkg/errors tool-result kinds.
const (
	CodeMissingSessionID    = -32000
	CodeUnknownSession      = -32001
	CodeCapacityExceeded    = -32002
	CodeMissingRemoteAuth   = -32010
	CodeMissingAPIURLHeader = -32011
)

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcErrorEnvelope struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Error   jsonrpcError `json:"error"`
}

// writeJSONRPCError writes a JSON-RPC error envelope with the given HTTP
// status. id is echoed back null since these failures occur before a
// request id can be parsed out of the body.
func writeJSONRPCError(w http.ResponseWriter, httpStatus, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(jsonrpcErrorEnvelope{
		JSONRPC: "2.0",
		ID:      nil,
		Error:   jsonrpcError{Code: code, Message: message},
	})
}
