// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agentserver

import (
	"encoding/json"
	"net/http"
)

// appError carries the HTTP status a query-handling failure maps to, per
// the response table in §6.1. Kind is only surfaced in the 5xx body shape;
// 4xx responses use a plain {"error": message} body to match the rest of
// this module's HTTP surfaces (pkg/auth's middlewares included).
type appError struct {
	Status  int
	Kind    string
	Message string
}

func (e *appError) Error() string { return e.Message }

func errInvalidJSON(msg string) *appError  { return &appError{Status: http.StatusBadRequest, Kind: "invalid_request", Message: msg} }
func errValidation(msg string) *appError   { return &appError{Status: http.StatusUnprocessableEntity, Kind: "validation", Message: msg} }
func errForbidden(msg string) *appError    { return &appError{Status: http.StatusForbidden, Kind: "forbidden", Message: msg} }
func errTimeout(msg string) *appError      { return &appError{Status: http.StatusRequestTimeout, Kind: "timeout", Message: msg} }
func errOverCapacity(msg string) *appError { return &appError{Status: http.StatusTooManyRequests, Kind: "over_capacity", Message: msg} }
func errInternal(msg string) *appError     { return &appError{Status: http.StatusInternalServerError, Kind: "internal", Message: msg} }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err in the shape §6.1 specifies for its status class:
// a flat {"error": "..."} for 4xx, and {"error": {"kind", "message"}} for
// 5xx, where callers get enough structure to distinguish backend failures
// from bugs in this process.
func writeError(w http.ResponseWriter, err *appError) {
	if err.Status >= 500 {
		writeJSON(w, err.Status, map[string]any{
			"error": map[string]string{"kind": err.Kind, "message": err.Message},
		})
		return
	}
	writeJSON(w, err.Status, map[string]string{"error": err.Message})
}
