// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusSuccess is the only status an invocation reports.
const StatusSuccess = "success"

// Sentinel kinds for invocation payload errors.
var (
	ErrMalformedPayload = errors.New("malformed invocation payload")
	ErrMissingFileID    = errors.New("missing source.id")
)

// Invocation is the payload Box sends when the skill fires.
// Shape: {source:{name,id}, token:{read:{access_token}, write:{access_token}}}.
type Invocation struct {
	Source FileRef `json:"source"`
	Token  Tokens  `json:"token"`

	// Config optionally names the config file for one-shot runs.
	Config string `json:"config,omitempty"`
}

// FileRef identifies the uploaded file.
type FileRef struct {
	Name string `json:"name"`
	ID   FileID `json:"id"`
}

// FileID is an opaque Box file identifier. Box sends it as a string, but
// numeric ids are accepted as well.
type FileID string

// UnmarshalJSON accepts both "42" and 42.
func (f *FileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FileID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("file id must be a string or number: %w", err)
	}
	*f = FileID(n.String())
	return nil
}

func (f FileID) String() string { return string(f) }

// Tokens carries the two short-lived bearer credentials scoped to the file.
type Tokens struct {
	Read  AccessToken `json:"read"`
	Write AccessToken `json:"write"`
}

// AccessToken wraps a bearer token value.
type AccessToken struct {
	AccessToken string `json:"access_token"`
}

// Validate checks the fields the skill cannot run without. Tokens are opaque
// and not inspected; an empty token is left for Box to reject.
func (i Invocation) Validate() error {
	if strings.TrimSpace(i.Source.ID.String()) == "" {
		return ErrMissingFileID
	}
	return nil
}

// DecodeInvocation parses a payload. Cloud function runtimes wrap the
// arguments as {"value": {...}}; both forms are accepted.
func DecodeInvocation(data []byte) (Invocation, error) {
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Invocation{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(envelope.Value) > 0 && !bytes.Equal(envelope.Value, []byte("null")) {
		data = envelope.Value
	}

	var inv Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		return Invocation{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := inv.Validate(); err != nil {
		return Invocation{}, err
	}
	return inv, nil
}

// Result is what an invocation returns to its caller.
type Result struct {
	Status string `json:"status"`
}

// Success returns the fixed success result.
func Success() Result { return Result{Status: StatusSuccess} }

// Enrichment holds NLU output in service order.
type Enrichment struct {
	Concepts []string
	Keywords []string
}

// Empty reports whether neither list has entries.
func (e Enrichment) Empty() bool {
	return len(e.Concepts) == 0 && len(e.Keywords) == 0
}

// Append adds other's results after e's, preserving order.
func (e *Enrichment) Append(other Enrichment) {
	e.Concepts = append(e.Concepts, other.Concepts...)
	e.Keywords = append(e.Keywords, other.Keywords...)
}
