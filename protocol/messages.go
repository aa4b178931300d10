package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgType tags a protocol message.
type MsgType string

const (
	TypeReady          MsgType = "READY"
	TypeAuthSuccess    MsgType = "AUTH_SUCCESS"
	TypeAuthCancel     MsgType = "AUTH_CANCEL"
	TypeAuthError      MsgType = "AUTH_ERROR"
	TypeConsentGranted MsgType = "CONSENT_GRANTED"
	TypeConsentDenied  MsgType = "CONSENT_DENIED"
)

// ErrorCode classifies a failed authentication exchange.
type ErrorCode string

const (
	CodeCancelled     ErrorCode = "CANCELLED"
	CodeAuthFailed    ErrorCode = "AUTH_FAILED"
	CodeNetworkError  ErrorCode = "NETWORK_ERROR"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	CodeAuthError     ErrorCode = "AUTH_ERROR"
)

// ValidCode reports whether c is a known error code.
func ValidCode(c ErrorCode) bool {
	switch c {
	case CodeCancelled, CodeAuthFailed, CodeNetworkError, CodeTimeout, CodeInvalidConfig, CodeAuthError:
		return true
	}
	return false
}

// Identity is the verified identity relayed by the isolated surface.
// The bridge only checks its shape; the payload is otherwise opaque.
type Identity struct {
	Address  string          `json:"address"`
	Nickname string          `json:"nickname"`
	Avatar   json.RawMessage `json:"avatar,omitempty"`
}

// AuthFailure carries a remote-reported authentication failure.
type AuthFailure struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// ConsentGrant reports scopes the user approved for an application.
type ConsentGrant struct {
	AppID  string   `json:"appId"`
	Scopes []string `json:"scopes"`
}

// ConsentDenial reports that the user declined consent for an application.
type ConsentDenial struct {
	AppID string `json:"appId"`
}

// Message is one decoded protocol message. Exactly the field matching
// Type is populated; all others are nil.
type Message struct {
	Type     MsgType
	Identity *Identity
	Failure  *AuthFailure
	Grant    *ConsentGrant
	Denial   *ConsentDenial
}

type wireMessage struct {
	Type    MsgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var (
	// ErrUnknownType rejects a message whose type tag is not part of the protocol.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrBadPayload rejects a message whose payload is missing or malformed.
	ErrBadPayload = errors.New("protocol: invalid payload")
)

// Decode parses data into exactly one protocol message variant. It is
// the schema gate: unknown type tags and missing required fields are
// rejected, never passed through.
func Decode(data []byte) (*Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch w.Type {
	case TypeReady, TypeAuthCancel:
		return &Message{Type: w.Type}, nil
	case TypeAuthSuccess:
		var p struct {
			Identity *Identity `json:"identity"`
		}
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.Identity == nil || p.Identity.Address == "" {
			return nil, fmt.Errorf("%w: identity address required", ErrBadPayload)
		}
		return &Message{Type: w.Type, Identity: p.Identity}, nil
	case TypeAuthError:
		var p AuthFailure
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.Error == "" || !ValidCode(p.Code) {
			return nil, fmt.Errorf("%w: error and code required", ErrBadPayload)
		}
		return &Message{Type: w.Type, Failure: &p}, nil
	case TypeConsentGranted:
		var p ConsentGrant
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.AppID == "" {
			return nil, fmt.Errorf("%w: appId required", ErrBadPayload)
		}
		if p.Scopes == nil {
			p.Scopes = []string{}
		}
		return &Message{Type: w.Type, Grant: &p}, nil
	case TypeConsentDenied:
		var p ConsentDenial
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.AppID == "" {
			return nil, fmt.Errorf("%w: appId required", ErrBadPayload)
		}
		return &Message{Type: w.Type, Denial: &p}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}
}

// Encode serializes a message for the wire. The zero payload variants
// carry only their type tag.
func Encode(m Message) ([]byte, error) {
	w := wireMessage{Type: m.Type}
	var payload any
	switch m.Type {
	case TypeReady, TypeAuthCancel:
	case TypeAuthSuccess:
		payload = struct {
			Identity *Identity `json:"identity"`
		}{m.Identity}
	case TypeAuthError:
		payload = m.Failure
	case TypeConsentGranted:
		payload = m.Grant
	case TypeConsentDenied:
		payload = m.Denial
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		w.Payload = b
	}
	return json.Marshal(w)
}
