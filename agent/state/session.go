package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Session is the per-user conversation state. The Log is ordered and the
// order is what the model sees.
type Session struct {
	UserID    string            `json:"user_id"`
	Log       []*schema.Message `json:"log"`
	UserInfo  map[string]any    `json:"user_info,omitempty"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidMessage = errors.New("conversation log contains an invalid message")
)

func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		Log:       make([]*schema.Message, 0, 8),
		UserInfo:  make(map[string]any, 4),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureMaps initialises maps left nil by JSON decoding.
func (s *Session) EnsureMaps() {
	if s.UserInfo == nil {
		s.UserInfo = make(map[string]any, 4)
	}
}

// Clone copies the session header, the log slice and the user info map.
// Messages are shared: they are never mutated after being appended.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Log = append(make([]*schema.Message, 0, len(s.Log)+4), s.Log...)
	out.UserInfo = make(map[string]any, len(s.UserInfo))
	for k, v := range s.UserInfo {
		out.UserInfo[k] = v
	}
	return &out
}

// HasSystemMessage reports whether the log already carries the persona prompt.
func (s *Session) HasSystemMessage() bool {
	return HasSystemMessage(s.Log)
}

func HasSystemMessage(log []*schema.Message) bool {
	for _, msg := range log {
		if msg != nil && msg.Role == schema.System {
			return true
		}
	}
	return false
}

// LastReply returns the content of the final assistant message, if any.
func (s *Session) LastReply() (string, bool) {
	for i := len(s.Log) - 1; i >= 0; i-- {
		msg := s.Log[i]
		if msg != nil && msg.Role == schema.Assistant && len(msg.ToolCalls) == 0 {
			return msg.Content, true
		}
	}
	return "", false
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.UserID) == "" {
		return ErrInvalidSession
	}
	return ValidateLog(s.Log)
}

// ValidateLog checks roles and that every tool message answers an earlier
// assistant tool call.
func ValidateLog(log []*schema.Message) error {
	pending := map[string]bool{}
	for i, msg := range log {
		if msg == nil {
			return fmt.Errorf("%w: nil message at %d", ErrInvalidMessage, i)
		}
		switch msg.Role {
		case schema.System, schema.User:
		case schema.Assistant:
			for _, tc := range msg.ToolCalls {
				pending[tc.ID] = true
			}
		case schema.Tool:
			if !pending[msg.ToolCallID] {
				return fmt.Errorf("%w: tool message at %d answers unknown call %q", ErrInvalidMessage, i, msg.ToolCallID)
			}
		default:
			return fmt.Errorf("%w: role %q at %d", ErrInvalidMessage, msg.Role, i)
		}
	}
	return nil
}

func encodeSession(s *Session) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return payload, nil
}

func decodeSession(payload []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	s.EnsureMaps()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &s, nil
}
