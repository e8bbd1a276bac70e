package orchestratornode

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
)

// MaxMessageRunes caps how much of one inbound message reaches the model.
const MaxMessageRunes = 4096

type GraphInput struct {
	UserID string
	Text   string
}

type GraphOutput struct {
	Reply  string
	Rounds int
}

type GraphState struct {
	UserID string
	Text   string
	Now    time.Time

	Session *statex.Session
	Log     []*schema.Message

	Rounds int
	Reply  string
}

// ValidateRequest normalises the inbound message. Empty text and an empty
// user id are accepted: the webhook contract degrades missing fields to "".
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		text = string([]rune(text)[:MaxMessageRunes])
	}

	return &GraphState{
		UserID: strings.TrimSpace(in.UserID),
		Text:   text,
		Now:    nowFn().UTC(),
	}, nil
}
