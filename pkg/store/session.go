package store

import (
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	// Chat services sharing the session layer
	ServiceConsultation = "qna"
	ServiceResearch     = "research"
)

// Message is one entry of a conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Failed marks the apology logged by a failed turn. It does not count as
	// an answer to the user message before it.
	Failed bool `json:"failed,omitempty"`
}

// Session represents the active chat session state.
type Session struct {
	ID      string `json:"id"`
	Service string `json:"service"` // "qna" | "research"

	// THE CONVERSATION LOG (append-only, de-duplicated)
	Messages []Message `json:"messages"`

	// THE WORKBENCH (research progress, nil until the first research turn)
	Workflow *state.WorkflowState `json:"workflow,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session for a service.
func NewSession(id, service string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Service:   service,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the log and returns the ones actually appended.
// Messages whose trimmed content is empty and exact duplicates of a logged
// message are skipped.
func (s *Session) Append(msgs ...Message) []Message {
	var added []Message
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if s.contains(m) {
			continue
		}
		s.Messages = append(s.Messages, m)
		added = append(added, m)
	}
	return added
}

func (s *Session) contains(m Message) bool {
	for _, existing := range s.Messages {
		if existing.Role == m.Role && existing.Content == m.Content {
			return true
		}
	}
	return false
}

// Receive appends the inbound messages and returns the user message that
// drives the turn. A trailing user message drives the turn even when it
// repeats an earlier entry, in which case it is logged again. It is skipped
// only when it is already the last user message of the log and has been
// answered, which makes re-sending the whole history harmless.
func (s *Session) Receive(msgs ...Message) ([]Message, *Message) {
	last, ok := trailingUserMessage(msgs)
	if ok && s.answered(last) {
		ok = false
	}

	added := s.Append(msgs...)
	if !ok {
		return added, nil
	}
	if n := len(s.Messages); n == 0 || s.Messages[n-1].Role != RoleUser || s.Messages[n-1].Content != last.Content {
		s.Messages = append(s.Messages, last)
		added = append(added, last)
	}
	return added, &last
}

// Reply appends an assistant message without de-duplication.
func (s *Session) Reply(content string) Message {
	m := Message{Role: RoleAssistant, Content: content}
	if strings.TrimSpace(content) != "" {
		s.Messages = append(s.Messages, m)
	}
	return m
}

// Apologize appends the assistant apology of a failed turn.
func (s *Session) Apologize(content string) Message {
	m := Message{Role: RoleAssistant, Content: content, Failed: true}
	s.Messages = append(s.Messages, m)
	return m
}

// answered reports whether m is the last user message of the log and an
// assistant message follows it.
func (s *Session) answered(m Message) bool {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role != RoleUser {
			continue
		}
		if s.Messages[i].Content != m.Content {
			return false
		}
		for _, after := range s.Messages[i+1:] {
			if after.Role == RoleAssistant && !after.Failed {
				return true
			}
		}
		return false
	}
	return false
}

func trailingUserMessage(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	last := msgs[len(msgs)-1]
	if last.Role != RoleUser || strings.TrimSpace(last.Content) == "" {
		return Message{}, false
	}
	return last, true
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Workflow = s.Workflow.Clone()
	return &c
}
