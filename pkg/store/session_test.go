package store

import (
	"testing"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Append(t *testing.T) {
	s := NewSession("s1", ServiceResearch, time.Now())

	added := s.Append(
		Message{Role: RoleUser, Content: "минимальная пенсия"},
		Message{Role: RoleUser, Content: "   "},
		Message{Role: RoleUser, Content: "минимальная пенсия"},
		Message{Role: RoleAssistant, Content: "минимальная пенсия"},
	)

	require.Len(t, added, 2)
	assert.Equal(t, RoleUser, added[0].Role)
	assert.Equal(t, RoleAssistant, added[1].Role)
	assert.Len(t, s.Messages, 2)

	assert.Empty(t, s.Append(Message{Role: RoleUser, Content: "минимальная пенсия"}))
}

func TestSession_Receive(t *testing.T) {
	user := func(c string) Message { return Message{Role: RoleUser, Content: c} }

	tests := []struct {
		name     string
		log      []Message
		inbound  []Message
		want     string
		wantLog  int
		wantTurn bool
	}{
		{
			name:     "new question",
			inbound:  []Message{user("q")},
			want:     "q",
			wantLog:  1,
			wantTurn: true,
		},
		{
			name:     "repeated reply in a later exchange",
			log:      []Message{user("all"), {Role: RoleAssistant, Content: "a1"}, user("q2"), {Role: RoleAssistant, Content: "a2"}},
			inbound:  []Message{user("all")},
			want:     "all",
			wantLog:  5,
			wantTurn: true,
		},
		{
			name:     "unanswered last message",
			log:      []Message{user("q")},
			inbound:  []Message{user("q")},
			want:     "q",
			wantLog:  1,
			wantTurn: true,
		},
		{
			name:     "whole history re-sent",
			log:      []Message{user("q"), {Role: RoleAssistant, Content: "a"}},
			inbound:  []Message{user("q")},
			wantLog:  2,
			wantTurn: false,
		},
		{
			name:     "retry after a failed turn",
			log:      []Message{user("q"), {Role: RoleAssistant, Content: "sorry", Failed: true}},
			inbound:  []Message{user("q")},
			want:     "q",
			wantLog:  3,
			wantTurn: true,
		},
		{
			name:     "trailing assistant message",
			inbound:  []Message{user("q"), {Role: RoleAssistant, Content: "a"}},
			wantLog:  2,
			wantTurn: false,
		},
		{
			name:     "blank trailing message",
			inbound:  []Message{user(" ")},
			wantLog:  0,
			wantTurn: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s1", ServiceResearch, time.Now())
			s.Messages = append(s.Messages, tt.log...)

			_, got := s.Receive(tt.inbound...)
			assert.Len(t, s.Messages, tt.wantLog)
			if !tt.wantTurn {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Content)
			assert.Equal(t, got.Content, s.Messages[len(s.Messages)-1].Content)
		})
	}
}

func TestSession_Reply(t *testing.T) {
	s := NewSession("s1", ServiceResearch, time.Now())
	s.Reply("reminder")
	s.Reply("reminder")
	s.Reply(" ")
	assert.Len(t, s.Messages, 2)
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("s1", ServiceResearch, time.Now())
	s.Append(Message{Role: RoleUser, Content: "q"})
	s.Workflow = state.New("q")

	c := s.Clone()
	c.Append(Message{Role: RoleAssistant, Content: "a"})
	c.Workflow.PendingApproval = true

	assert.Len(t, s.Messages, 1)
	assert.False(t, s.Workflow.PendingApproval)

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}
