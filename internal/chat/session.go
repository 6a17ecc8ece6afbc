// Package chat keeps a free-text conversation with the safety assistant.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ragcon/safety-assistant/internal/types"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrorMessage is shown when a question could not be answered.
const ErrorMessage = "메시지 전송 중 오류가 발생했습니다. 다시 시도해주세요."

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while a previous question is still unanswered.
	ErrBusy = errors.New("waiting for the previous answer")
)

// Message is one entry of the conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Asker answers free-text questions.
type Asker interface {
	Ask(ctx context.Context, question string) (*types.ChatAnswer, error)
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	asker  Asker
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
	sending  bool
}

// NewSession creates an empty conversation. logger may be nil.
func NewSession(asker Asker, logger *zerolog.Logger) *Session {
	s := &Session{asker: asker, logger: log.Logger, now: time.Now}
	if logger != nil {
		s.logger = *logger
	}
	return s
}

// Send records text as a user message, asks the assistant and records its
// answer. On failure the user message stays in the history and no answer is
// added.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.sending = true
	s.messages = append(s.messages, s.newMessage(RoleUser, text))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	started := time.Now()
	answer, err := s.asker.Ask(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Dur("duration", time.Since(started)).Msg("chat question failed")
		return Message{}, err
	}
	s.logger.Debug().Dur("duration", time.Since(started)).Msg("chat answered")

	s.mu.Lock()
	reply := s.newMessage(RoleAssistant, answer.Text())
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
	return reply, nil
}

// newMessage must be called with s.mu held.
func (s *Session) newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
}

// Messages returns a copy of the history, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Sending reports whether a question is awaiting its answer.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Clear drops the history.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}
