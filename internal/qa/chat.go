// Package qa keeps the question-and-answer transcript shown next to a
// translation result.
package qa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alkime/saywhat/internal/translate"
)

var (
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrNoPendingQuestion = errors.New("no question awaiting a reply")
)

// DefaultReplyDelay is how long the assistant waits before replying.
const DefaultReplyDelay = time.Second

// FallbackReply is appended when the answerer fails.
const FallbackReply = "Sorry, I couldn't find an answer to that in the translated content."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Chat is an append-only transcript. Every question eventually gets exactly
// one reply, in the order the questions were asked.
type Chat struct {
	mu       sync.Mutex
	messages []Message
	pending  []string
	now      func() time.Time

	// turn is held by one Submit at a time.
	turn sync.Mutex
}

func NewChat() *Chat {
	return &Chat{now: time.Now}
}

// Ask appends the user's question. Blank questions are rejected.
func (c *Chat) Ask(question string) (Message, error) {
	if strings.TrimSpace(question) == "" {
		return Message{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg := Message{Role: RoleUser, Content: question, At: c.now()}
	c.messages = append(c.messages, msg)
	c.pending = append(c.pending, question)

	return msg, nil
}

// Reply appends the assistant's answer to the oldest unanswered question.
func (c *Chat) Reply(answer string) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Message{}, ErrNoPendingQuestion
	}

	c.pending = c.pending[1:]
	msg := Message{Role: RoleAssistant, Content: answer, At: c.now()}
	c.messages = append(c.messages, msg)

	return msg, nil
}

// Messages returns a copy of the transcript.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Message(nil), c.messages...)
}

// Pending is the number of questions awaiting a reply.
func (c *Chat) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Respond waits delay, then asks a for an answer. Answerer failures yield
// FallbackReply; only ctx cancellation returns an error.
func Respond(
	ctx context.Context,
	a translate.Answerer,
	question, content string,
	delay time.Duration,
) (string, error) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	answer, err := a.Answer(ctx, question, content)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	if err != nil || strings.TrimSpace(answer) == "" {
		slog.WarnContext(ctx, "answer failed, using fallback", "error", err)
		return FallbackReply, nil
	}

	return answer, nil
}

// Submit asks question and blocks until the reply is appended. It returns the
// two messages it added, user first. Concurrent calls take turns, so each
// answer directly follows its own question.
func (c *Chat) Submit(
	ctx context.Context,
	a translate.Answerer,
	question, content string,
	delay time.Duration,
) ([]Message, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	c.turn.Lock()
	defer c.turn.Unlock()

	asked, err := c.Ask(question)
	if err != nil {
		return nil, err
	}

	answer, err := Respond(ctx, a, question, content, delay)
	if err != nil {
		answer = FallbackReply
	}

	replied, rerr := c.Reply(answer)
	if rerr != nil {
		return nil, rerr
	}

	return []Message{asked, replied}, err
}
