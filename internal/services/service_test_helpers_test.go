package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charlesng35/larkrelay/internal/feeds"
	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/internal/worker"
)

type stubFeed struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *stubFeed) Fetch(context.Context) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type stubCompleter struct {
	text    string
	err     error
	prompts []string
	mu      sync.Mutex
}

func (c *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.text, c.err
}

type sentReply struct {
	messageID string
	card      lark.Card
}

type recordingReplier struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (r *recordingReplier) ReplyMessage(_ context.Context, messageID string, card lark.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, sentReply{messageID: messageID, card: card})
	return r.err
}

func (r *recordingReplier) all() []sentReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentReply(nil), r.replies...)
}

// inlineRunner executes tasks synchronously and records their errors.
type inlineRunner struct {
	names     []string
	errs      []error
	submitErr error
}

func (r *inlineRunner) Submit(name string, task worker.Task) error {
	if r.submitErr != nil {
		return r.submitErr
	}
	r.names = append(r.names, name)
	r.errs = append(r.errs, task(context.Background()))
	return nil
}

type sentCard struct {
	url    string
	secret string
	card   lark.Card
}

type recordingSender struct {
	sent []sentCard
	err  error
}

func (s *recordingSender) Send(_ context.Context, url, secret string, card lark.Card) error {
	s.sent = append(s.sent, sentCard{url: url, secret: secret, card: card})
	return s.err
}

type stubQuotes struct {
	quotes []feeds.Quote
	err    error
}

func (q *stubQuotes) Fetch(context.Context) ([]feeds.Quote, error) {
	return q.quotes, q.err
}
