package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/internal/worker"
	"github.com/charlesng35/larkrelay/pkg/logger"
	"github.com/charlesng35/larkrelay/pkg/metrics"
)

const (
	// DedupKeyPrefix prefixes the per-message dedup marker.
	DedupKeyPrefix = "LARK_MESSAGE_ID_"
	// DedupTTL is how long a message id is remembered.
	DedupTTL = 300 * time.Second
	// DefaultReplyText is sent when a command produced no text.
	DefaultReplyText = "请输入内容"

	replyTaskName = "lark.reply"
)

// Outcome describes what HandleMessage did with an inbound message.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeScheduled Outcome = "scheduled"
)

// TextFeed yields a text snippet, e.g. the joke or random feed.
type TextFeed interface {
	Fetch(ctx context.Context) (string, error)
}

// Completer answers free-form prompts.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Replier posts a card as a reply to a message.
type Replier interface {
	ReplyMessage(ctx context.Context, messageID string, card lark.Card) error
}

// TaskRunner runs work detached from the request.
type TaskRunner interface {
	Submit(name string, task worker.Task) error
}

// ReplyDeps bundles the collaborators of ReplyService.
type ReplyDeps struct {
	Store   cache.Store
	Jokes   TextFeed
	Random  TextFeed
	AI      Completer
	Replier Replier
	Tasks   TaskRunner
}

type commandFunc func(ctx context.Context, prompt string) (string, error)

// ReplyService turns inbound chat messages into card replies.
type ReplyService struct {
	store    cache.Store
	replier  Replier
	tasks    TaskRunner
	commands map[string]commandFunc
	fallback commandFunc
	log      *zap.Logger
}

// NewReplyService constructs a ReplyService.
func NewReplyService(deps ReplyDeps) (*ReplyService, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("reply service: cache store is required")
	case deps.Replier == nil:
		return nil, errors.New("reply service: replier is required")
	case deps.Tasks == nil:
		return nil, errors.New("reply service: task runner is required")
	case deps.Jokes == nil || deps.Random == nil:
		return nil, errors.New("reply service: joke and random feeds are required")
	case deps.AI == nil:
		return nil, errors.New("reply service: completer is required")
	}

	svc := &ReplyService{
		store:   deps.Store,
		replier: deps.Replier,
		tasks:   deps.Tasks,
		log:     logger.WithModule("reply"),
	}

	joke := func(ctx context.Context, _ string) (string, error) { return deps.Jokes.Fetch(ctx) }
	svc.commands = map[string]commandFunc{
		"摸鱼":   joke,
		"摸鱼办":  joke,
		"moyu": joke,
		"awsl": func(ctx context.Context, _ string) (string, error) { return deps.Random.Fetch(ctx) },
	}
	svc.fallback = deps.AI.Complete

	return svc, nil
}

// DedupKey returns the cache key marking messageID as seen.
func DedupKey(messageID string) string {
	return DedupKeyPrefix + messageID
}

// HandleMessage deduplicates msg and schedules the reply. The lookup and the
// marker write are separate calls, so two concurrent deliveries of the same
// id may both be scheduled.
func (s *ReplyService) HandleMessage(ctx context.Context, msg *lark.Message) (Outcome, error) {
	ctx = ensuredContext(ctx)

	if msg == nil || msg.MessageType != lark.MessageTypeText || msg.MessageID == "" {
		return OutcomeIgnored, nil
	}

	key := DedupKey(msg.MessageID)
	_, seen, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reply service: check dedup marker: %w", err)
	}
	if seen {
		metrics.DuplicateEvents.Inc()
		s.log.Debug("duplicate message skipped", zap.String("message_id", msg.MessageID))
		return OutcomeDuplicate, nil
	}

	if err := s.store.Set(ctx, key, []byte("true"), DedupTTL); err != nil {
		return "", fmt.Errorf("reply service: store dedup marker: %w", err)
	}

	message := *msg
	if err := s.tasks.Submit(replyTaskName, func(taskCtx context.Context) error {
		return s.Reply(taskCtx, message)
	}); err != nil {
		// Let a redelivery of the same message try again.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to clear dedup marker", zap.String("message_id", msg.MessageID), zap.Error(delErr))
		}
		return "", fmt.Errorf("reply service: schedule reply: %w", err)
	}

	return OutcomeScheduled, nil
}

// Reply computes the answer for msg and posts it. Empty prompts are dropped.
func (s *ReplyService) Reply(ctx context.Context, msg lark.Message) error {
	content, err := lark.ParseTextContent(msg.Content)
	if err != nil {
		return err
	}

	prompt := ExtractPrompt(content.Text)
	if prompt == "" {
		return nil
	}

	text, err := s.Answer(ctx, prompt)
	if err != nil {
		return err
	}

	if err := s.replier.ReplyMessage(ctx, msg.MessageID, lark.NewMarkdownCard(text)); err != nil {
		return fmt.Errorf("reply service: send reply: %w", err)
	}
	return nil
}

// Answer runs the command table for prompt.
func (s *ReplyService) Answer(ctx context.Context, prompt string) (string, error) {
	run, ok := s.commands[prompt]
	if !ok {
		run = s.fallback
	}

	text, err := run(ensuredContext(ctx), prompt)
	if err != nil {
		return "", fmt.Errorf("reply service: answer %q: %w", prompt, err)
	}
	if text == "" {
		text = DefaultReplyText
	}
	return text, nil
}
