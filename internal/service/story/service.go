package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/analysis/narrative"
	"github.com/zhouzirui/z-saga/backend/internal/metrics"
	"github.com/zhouzirui/z-saga/backend/internal/model/story"
	"github.com/zhouzirui/z-saga/backend/internal/service/prompt"
	"github.com/zhouzirui/z-saga/backend/internal/storage/session"
)

// Generator produces raw reply text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service owns session progression: it validates transitions, drives the
// generator and persists the resulting state.
type Service struct {
	catalog   story.Catalog
	store     session.Store
	generator Generator
	prompts   *prompt.Builder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(b *prompt.Builder) Option {
	return func(s *Service) { s.prompts = b }
}

// NewService wires the progression core to its collaborators.
func NewService(catalog story.Catalog, store session.Store, generator Generator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		catalog:   catalog,
		store:     store,
		generator: generator,
		prompts:   prompt.NewBuilder(prompt.DefaultOptions()),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListStories returns the accepted story names.
func (s *Service) ListStories() []string {
	return s.catalog.Names()
}

// StoryFiles returns the story name to reference file mapping.
func (s *Service) StoryFiles() map[string]string {
	return s.catalog.Files()
}

// Start opens a new session and returns its first node.
func (s *Service) Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error) {
	name := strings.TrimSpace(storyName)
	if name == "" {
		return nil, fmt.Errorf("%w: story_name is required", story.ErrValidation)
	}
	if maxChoices < story.MinChoices || maxChoices > story.MaxChoices {
		return nil, fmt.Errorf("%w: max_choices must be between %d and %d, got %d",
			story.ErrValidation, story.MinChoices, story.MaxChoices, maxChoices)
	}

	reference, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.Generate(ctx, s.prompts.Start(reference, name, maxChoices))
	if err != nil {
		s.logger.Error("start generation failed", zap.String("story", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", story.ErrGeneration, err)
	}
	node := s.interpret(raw)

	now := s.now().UTC()
	sess := story.Session{
		SessionID:   s.newID(),
		StoryName:   name,
		MaxChoices:  maxChoices,
		ChoicesMade: 0,
		History:     []story.HistoryEntry{},
		CurrentNode: node,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	metrics.SessionsStarted.WithLabelValues(strings.ToLower(name)).Inc()
	s.logger.Info("story started",
		zap.String("session_id", sess.SessionID),
		zap.String("story", name),
		zap.Int("max_choices", maxChoices))

	turn := newTurn(node, maxChoices)
	turn.SessionID = sess.SessionID
	return turn, nil
}

// Continue applies the player's choice to a session and returns the next node.
// Nothing is persisted unless generation succeeds.
func (s *Service) Continue(ctx context.Context, storyName, sessionID, choiceText string) (turn *story.Turn, err error) {
	defer func() {
		switch {
		case err != nil:
			metrics.Continuations.WithLabelValues(story.KindOf(err)).Inc()
		case turn.ChoicesRemaining == 0:
			metrics.Continuations.WithLabelValues("completed").Inc()
		default:
			metrics.Continuations.WithLabelValues("advanced").Inc()
		}
	}()

	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", story.ErrValidation)
	}
	if strings.TrimSpace(choiceText) == "" {
		return nil, fmt.Errorf("%w: choice_text is required", story.ErrValidation)
	}

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sess, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %q not found", story.ErrNotFound, sessionID)
	}
	if sess.StoryName != storyName {
		return nil, fmt.Errorf("%w: session %q belongs to story %q, not %q",
			story.ErrConflict, sessionID, sess.StoryName, storyName)
	}
	if sess.Terminal() {
		return nil, fmt.Errorf("%w: session %q used all %d choices",
			story.ErrTerminalState, sessionID, sess.MaxChoices)
	}

	reference, err := s.catalog.Lookup(sess.StoryName)
	if err != nil {
		return nil, err
	}

	// the prompt counts the choice being submitted
	made := sess.ChoicesMade + 1
	raw, err := s.generator.Generate(ctx, s.prompts.Continue(prompt.ContinueInput{
		Reference:   reference,
		StoryName:   sess.StoryName,
		Choice:      choiceText,
		History:     sess.History,
		ChoicesMade: made,
		MaxChoices:  sess.MaxChoices,
	}))
	if err != nil {
		s.logger.Error("continue generation failed",
			zap.String("session_id", sessionID),
			zap.Int("step", made),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", story.ErrGeneration, err)
	}
	node := s.interpret(raw)

	now := s.now().UTC()
	next := sess.Clone()
	next.History = append(next.History, story.HistoryEntry{
		NodeText:   sess.CurrentNode.Text,
		ChoiceText: choiceText,
		Mood:       moodOrNeutral(sess.CurrentNode.Mood),
		Timestamp:  now,
	})
	next.ChoicesMade = made
	remaining := next.ChoicesRemaining()
	// the stored node and the returned turn agree on the ending
	if remaining == 0 {
		node.Choices = []string{}
	}
	next.CurrentNode = node
	next.UpdatedAt = now

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}

	if remaining == 0 {
		metrics.SessionsCompleted.WithLabelValues(strings.ToLower(next.StoryName)).Inc()
		s.logger.Info("story completed",
			zap.String("session_id", sessionID),
			zap.Int("choices_made", made),
			zap.Bool("similarity_reported", node.StorySimilarity != nil))
	} else {
		s.logger.Info("story continued",
			zap.String("session_id", sessionID),
			zap.Int("choices_made", made),
			zap.Int("choices_remaining", remaining))
	}

	return newTurn(node, remaining), nil
}

// Get returns a copy of the stored session.
func (s *Service) Get(ctx context.Context, sessionID string) (*story.Session, error) {
	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sess, ok := sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %q not found", story.ErrNotFound, sessionID)
	}
	if sess.History == nil {
		sess.History = []story.HistoryEntry{}
	}
	if sess.CurrentNode.Choices == nil {
		sess.CurrentNode.Choices = []string{}
	}
	return &sess, nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := sessions[sessionID]; !ok {
		return fmt.Errorf("%w: session %q not found", story.ErrNotFound, sessionID)
	}
	delete(sessions, sessionID)
	if err := s.save(ctx, sessions); err != nil {
		return err
	}

	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) interpret(raw string) story.NarrativeNode {
	res := narrative.Parse(raw)
	metrics.InterpreterStrategy.WithLabelValues(string(res.Strategy)).Inc()
	if res.Strategy == narrative.StrategyFallback {
		s.logger.Warn("generator reply had no recognizable fields, using raw text", zap.Int("length", len(raw)))
	}
	return res.Node
}

// persist reloads the mapping right before writing so sessions changed by other
// requests during generation are kept.
func (s *Service) persist(ctx context.Context, sess story.Session) error {
	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	sessions[sess.SessionID] = sess
	return s.save(ctx, sessions)
}

func (s *Service) load(ctx context.Context) (map[string]story.Session, error) {
	sessions, err := s.store.LoadAll(ctx)
	if err != nil {
		s.logger.Error("load sessions failed", zap.Error(err))
		return nil, storageError(err)
	}
	if sessions == nil {
		sessions = map[string]story.Session{}
	}
	return sessions, nil
}

func (s *Service) save(ctx context.Context, sessions map[string]story.Session) error {
	if err := s.store.SaveAll(ctx, sessions); err != nil {
		s.logger.Error("save sessions failed", zap.Error(err))
		return storageError(err)
	}
	return nil
}

func storageError(err error) error {
	if errors.Is(err, story.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %v", story.ErrStorage, err)
}

func newTurn(node story.NarrativeNode, remaining int) *story.Turn {
	if node.Choices == nil {
		node.Choices = []string{}
	}
	node.Mood = moodOrNeutral(node.Mood)
	return &story.Turn{NarrativeNode: node, ChoicesRemaining: remaining}
}

func moodOrNeutral(mood string) string {
	if strings.TrimSpace(mood) == "" {
		return story.MoodNeutral
	}
	return mood
}
