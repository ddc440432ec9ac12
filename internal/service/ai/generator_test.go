package ai

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/config"
)

func TestNewGeneratorWithoutCredentials(t *testing.T) {
	gen, err := NewGenerator(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI, OpenAIModel: "m"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, Configured(gen))

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewGeneratorOpenAI(t *testing.T) {
	gen, err := NewGenerator(context.Background(), config.AIConfig{
		Provider:     config.ProviderOpenAI,
		Timeout:      time.Second,
		OpenAIAPIKey: "key",
		OpenAIModel:  "m",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, Configured(gen))
	assert.IsType(t, &Instrumented{}, gen)
}

type fakeChatModel struct {
	reply    string
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.received = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func TestChainGeneratorRendersMessages(t *testing.T) {
	fake := &fakeChatModel{reply: "Text: Qirat gallops on."}

	gen, err := newChainGenerator(context.Background(), fake)
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), "continue {the} story")
	require.NoError(t, err)
	assert.Equal(t, "Text: Qirat gallops on.", text)

	require.Len(t, fake.received, 2)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Equal(t, storytellerSystemPrompt, fake.received[0].Content)
	assert.Equal(t, "continue {the} story", fake.received[1].Content)
}

func TestChainGeneratorEmptyReply(t *testing.T) {
	gen, err := newChainGenerator(context.Background(), &fakeChatModel{reply: "  "})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
