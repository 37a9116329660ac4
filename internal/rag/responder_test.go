package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct{ system, prompt string }

type fakeLLM struct {
	calls   []call
	replies []string
	err     error
}

func (f *fakeLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls = append(f.calls, call{system, prompt})
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type fakeKB struct {
	ready   bool
	hits    []models.ScoredChunk
	err     error
	queries []string
	k       int
}

func (f *fakeKB) Ready() bool { return f.ready }
func (f *fakeKB) Search(_ context.Context, q string, k int) ([]models.ScoredChunk, error) {
	f.queries = append(f.queries, q)
	f.k = k
	return f.hits, f.err
}

func hit(source, content string) models.ScoredChunk {
	return models.ScoredChunk{Chunk: models.Chunk{Source: source, Content: content}, Score: 0.9}
}

func TestAnswerWithoutHistory(t *testing.T) {
	kb := &fakeKB{ready: true, hits: []models.ScoredChunk{hit("radio.pdf", "Output power is 30 dBm.")}}
	llm := &fakeLLM{replies: []string{"  The output power is 30 dBm (radio.pdf).  "}}
	r := NewResponder(llm, kb, 0, 5, nil, zap.NewNop())

	ans, err := r.AnswerWithSources(context.Background(), "What is the output power?", nil)
	require.NoError(t, err)
	assert.Equal(t, "The output power is 30 dBm (radio.pdf).", ans.Text)
	assert.Len(t, ans.Sources, 1)
	assert.Equal(t, 8, kb.k)
	assert.Equal(t, []string{"What is the output power?"}, kb.queries)

	require.Len(t, llm.calls, 1)
	assert.Equal(t, qaSystemPrompt, llm.calls[0].system)
	assert.Contains(t, llm.calls[0].prompt, "[Source: radio.pdf]\nOutput power is 30 dBm.")
	assert.True(t, strings.HasSuffix(llm.calls[0].prompt, "Question: What is the output power?"))
}

func TestFollowUpIsContextualized(t *testing.T) {
	kb := &fakeKB{ready: true}
	llm := &fakeLLM{replies: []string{"What is the antenna gain of the receiver?", "I don't know."}}
	r := NewResponder(llm, kb, 4, 2, nil, zap.NewNop())

	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "oldest question"},
		{Role: models.RoleAssistant, Content: "oldest answer"},
		{Role: models.RoleUser, Content: "Tell me about the receiver"},
		{Role: models.RoleAssistant, Content: "It is a dish."},
	}
	got := r.Answer(context.Background(), "and its gain?", history)
	assert.Equal(t, "I don't know.", got)

	assert.Equal(t, []string{"What is the antenna gain of the receiver?"}, kb.queries)
	require.Len(t, llm.calls, 2)
	assert.Equal(t, contextualizePrompt, llm.calls[0].system)
	assert.Contains(t, llm.calls[0].prompt, "User: Tell me about the receiver")
	assert.NotContains(t, llm.calls[0].prompt, "oldest")
	assert.Contains(t, llm.calls[1].prompt, "Question: and its gain?")
}

func TestNotInitialized(t *testing.T) {
	r := NewResponder(&fakeLLM{}, &fakeKB{}, 8, 5, nil, zap.NewNop())
	ans, err := r.AnswerWithSources(context.Background(), "q", nil)
	assert.Error(t, err)
	assert.Equal(t, MsgNotInitialized, ans.Text)
}

func TestServiceErrorsBecomeText(t *testing.T) {
	r := NewResponder(&fakeLLM{err: errors.New("503")}, &fakeKB{ready: true}, 8, 5, nil, zap.NewNop())
	assert.Equal(t, MsgServiceError, r.Answer(context.Background(), "q", nil))

	r = NewResponder(&fakeLLM{}, &fakeKB{ready: true, err: errors.New("embed down")}, 8, 5, nil, zap.NewNop())
	assert.Equal(t, MsgServiceError, r.Answer(context.Background(), "q", nil))
}

func TestEmptyRetrievalStillAsks(t *testing.T) {
	llm := &fakeLLM{replies: []string{"I don't know."}}
	r := NewResponder(llm, &fakeKB{ready: true}, 8, 5, nil, zap.NewNop())
	assert.Equal(t, "I don't know.", r.Answer(context.Background(), "unrelated", nil))
	assert.Len(t, llm.calls, 1)
}
