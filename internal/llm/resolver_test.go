package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeClient) Close() error { return nil }

func TestResolveCapacity(t *testing.T) {
	fake := &fakeClient{response: `{"gallons": 12500, "reasoning": "25 barrels of 500 gallons"}`}
	resolver := NewCapacityResolver(fake)

	gallons, ok, err := resolver.ResolveCapacity(context.Background(), "25 tanques de 500", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12500.0, gallons)

	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "25 tanques de 500")
}

func TestResolveCapacityNull(t *testing.T) {
	fake := &fakeClient{response: `{"gallons": null, "reasoning": "describes a building, not a tank"}`}
	resolver := NewCapacityResolver(fake)

	_, ok, err := resolver.ResolveCapacity(context.Background(), "warehouse annex", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveCapacityEmptyInputSkipsModel(t *testing.T) {
	fake := &fakeClient{response: `{"gallons": 1}`}
	resolver := NewCapacityResolver(fake)

	_, ok, err := resolver.ResolveCapacity(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, fake.prompts)
}

func TestResolveCapacityImplausible(t *testing.T) {
	fake := &fakeClient{response: `{"gallons": 50000000, "reasoning": "?"}`}
	resolver := NewCapacityResolver(fake)

	_, ok, err := resolver.ResolveCapacity(context.Background(), "huge", "")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestResolveCapacityClientError(t *testing.T) {
	fake := &fakeClient{err: errors.New("quota exceeded")}
	resolver := NewCapacityResolver(fake)

	_, _, err := resolver.ResolveCapacity(context.Background(), "5000", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock(`{"a":1}`))
}
