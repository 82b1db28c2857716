package service

import (
	"testing"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryLogEntry_Vector(t *testing.T) {
	out := &RetrievalOutput{
		Path: RetrievalPathVector,
		Matches: []domain.ScoredChunk{
			{Chunk: domain.Chunk{Ordinal: 0, Source: "builtin-1"}, Score: 0.9},
			{Chunk: domain.Chunk{Ordinal: 2, Source: "builtin-3"}, Score: 0.7},
		},
	}

	entry := NewQueryLogEntry("key-1", "mutual funds", 2, out, "build-1", 15)

	assert.Equal(t, "key-1", entry.ClientID)
	assert.Equal(t, RetrievalPathVector, entry.Path)
	assert.Equal(t, "build-1", entry.BuildID)
	require.Len(t, entry.Results, 2)
	assert.Equal(t, "builtin-3#2", entry.Results[1].ChunkID)
	assert.Equal(t, 0.7, entry.Results[1].Score)
}

func TestNewQueryLogEntry_KeywordDropsBuildID(t *testing.T) {
	out := &RetrievalOutput{Path: RetrievalPathKeyword, NoMatch: true, Context: NoMatchMessage}

	entry := NewQueryLogEntry("", "cryptocurrency", 2, out, "build-1", 3)

	assert.Empty(t, entry.BuildID)
	assert.True(t, entry.NoMatch)
	assert.Empty(t, entry.Results)
}
