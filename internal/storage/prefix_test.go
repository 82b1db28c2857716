package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", ""},
		{"articles", "articles/"},
		{"articles/", "articles/"},
		{"corpus/articles", "corpus/articles/"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, DirPrefix(tt.prefix))
		})
	}
}
