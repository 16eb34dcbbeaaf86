package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/xsr/pkg/api"
)

func TestDocumentParsesTree(t *testing.T) {
	payload := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>News</title>
  <entry id="1"><title>First</title></entry>
  <entry id="2"><title>Second</title></entry>
</feed>`

	got, err := Document().Transform(payload)
	require.NoError(t, err)
	require.NotNil(t, got.Root)

	assert.Equal(t, "feed", got.Root.Name)
	assert.Equal(t, "http://www.w3.org/2005/Atom", got.Root.Space)
	assert.Equal(t, "News", got.Root.Child("title").Text)
	assert.Equal(t, payload, got.Text)

	entries := got.Root.Find("entry")
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[1].Attrs["id"])
	assert.Len(t, got.Root.Find("title"), 3)
}

func TestDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"mismatched tags", `<a><b></a>`},
		{"unclosed", `<a>`},
		{"empty", ``},
		{"two roots", `<a/><b/>`},
		{"not text", 42.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Document().Transform(tt.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &api.Error{Type: api.ErrorTypeDecodeFailure}))
		})
	}
}
