package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/oauthdance/dance"
)

func TestWriteToken(t *testing.T) {
	token := &dance.AccessToken{Token: "at1", Secret: "s2"}
	tests := []struct {
		format string
		want   string
	}{
		{"yaml", "token: at1\nsecret: s2\n"},
		{"json", "{\n  \"token\": \"at1\",\n  \"secret\": \"s2\"\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeToken(&buf, tt.format, token))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	assert.Error(t, writeToken(&bytes.Buffer{}, "xml", token))
}
