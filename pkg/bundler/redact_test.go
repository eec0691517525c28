package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactString(t *testing.T) {
	r := newRedactor()
	tests := []struct {
		in   string
		want string
	}{
		{"/lib/python3.11/token.py", "/lib/python3.11/token.py"},
		{"default channel", "default channel"},
		{"https://files.example.org/a.whl", "https://files.example.org/a.whl"},
		{"https://user:pw@files.example.org/a.whl", "https://REDACTED@files.example.org/a.whl"},
		{"https://files.example.org/a.whl?sig=abc&v=1", "https://files.example.org/a.whl?sig=REDACTED&v=1"},
		{"password = hunter2", "password=REDACTED"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.RedactString(tt.in), tt.in)
	}
}

func TestRedactKeepsModuleNames(t *testing.T) {
	out, err := newRedactor().Redact([]byte(`{"sys_modules": {"token": "/lib/token.py", "secrets": "/lib/secrets.py"}, "password": "x"}`))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"token": "/lib/token.py"`)
	assert.Contains(t, s, `"secrets": "/lib/secrets.py"`)
	assert.Contains(t, s, `"password": "[REDACTED]"`)
}
