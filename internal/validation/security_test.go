package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"src/pages", false},
		{"dist", false},
		{"/srv/site/public", false},
		{"", true},
		{"   ", true},
		{"../outside", true},
		{"src/../../etc", true},
		{"dist;rm -rf /", true},
		{"$(whoami)", true},
		{"out|tee", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	roots := []string{"src/pages", "src/components", "public"}

	tests := []struct {
		dir     string
		wantErr bool
	}{
		{"dist", false},
		{"build/site", false},
		{".", true},
		{"/", true},
		{"src", true},
		{"src/pages", true},
		{"public", true},
		{"publicity", false},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			err := ValidateOutputDir(tt.dir, roots...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	parts, err := ValidateCommand("tailwindcss -i {input} -o {output} --minify", AllowedTools)
	require.NoError(t, err)
	assert.Equal(t, []string{"tailwindcss", "-i", "{input}", "-o", "{output}", "--minify"}, parts)

	parts, err = ValidateCommand("node_modules/.bin/esbuild", AllowedTools)
	require.NoError(t, err)
	assert.Equal(t, "node_modules/.bin/esbuild", parts[0])

	_, err = ValidateCommand("", AllowedTools)
	assert.Error(t, err)

	_, err = ValidateCommand("curl http://example.com", AllowedTools)
	assert.ErrorContains(t, err, "not allowed")

	_, err = ValidateCommand("esbuild; rm -rf /", AllowedTools)
	assert.Error(t, err)

	_, err = ValidateCommand("npx tailwindcss -i ../../secret", AllowedTools)
	assert.ErrorContains(t, err, "path traversal")
}
