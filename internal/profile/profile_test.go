package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		wantErr bool
	}{
		{"postgres with dsn", &Profile{Driver: "postgres", DSN: "postgresql://localhost/glow"}, false},
		{"postgres without dsn", &Profile{Driver: "postgres"}, true},
		{"sqlite derives dsn", &Profile{Driver: "sqlite", Data: t.TempDir()}, false},
		{"unknown driver", &Profile{Driver: "mysql", DSN: "x"}, true},
		{"empty driver", &Profile{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	data := t.TempDir()
	p := &Profile{Driver: "sqlite", Data: data, Mode: "weird"}

	require.NoError(t, p.Validate())
	assert.Equal(t, "dev", p.Mode, "unknown mode falls back to dev")
	assert.Equal(t, filepath.Join(data, "glowmatch_dev.db"), p.DSN)
	assert.Equal(t, 512, p.EmbedDimensions)
}

func TestIsDev(t *testing.T) {
	assert.True(t, (&Profile{Mode: "dev"}).IsDev())
	assert.False(t, (&Profile{Mode: "prod"}).IsDev())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GLOWMATCH_EMBED_MODEL", "clip-vit-base-patch32")
	t.Setenv("GLOWMATCH_EMBED_DIMENSIONS", "512")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "clip-vit-base-patch32", p.EmbedModel)
	assert.Equal(t, 512, p.EmbedDimensions)
}
