package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/mirror"
	"github.com/nightforge/patchwright/internal/transport"
	"github.com/nightforge/patchwright/internal/update"
)

func TestDumpProducesParseableYAML(t *testing.T) {
	u := update.New(t.TempDir(), transport.New("test"), mirror.New(nil), &config.Config{}, nil, nil)

	data, err := Dump(u)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &out))
	require.Equal(t, "UNKNOWN", out["version_state"])
}
