package template_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/fleetflow/fleetflow/internal/template"
)

func TestFromGo_YAMLTree(t *testing.T) {
	val, err := template.FromGo(map[string]any{
		"name":    "edge-1",
		"port":    22,
		"enabled": true,
		"tags":    []any{"core", 7},
	})
	require.NoError(t, err)
	require.True(t, val.Type().IsObjectType())
	require.Equal(t, cty.StringVal("edge-1"), val.GetAttr("name"))
	require.Equal(t, cty.True, val.GetAttr("enabled"))
}

func TestFromGo_UnsupportedType(t *testing.T) {
	_, err := template.FromGo(struct{ X int }{X: 1})
	require.Error(t, err)
}

func TestToGo_RoundTrip(t *testing.T) {
	in := map[string]any{
		"limit": int64(5),
		"ratio": 1.5,
		"nested": map[string]any{
			"seq": []any{"a", "b"},
		},
	}
	val, err := template.FromGo(in)
	require.NoError(t, err)
	require.Equal(t, in, template.ToGo(val))
}

func TestToGo_Null(t *testing.T) {
	require.Nil(t, template.ToGo(cty.NullVal(cty.String)))
}
