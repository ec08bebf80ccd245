package genes

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		keys   []string
		row    int
		method Method
	}{
		{"exact case-insensitive", "hk2", []string{"TSPO", "HK2"}, 1, MethodExact},
		{"exact preferred over substring", "TSPO", []string{"TSPO|706", "tspo"}, 1, MethodExact},
		{"substring first in order", "BCL2L1", []string{"ACTB", "BCL2L1|598", "BCL2L1-AS1"}, 1, MethodSubstring},
		{"entrez string", "TSPO", []string{"3099", "706"}, 1, MethodEntrez},
		{"entrez float form", "HK2", []string{"598.0", "3099.0"}, 1, MethodEntrez},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, ok := Find(c.symbol, c.keys)
			require.True(t, ok)
			assert.Equal(t, c.row, h.Row)
			assert.Equal(t, c.method, h.Method)
		})
	}
}

func TestFindUnknown(t *testing.T) {
	_, ok := Find("NOTAGENE", []string{"HK2", "1"})
	assert.False(t, ok)
	_, ok = Find("", []string{"HK2"})
	assert.False(t, ok)
}

func TestExtractReportsUnresolved(t *testing.T) {
	m, err := dataset.NewExpressionMatrix([]string{"3099", "ACTB"}, []string{"S1"}, [][]float64{{1}, {2}})
	require.NoError(t, err)

	hits, err := Extract(m, []string{"HK2"})
	require.NoError(t, err)
	assert.Equal(t, "3099", hits[0].Key)

	_, err = Extract(m, []string{"HK2", "BCL2L1", "TSPO"})
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, []string{"BCL2L1", "TSPO"}, re.Unresolved)
	assert.Equal(t, map[string]string{"HK2": "3099"}, re.Resolved)
	assert.Equal(t, []string{"3099", "ACTB"}, re.SampleKeys)
	assert.Contains(t, err.Error(), "HK2=3099")
}

func TestEntrezID(t *testing.T) {
	id, ok := EntrezID("bcl2l1")
	require.True(t, ok)
	assert.Equal(t, 598, id)
	_, ok = EntrezID("XYZ")
	assert.False(t, ok)
}
