package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoalescesDuplicatesAcrossLists(t *testing.T) {
	data := []byte(`{
		"Producers": [{"addr": "relay1.example.com", "port": 3001}],
		"AccessPoints": [
			{"address": "relay1.example.com", "port": 3001},
			{"host": "relay2.example.com", "port": 3001}
		]
	}`)

	eps, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "relay1.example.com:3001", eps[0].String())
	assert.Equal(t, "relay2.example.com:3001", eps[1].String())
}

func TestParseSkipsIncompleteEndpoints(t *testing.T) {
	data := []byte(`{"Producers": [{"addr": "relay1.example.com"}, {"port": 3001}]}`)
	eps, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, eps)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	require.Error(t, err)
}
