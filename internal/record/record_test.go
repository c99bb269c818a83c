package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragg/internal/record"
)

func TestParseValid(t *testing.T) {
	obs, err := record.Parse([]byte(`{"id":"IDS60901","name":"Adelaide","air_temp":13.3}`))
	require.NoError(t, err)

	id, ok := obs.ID()
	require.True(t, ok)
	assert.Equal(t, "IDS60901", id)
	assert.Equal(t, "Adelaide", obs["name"])
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := record.Parse([]byte(`{not json`))
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrMalformed)
}

func TestParseRejectsNestedValues(t *testing.T) {
	_, err := record.Parse([]byte(`{"id":"x","nested":{"a":1}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrMalformed)
}

func TestIDMissingOrEmpty(t *testing.T) {
	cases := []string{
		`{"name":"Adelaide"}`,
		`{"id":""}`,
		`{"id":123}`,
	}
	for _, body := range cases {
		obs, err := record.Parse([]byte(body))
		require.NoError(t, err)
		_, ok := obs.ID()
		assert.False(t, ok, "body %q should not yield a valid id", body)
	}
}

func TestEqual(t *testing.T) {
	a, err := record.Parse([]byte(`{"id":"x","air_temp":13.3}`))
	require.NoError(t, err)
	b, err := record.Parse([]byte(`{"id":"x","air_temp":13.3}`))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := record.Parse([]byte(`{"id":"x","air_temp":13.4}`))
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}
