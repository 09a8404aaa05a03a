//go:build unit

package metadata_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/cqrs/metadata"
)

func TestNew(t *testing.T) {
	asserts := assert.New(t)

	m1 := metadata.New()
	asserts.NotNil(m1)

	m2 := metadata.New()
	asserts.NotNil(m2)

	asserts.False(m1 == m2, "New instances should not be identical")
	asserts.Equal(0, m1.Len())
}

func TestMetadata_Set(t *testing.T) {
	asserts := assert.New(t)

	m := metadata.New()
	asserts.Nil(m.Value("key"))
	asserts.False(m.Has("key"))

	m.Set("key", "value").Set("second", time.Second)
	asserts.Equal("value", m.Value("key"))
	asserts.Equal(time.Second, m.Value("second"))

	m.Set("key", "override")
	asserts.Equal("override", m.Value("key"))
	asserts.Equal([]string{"key", "second"}, m.Keys())
}

func TestMetadata_Append(t *testing.T) {
	asserts := assert.New(t)

	m := metadata.New().
		Append("first").
		Set("name", "value").
		Append("second")

	asserts.Equal([]string{"0", "name", "1"}, m.Keys())
	asserts.Equal("first", m.Value("0"))
	asserts.Equal("second", m.Value("1"))

	m.Set("7", "seventh").Append("eighth")
	asserts.Equal("eighth", m.Value("8"))
}

func TestMetadata_Merge(t *testing.T) {
	t.Run("keyed entries overwrite", func(t *testing.T) {
		m := metadata.New().Set("a", 1).Set("b", 2)
		m.Merge(metadata.New().Set("b", 22).Set("c", 3))

		assert.Equal(t, map[string]interface{}{"a": 1, "b": 22, "c": 3}, m.AsMap())
		assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	})

	t.Run("positional entries append", func(t *testing.T) {
		m := metadata.New().Append("x").Set("a", 1)
		m.Merge(metadata.New().Append("y").Set("a", 2).Append("z"))

		assert.Equal(t, []string{"0", "a", "1", "2"}, m.Keys())
		assert.Equal(t, map[string]interface{}{"0": "x", "1": "y", "2": "z", "a": 2}, m.AsMap())
	})

	t.Run("nil", func(t *testing.T) {
		m := metadata.New().Set("a", 1)
		m.Merge(nil)

		assert.Equal(t, map[string]interface{}{"a": 1}, m.AsMap())
	})

	t.Run("zero value", func(t *testing.T) {
		var m metadata.Metadata
		m.Merge(metadata.New().Set("a", 1))

		assert.Equal(t, 1, m.Value("a"))
	})
}

func TestMetadata_Delete(t *testing.T) {
	m := metadata.New().Set("a", 1).Set("b", 2).Set("c", 3)
	m.Delete("b").Delete("unknown")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestMetadata_Copy(t *testing.T) {
	m := metadata.New().Set("a", 1).Append("x")
	c := m.Copy()
	c.Set("a", 2).Append("y")

	assert.Equal(t, map[string]interface{}{"a": 1, "0": "x"}, m.AsMap())
	assert.Equal(t, map[string]interface{}{"a": 2, "0": "x", "1": "y"}, c.AsMap())
}

func TestFromMap(t *testing.T) {
	m := metadata.FromMap(map[string]interface{}{
		"b":  "b",
		"10": "ten",
		"a":  "a",
		"2":  "two",
	})

	assert.Equal(t, []string{"2", "10", "a", "b"}, m.Keys())

	m.Append("eleven")
	assert.Equal(t, "eleven", m.Value("11"))
}

func TestIsPositional(t *testing.T) {
	testCases := map[string]bool{
		"0":   true,
		"12":  true,
		"":    false,
		"01":  false,
		"-1":  false,
		"+1":  false,
		"a1":  false,
		"1.5": false,
	}

	for key, expected := range testCases {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, expected, metadata.IsPositional(key))
		})
	}
}

func TestNilMetadata(t *testing.T) {
	var m *metadata.Metadata

	assert.Nil(t, m.Value("a"))
	assert.False(t, m.Has("a"))
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	assert.Equal(t, map[string]interface{}{}, m.AsMap())
	assert.Equal(t, 0, m.Copy().Len())
}

func TestMetadata_JSON(t *testing.T) {
	m := metadata.New().
		Set("z", "last letter").
		Set("a", 1.1).
		Append(true).
		Set("nested", map[string]interface{}{"key": "value"})

	const expected = `{"z":"last letter","a":1.1,"0":true,"nested":{"key":"value"}}`

	t.Run("encoding/json", func(t *testing.T) {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, expected, string(data))

		var decoded metadata.Metadata
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, m.Keys(), decoded.Keys())
		assert.Equal(t, m.AsMap(), decoded.AsMap())
	})

	t.Run("easyjson", func(t *testing.T) {
		data, err := easyjson.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, expected, string(data))

		var decoded metadata.Metadata
		require.NoError(t, easyjson.Unmarshal(data, &decoded))
		assert.Equal(t, m.Keys(), decoded.Keys())
		assert.Equal(t, m.AsMap(), decoded.AsMap())
	})

	t.Run("null", func(t *testing.T) {
		var decoded metadata.Metadata
		require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
		assert.Equal(t, 0, decoded.Len())
	})

	t.Run("not an object", func(t *testing.T) {
		var decoded metadata.Metadata
		assert.Error(t, json.Unmarshal([]byte(`["a"]`), &decoded))
	})
}
