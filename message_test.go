//go:build unit

package cqrs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/metadata"
)

func TestGenerateUUID(t *testing.T) {
	asserts := assert.New(t)

	firstID := cqrs.GenerateUUID()
	asserts.False(cqrs.IsUUIDEmpty(firstID), "A cqrs.UUID should not be zero")

	secondID := cqrs.GenerateUUID()
	asserts.False(cqrs.IsUUIDEmpty(secondID), "A cqrs.UUID should not be zero")

	asserts.NotEqual(firstID, secondID, "Expected GenerateUUID() to return a different ID")
}

func TestParseUUID(t *testing.T) {
	id, err := cqrs.ParseUUID("068332f0-9465-47c4-a7c2-402e9ccabfdc")

	require.NoError(t, err)
	assert.Equal(t, "068332f0-9465-47c4-a7c2-402e9ccabfdc", id.String())
	assert.Equal(t, newAuthorPayload().UUID, id)

	_, err = cqrs.ParseUUID("068332f0")
	assert.Error(t, err)
}

func TestNewCommand(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		before := time.Now().UTC()
		cmd, err := cqrs.NewCommand("author.create", newAuthorPayload())
		require.NoError(t, err)

		asserts := assert.New(t)
		asserts.False(cqrs.IsUUIDEmpty(cmd.UUID()))
		asserts.Equal(cqrs.CommandType, cmd.Type())
		asserts.Equal("author.create", cmd.Name())
		asserts.False(cmd.CreatedAt().Before(before.Truncate(time.Second)))
		asserts.Equal(time.UTC, cmd.CreatedAt().Location())
		asserts.Equal(0, cmd.Metadata().Len())
		asserts.Equal(newAuthorPayload(), cmd.Payload())
	})

	t.Run("options", func(t *testing.T) {
		createdAt := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
		cmd, err := cqrs.NewCommand(
			"author.create",
			newAuthorPayload(),
			cqrs.WithUUIDString("5b0f3cf6-b6b8-4b53-9d4a-4a3b0e9e1c2d"),
			cqrs.WithCreatedAt(createdAt),
			cqrs.WithMetadata(metadata.New().Set("user", "admin")),
		)
		require.NoError(t, err)

		assert.Equal(t, "5b0f3cf6-b6b8-4b53-9d4a-4a3b0e9e1c2d", cmd.UUID().String())
		assert.Equal(t, createdAt, cmd.CreatedAt())
		assert.Equal(t, "admin", cmd.Metadata().Value("user"))
	})

	testCases := []struct {
		title   string
		name    string
		payload cqrs.Serializable
		opts    []cqrs.MessageOption
	}{
		{"empty name", "", newAuthorPayload(), nil},
		{"nil payload", "author.create", nil, nil},
		{"invalid uuid", "author.create", newAuthorPayload(), []cqrs.MessageOption{cqrs.WithUUIDString("invalid")}},
		{"empty uuid", "author.create", newAuthorPayload(), []cqrs.MessageOption{cqrs.WithUUID(cqrs.UUID{})}},
		{"zero createdAt", "author.create", newAuthorPayload(), []cqrs.MessageOption{cqrs.WithCreatedAt(time.Time{})}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.title, func(t *testing.T) {
			cmd, err := cqrs.NewCommand(testCase.name, testCase.payload, testCase.opts...)

			assert.Nil(t, cmd)
			assert.IsType(t, cqrs.ValidationError(""), err)
		})
	}
}

func TestMessage_AddMetadata(t *testing.T) {
	t.Run("keyed entries overwrite", func(t *testing.T) {
		cmd, err := cqrs.NewCommand("author.create", newAuthorPayload(), cqrs.WithMetadata(metadata.New().Set("a", 1).Set("b", 2)))
		require.NoError(t, err)

		cmd.AddMetadata(metadata.New().Set("b", 22).Set("c", 3))

		assert.Equal(t, map[string]interface{}{"a": 1, "b": 22, "c": 3}, cmd.Metadata().AsMap())
	})

	t.Run("positional entries append", func(t *testing.T) {
		cmd, err := cqrs.NewCommand("author.create", newAuthorPayload())
		require.NoError(t, err)

		cmd.AddMetadata(metadata.New().Append("first"))
		cmd.AddMetadata(metadata.New().Append("second").Set("key", "value"))

		md := cmd.Metadata()
		assert.Equal(t, []string{"0", "1", "key"}, md.Keys())
		assert.Equal(t, "first", md.Value("0"))
		assert.Equal(t, "second", md.Value("1"))
	})

	t.Run("returned metadata is a copy", func(t *testing.T) {
		cmd, err := cqrs.NewCommand("author.create", newAuthorPayload())
		require.NoError(t, err)

		cmd.Metadata().Set("key", "value")

		assert.False(t, cmd.Metadata().Has("key"))
	})
}

func TestCommand_Serialize(t *testing.T) {
	createdAt := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
	cmd, err := cqrs.NewCommand(
		"author.create",
		newAuthorPayload(),
		cqrs.WithUUIDString("5b0f3cf6-b6b8-4b53-9d4a-4a3b0e9e1c2d"),
		cqrs.WithCreatedAt(createdAt),
	)
	require.NoError(t, err)

	data, err := cmd.Serialize()
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"uuid":      "5b0f3cf6-b6b8-4b53-9d4a-4a3b0e9e1c2d",
		"type":      "command",
		"name":      "author.create",
		"createdAt": "2019-01-02T03:04:05Z",
		"metadata":  map[string]interface{}{},
		"payload": map[string]interface{}{
			"uuid":      "068332f0-9465-47c4-a7c2-402e9ccabfdc",
			"firstName": "author_first_name",
			"lastName":  "author_last_name",
		},
	}, data)
}
