//go:build unit

package reflect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hellofresh/cqrs/internal/reflect"
)

type namedPayload struct{}

func TestFullTypeNameOf(t *testing.T) {
	testCases := []struct {
		title        string
		expectedName string
		obj          interface{}
	}{
		{
			"named struct",
			"github.com/hellofresh/cqrs/internal/reflect_test.namedPayload",
			namedPayload{},
		},
		{
			"pointer to named struct",
			"github.com/hellofresh/cqrs/internal/reflect_test.namedPayload",
			&namedPayload{},
		},
		{
			"standard library type",
			"time.Time",
			time.Time{},
		},
		{
			"string",
			"string",
			"test",
		},
		{
			"map",
			"map[string]interface {}",
			map[string]interface{}{},
		},
		{
			"nil",
			"nil",
			nil,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.title, func(t *testing.T) {
			name := reflect.FullTypeNameOf(testCase.obj)

			assert.Equal(t, testCase.expectedName, name)
		})
	}
}
