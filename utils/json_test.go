package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalOrderedObjectNullsUnencodableValue(t *testing.T) {
	var skipped []string
	data, err := MarshalOrderedObject(
		[]string{"b", "nan", "a"},
		map[string]interface{}{"a": 1, "b": "two", "nan": math.Inf(1)},
		func(key string, err error) {
			assert.Error(t, err)
			skipped = append(skipped, key)
		})

	require.NoError(t, err)
	assert.Equal(t, `{"b":"two","nan":null,"a":1}`, string(data))
	assert.Equal(t, []string{"nan"}, skipped)
}

func TestEachObjectFieldKeepsDocumentOrder(t *testing.T) {
	var keys []string
	err := EachObjectField([]byte(`{"z":1,"a":null,"m":[1]}`), func(key string, value interface{}) {
		keys = append(keys, key)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, keys)
	assert.Error(t, EachObjectField([]byte(`[1,2]`), func(string, interface{}) {}))
}
