package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullableFloat(t *testing.T) {
	assert.Nil(t, nullableFloat(0))
	assert.Equal(t, 55.5, nullableFloat(55.5))
}
