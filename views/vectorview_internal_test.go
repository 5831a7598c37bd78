package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBBoxParam(t *testing.T) {
	bbox, err := parseBBoxParam("1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, bbox)

	bbox, err = parseBBoxParam("")
	require.NoError(t, err)
	assert.Nil(t, bbox)

	_, err = parseBBoxParam("1,2,3")
	assert.Error(t, err)
}
