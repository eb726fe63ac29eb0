package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_x\\y`, EscapeLike(`50% off_x\y`))
	assert.Equal(t, `%as\_ha%`, Contains("as_ha"))
	assert.Equal(t, `Para%`, Prefix("Para"))
}
