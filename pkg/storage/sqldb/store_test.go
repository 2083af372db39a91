package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindDollar(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2 LIMIT $3",
		RebindDollar("SELECT * FROM t WHERE a = ? AND b = ? LIMIT ?"))
	assert.Equal(t, "SELECT 1", RebindDollar("SELECT 1"))
}

func TestWhere(t *testing.T) {
	assert.Equal(t, "", where(nil))
	assert.Equal(t, "WHERE a = ? AND b = ?", where([]string{"a = ?", "b = ?"}))
}

func TestVectorCodec(t *testing.T) {
	s, err := encodeVector(nil)
	assert.NoError(t, err)
	assert.Equal(t, emptyVector, s)

	s, err = encodeVector([]float64{0.5, 1})
	assert.NoError(t, err)

	v, err := decodeVector(s)
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, v)

	v, err = decodeVector(emptyVector)
	assert.NoError(t, err)
	assert.Nil(t, v)

	_, err = decodeVector("not json")
	assert.Error(t, err)
}

func TestDecodeMap(t *testing.T) {
	m, err := decodeMap("")
	assert.NoError(t, err)
	assert.Nil(t, m)

	m, err = decodeMap(`{"a":1}`)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), m["a"])
}
