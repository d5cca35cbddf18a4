package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oraclemesh/oraclecore/types"
)

func TestTTLForCategory_KnownCategories(t *testing.T) {
	assert.Equal(t, 60*time.Second, TTLForCategory(types.CategoryPrice))
	assert.Equal(t, 10*time.Minute, TTLForCategory(types.CategoryWeather))
	assert.Equal(t, time.Hour, TTLForCategory(types.CategoryEconomic))
}

func TestTTLForCategory_RandomIsNeverCached(t *testing.T) {
	assert.Equal(t, time.Duration(0), TTLForCategory(types.CategoryRandom))
}

func TestTTLForCategory_UnknownFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultTTL, TTLForCategory(types.DataCategory("unrecognized")))
}
