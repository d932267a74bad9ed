package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampSearchLimit(t *testing.T) {
	assert.Equal(t, searchLimitDefault, clampSearchLimit(0))
	assert.Equal(t, searchLimitDefault, clampSearchLimit(-5))
	assert.Equal(t, int64(1), clampSearchLimit(1))
	assert.Equal(t, int64(50), clampSearchLimit(50))
	assert.Equal(t, searchLimitMax, clampSearchLimit(51))
	assert.Equal(t, searchLimitMax, clampSearchLimit(10000))
}
