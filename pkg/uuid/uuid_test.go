// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	googleuuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectflow/projectflow/pkg/uuid"
)

func TestNew_IsVersion7AndOrdered(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	parsed, err := googleuuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, googleuuid.Version(7), parsed.Version())
	assert.True(t, uuid.IsValid(first))
	assert.LessOrEqual(t, first[:13], second[:13], "the time prefix never goes backwards")
}

func TestIsValid(t *testing.T) {
	assert.False(t, uuid.IsValid(""))
	assert.False(t, uuid.IsValid("missing"))
	assert.False(t, uuid.IsValid("urn:uuid:0190f0e2-7c1a-7000-8000-000000000000"))
	assert.True(t, uuid.IsValid("0190f0e2-7c1a-7000-8000-000000000000"))
}
