// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := NewStageError(KindRetrievalFailure, "fetch PMC123", context.DeadlineExceeded)
	wrapped := fmt.Errorf("article chain: %w", base)

	assert.Equal(t, KindRetrievalFailure, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "fetch PMC123: context deadline exceeded", base.Error())
}
