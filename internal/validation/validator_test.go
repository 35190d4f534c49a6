package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reelkeeperapp/reelkeeper-server/internal/errors"
	"github.com/reelkeeperapp/reelkeeper-server/internal/validation"
)

type testRequest struct {
	SourceRef string `json:"source_ref" validate:"required"`
	Title     string `json:"title" validate:"required,max=512"`
	SourceURL string `json:"source_url" validate:"omitempty,url"`
	Action    string `json:"action" validate:"required,oneof=use_match manual skip"`
	Duration  int64  `json:"duration_seconds" validate:"gte=0"`
}

func TestValidator_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{
		SourceRef: "/import/clip.mp4",
		Title:     "Clip",
		Action:    "manual",
	})
	assert.NoError(t, err)
}

func TestValidator_FieldErrors(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{
		SourceURL: "not a url",
		Action:    "discard",
		Duration:  -1,
	})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)

	// Field names come from the json tags.
	assert.Equal(t, "is required", details["source_ref"])
	assert.Equal(t, "is required", details["title"])
	assert.Equal(t, "must be a valid URL", details["source_url"])
	assert.Equal(t, "must be one of: use_match manual skip", details["action"])
	assert.Equal(t, "must be greater than or equal to 0", details["duration_seconds"])
}
