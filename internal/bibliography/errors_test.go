package bibliography

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegenError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RegenError
		want string
	}{
		{
			name: "wrapped engine error",
			err:  &RegenError{Kind: ErrKindEngineFailure, Err: errors.New("boom")},
			want: "ENGINE_FAILURE: boom",
		},
		{
			name: "formatting messages",
			err:  &RegenError{Kind: ErrKindFormattingErrors, Messages: []string{"a", "b"}},
			want: "FORMATTING_ERRORS: a; b",
		},
		{
			name: "kind only",
			err:  &RegenError{Kind: ErrKindNoBibliography},
			want: "NO_BIBLIOGRAPHY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsEngineFailure(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("regenerate: %w", &RegenError{Kind: ErrKindEngineFailure, Err: cause})

	assert.True(t, IsEngineFailure(err))
	assert.False(t, IsFormattingError(err))
	assert.ErrorIs(t, err, cause)

	assert.False(t, IsEngineFailure(&RegenError{Kind: ErrKindNoBibliography}))
	assert.False(t, IsEngineFailure(cause))
	assert.True(t, IsFormattingError(&RegenError{Kind: ErrKindFormattingErrors}))
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Op: "MakeBibliography", Value: "kaboom"}
	assert.Equal(t, "MakeBibliography panicked: kaboom", err.Error())
}

func TestSentinelTable(t *testing.T) {
	table := DefaultSentinels()
	assert.Equal(t, "", table.Map("[NO_PRINTED_FORM]"))
	assert.Equal(t, "[1]", table.Map("[1]"))

	custom := table.Clone()
	custom["[NO_PRINTED_FORM]"] = "[?]"
	assert.Equal(t, "[?]", custom.Map("[NO_PRINTED_FORM]"))
	assert.Equal(t, "", table.Map("[NO_PRINTED_FORM]"), "clone is independent")
}
