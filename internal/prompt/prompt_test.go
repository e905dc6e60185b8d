package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
)

// scripted answers questions in order.
func scripted(t *testing.T, answers ...string) AskOneFunc {
	t.Helper()

	return func(_ survey.Prompt, response any, _ ...survey.AskOpt) error {
		require.NotEmpty(t, answers, "unexpected question")

		target, ok := response.(*string)
		require.True(t, ok)

		*target = answers[0]
		answers = answers[1:]

		return nil
	}
}

// TestPrompter_Version trims the answer.
func TestPrompter_Version(t *testing.T) {
	t.Parallel()

	id, err := New(scripted(t, " abc123 ")).Version([]string{"abc123", "def456"}).Provide(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc123", id)
}

// TestPrompter_Interrupted reports the interruption.
func TestPrompter_Interrupted(t *testing.T) {
	t.Parallel()

	interrupted := func(survey.Prompt, any, ...survey.AskOpt) error {
		return terminal.InterruptErr
	}

	_, err := New(interrupted).Version(nil).Provide(context.Background())
	require.ErrorIs(t, err, terminal.InterruptErr)

	_, err = New(interrupted).Password("dev", "target")()
	require.ErrorIs(t, err, terminal.InterruptErr)
}

// TestPrompter_Target asks user then host.
func TestPrompter_Target(t *testing.T) {
	t.Parallel()

	user, host, err := New(scripted(t, "dev", "target.internal ")).Target("root", "")
	require.NoError(t, err)
	require.Equal(t, "dev", user)
	require.Equal(t, "target.internal", host)

	password, err := New(scripted(t, "secret")).Password(user, host)()
	require.NoError(t, err)
	require.Equal(t, "secret", password)
}

// TestValidateVersion rejects identifiers unusable as directory names.
func TestValidateVersion(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateVersion("abc123"))
	require.ErrorIs(t, validateVersion("../etc"), artifact.ErrInvalidVersion)
	require.True(t, errors.Is(validateVersion(42), errNotAString))
	require.Equal(t, []string{"abc", "abd"}, withPrefix([]string{"abc", "abd", "xyz"}, "ab"))
}
