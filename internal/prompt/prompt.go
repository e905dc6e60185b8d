package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/service/detector"
)

// AskOneFunc matches survey.AskOne.
type AskOneFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// Prompter asks questions on the terminal.
type Prompter struct {
	askOne AskOneFunc
}

// New returns a Prompter. A nil askOne uses survey.AskOne.
func New(askOne AskOneFunc) *Prompter {
	if askOne == nil {
		askOne = survey.AskOne
	}

	return &Prompter{askOne: askOne}
}

var errNotAString = errors.New("answer is not a string")

// Version returns a provider asking for the version identifier. available
// is offered as suggestions.
func (p *Prompter) Version(available []string) detector.Provider {
	return detector.ProviderFunc(func(context.Context) (string, error) {
		var id string

		help := "The commit identifier printed on the second line of `code --version`."
		if len(available) > 0 {
			help += " Synced: " + strings.Join(available, ", ")
		}

		err := p.askOne(&survey.Input{
			Message: "VS Code version to inject:",
			Help:    help,
			Suggest: func(prefix string) []string { return withPrefix(available, prefix) },
		}, &id, survey.WithValidator(survey.Required), survey.WithValidator(validateVersion))
		if err != nil {
			return "", fmt.Errorf("ask version: %w", err)
		}

		return strings.TrimSpace(id), nil
	})
}

// Target asks for the remote user and host, offering the given values as defaults.
func (p *Prompter) Target(user, host string) (string, string, error) {
	if err := p.askOne(&survey.Input{
		Message: "Remote user:",
		Default: user,
	}, &user, survey.WithValidator(survey.Required)); err != nil {
		return "", "", fmt.Errorf("ask user: %w", err)
	}

	if err := p.askOne(&survey.Input{
		Message: "Remote host:",
		Default: host,
	}, &host, survey.WithValidator(survey.Required)); err != nil {
		return "", "", fmt.Errorf("ask host: %w", err)
	}

	return strings.TrimSpace(user), strings.TrimSpace(host), nil
}

// Password returns a callback asking for the SSH password of user@host.
func (p *Prompter) Password(user, host string) func() (string, error) {
	return func() (string, error) {
		var password string

		if err := p.askOne(&survey.Password{
			Message: fmt.Sprintf("Password for %s@%s:", user, host),
		}, &password); err != nil {
			return "", fmt.Errorf("ask password: %w", err)
		}

		return password, nil
	}
}

func validateVersion(answer any) error {
	id, ok := answer.(string)
	if !ok {
		return errNotAString
	}

	return artifact.ValidateVersion(strings.TrimSpace(id))
}

func withPrefix(values []string, prefix string) []string {
	var matched []string

	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matched = append(matched, v)
		}
	}

	return matched
}
