package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/oshokin/code-airgap/internal/logger"
)

// ErrNotDetected is returned when a provider has no identifier to offer.
var ErrNotDetected = errors.New("version not detected")

// Provider supplies the version identifier to inject.
type Provider interface {
	Provide(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Provide implements Provider.
func (f ProviderFunc) Provide(ctx context.Context) (string, error) {
	return f(ctx)
}

// Fixed returns a provider answering id. An empty id yields ErrNotDetected.
func Fixed(id string) Provider {
	id = strings.TrimSpace(id)

	return ProviderFunc(func(context.Context) (string, error) {
		if id == "" {
			return "", ErrNotDetected
		}

		return id, nil
	})
}

// Chain returns a provider that asks each provider in order and answers with
// the first identifier obtained.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		var result *multierror.Error

		for _, p := range providers {
			if p == nil {
				continue
			}

			id, err := p.Provide(ctx)
			if err == nil && id != "" {
				return id, nil
			}

			if err != nil {
				result = multierror.Append(result, err)

				if ctx.Err() != nil {
					break
				}
			}
		}

		if result == nil {
			return "", ErrNotDetected
		}

		return "", fmt.Errorf("%w: %w", ErrNotDetected, result)
	})
}

// Logged wraps p and logs which source produced the identifier.
func Logged(source string, p Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		id, err := p.Provide(ctx)
		if err != nil {
			logger.DebugKV(ctx, "Version provider gave up", "source", source, "error", err)

			return "", err
		}

		logger.InfoKV(ctx, "Version selected", "source", source, "version", id)

		return id, nil
	})
}
