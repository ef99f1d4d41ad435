package audio

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Factory creates an output from its initial volume and type-specific settings.
type Factory func(volume float64, settings map[string]any) (Output, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register("null", func(volume float64, settings map[string]any) (Output, error) {
		var s NullSettings
		if err := DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return NewNull(s, volume)
	})
}

// Register makes an output type available to New. Registering a name twice
// replaces the previous factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// ListRegistered returns the registered output types in sorted order.
func ListRegistered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an output of the given type.
func New(outputType string, volume float64, settings map[string]any) (Output, error) {
	registryMu.RLock()
	factory, ok := registry[outputType]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf("unsupported output type: %s", outputType)
	}

	if err := ValidateVolume(volume); err != nil {
		return nil, err
	}

	zlog.Debug().Msgf("creating audio output: type=%s volume=%.2f settings=%+v", outputType, volume, settings)
	out, err := factory(volume, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output (type %s)", outputType)
	}
	zlog.Info().Msgf("audio output ready: type=%s", outputType)
	return out, nil
}

// DecodeSettings decodes, defaults and validates a settings map into out.
// Output packages use it from their factories.
func DecodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
