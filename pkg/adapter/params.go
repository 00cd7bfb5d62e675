package adapter

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeParams decodes Config.Params into an adapter specific struct tagged
// with `mapstructure`. Unknown keys are an error.
func DecodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid adapter params: %w", err)
	}
	return nil
}
