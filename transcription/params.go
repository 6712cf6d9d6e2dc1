package transcription

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeParams decodes a factory config map into out, a pointer to a
// struct with mapstructure tags. Values are weakly typed so YAML and
// environment input both work; durations accept strings such as "250ms"
// and string lists accept comma-separated values.
func DecodeParams(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create parameter decoder: %w", err)
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode model parameters: %w", err)
	}
	return nil
}
