// Package validation checks requests and configuration before any work is
// done with them.
//
// Struct tags are checked with go-playground/validator:
//
//	type Config struct {
//	    Concurrency int `mapstructure:"concurrency" validate:"min=1,max=64"`
//	}
//	err := validation.Struct(cfg)
//
// Request-level rules that depend on several fields use the fluent Validator:
//
//	v := validation.New()
//	v.ExactlyOne("source", req.Source.Path != "", len(req.Source.Data) > 0)
//	v.OneOf("output_format", req.OutputFormat, []string{"text", "json", "srt"})
//	if err := v.Validate(); err != nil {
//	    return err
//	}
//
// Both return *errors.AppError with code INVALID_INPUT and the offending
// fields listed under the "fields" detail.
package validation
