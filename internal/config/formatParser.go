package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/photomat/photomat/internal/encoder"
)

// StringToImageFormat is a DecodeHookFunc that converts a string to
// encoder.Format, rejecting unsupported formats at load time rather than
// first capture.
func StringToImageFormat() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(encoder.Format("")) {
			return data, nil
		}
		s := strings.ToLower(strings.TrimSpace(data.(string)))
		format := encoder.Format(s)
		if !format.Valid() {
			return nil, fmt.Errorf("unsupported image format %q (want jpeg or webp)", s)
		}
		return format, nil
	}
}
