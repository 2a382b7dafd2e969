// internal/validator/validator.go
package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var nonSpace = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New()

	// в ошибках поля называются так же, как в JSON
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Регистрируем валидацию: строка не пустая и не только пробелы
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonSpace.MatchString(fl.Field().String())
	})
}

