package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

const (
	addressLen   = 32
	signatureLen = 64
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared instance with the wallet rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("solana_address", func(fl validator.FieldLevel) bool {
			return IsAddress(fl.Field().String())
		})
		_ = v.RegisterValidation("solana_signature", func(fl validator.FieldLevel) bool {
			return IsSignature(fl.Field().String())
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if amount, ok := field.Interface().(decimal.Decimal); ok {
				return amount.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		instance = v
	})
	return instance
}

func IsAddress(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == addressLen
}

func IsSignature(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == signatureLen
}

// Struct validates v and flattens the first failure into a readable message.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid field %s: failed %s", fe.Field(), fe.Tag())
	}
	return err
}
