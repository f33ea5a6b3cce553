package phone

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "KG"

var ErrInvalidPhone = errors.New("invalid phone number")

// Normalize parses raw in DefaultRegion and returns it in E.164 form.
func Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
