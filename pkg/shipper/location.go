package shipper

import (
	"fmt"
	"strings"
	"unicode"
)

// AddressType classifies a location for carrier billing.
type AddressType string

const (
	AddressUnknown     AddressType = ""
	AddressResidential AddressType = "residential"
	AddressCommercial  AddressType = "commercial"
	AddressPOBox       AddressType = "po_box"
)

// ParseAddressType validates s case-insensitively. A blank string parses as
// AddressUnknown.
func ParseAddressType(s string) (AddressType, error) {
	switch t := AddressType(strings.ToLower(strings.TrimSpace(s))); t {
	case AddressUnknown, AddressResidential, AddressCommercial, AddressPOBox:
		return t, nil
	default:
		return AddressUnknown, fmt.Errorf("%w: %q", ErrInvalidAddressType, s)
	}
}

// Location is a normalized postal address. Values are copied, never mutated;
// the address type can only change through WithAddressType.
type Location struct {
	CountryCode   string // ISO 3166-1 alpha-2
	PostalCode    string
	Province      string
	City          string
	Address1      string
	Address2      string
	Address3      string
	Phone         string
	Fax           string
	Email         string
	Name          string
	Company       string
	AttentionName string
	TaxID         string

	addressType AddressType
}

// AddressType returns the declared address type.
func (l Location) AddressType() AddressType {
	return l.addressType
}

// WithAddressType returns a copy of l with the given address type.
func (l Location) WithAddressType(t AddressType) (Location, error) {
	parsed, err := ParseAddressType(string(t))
	if err != nil {
		return l, err
	}
	l.addressType = parsed
	return l, nil
}

func (l Location) Residential() bool { return l.addressType == AddressResidential }
func (l Location) Commercial() bool  { return l.addressType == AddressCommercial }
func (l Location) POBox() bool       { return l.addressType == AddressPOBox }

// Zip5 returns the five-digit part of the postal code.
func (l Location) Zip5() string {
	zip5, _ := SplitPostalCode(l.PostalCode)
	return zip5
}

// Zip4 returns the plus-four part of the postal code, or nil.
func (l Location) Zip4() *string {
	_, zip4 := SplitPostalCode(l.PostalCode)
	return zip4
}

// PhoneDigits returns the phone number with everything but digits removed.
func (l Location) PhoneDigits() string {
	return DigitsOnly(l.Phone)
}

// String renders the location on one line.
func (l Location) String() string {
	var chunks []string
	if s := joinNonBlank(" ", l.Name, l.Address1, l.Address2, l.Address3); s != "" {
		chunks = append(chunks, s)
	}
	if s := joinNonBlank(", ", l.City, l.Province, l.PostalCode); s != "" {
		chunks = append(chunks, s)
	}
	if l.CountryCode != "" {
		chunks = append(chunks, l.CountryCode)
	}
	return strings.Join(chunks, " ")
}

// SplitPostalCode splits a zip+4 code on its hyphen. Without a hyphen the
// whole code is the five-digit part and zip4 is nil.
func SplitPostalCode(code string) (zip5 string, zip4 *string) {
	code = strings.TrimSpace(code)
	before, after, found := strings.Cut(code, "-")
	if !found {
		return code, nil
	}
	return before, &after
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func joinNonBlank(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
