package shipper

import (
	"strings"
)

// Candidate keys per Location field, tried in order. The first present,
// non-blank value wins.
var (
	countryKeys    = []string{"country_code", "country"}
	postalKeys     = []string{"postal_code", "zip", "postal", "zipcode"}
	provinceKeys   = []string{"province_code", "state_code", "territory_code", "region_code", "province", "state", "territory", "region"}
	cityKeys       = []string{"city", "town"}
	address1Keys   = []string{"address1", "address", "street"}
	phoneKeys      = []string{"phone", "phone_number"}
	faxKeys        = []string{"fax", "fax_number"}
	companyKeys    = []string{"company", "company_name"}
	taxIDKeys      = []string{"tax_identification_number", "tax_id"}
	nameFieldKeys  = []string{"name", "company"}
	attentionKeys  = []string{"attention_name"}
	addressTypeKey = "address_type"
)

// LocationFrom normalizes a loosely keyed record (form values, decoded JSON,
// CSV rows) into a Location.
//
// The name is "first_name last_name" when either is present, then "name",
// then "company". When a company is present it becomes the name and the
// personal name moves to AttentionName unless one was given. An unrecognized address_type is
// dropped rather than rejected.
func LocationFrom(fields map[string]string) Location {
	loc := Location{
		CountryCode:   strings.ToUpper(pick(fields, countryKeys)),
		PostalCode:    pick(fields, postalKeys),
		Province:      pick(fields, provinceKeys),
		City:          pick(fields, cityKeys),
		Address1:      pick(fields, address1Keys),
		Address2:      pick(fields, []string{"address2"}),
		Address3:      pick(fields, []string{"address3"}),
		Phone:         pick(fields, phoneKeys),
		Fax:           pick(fields, faxKeys),
		Email:         pick(fields, []string{"email"}),
		Company:       pick(fields, companyKeys),
		AttentionName: pick(fields, attentionKeys),
		TaxID:         pick(fields, taxIDKeys),
	}

	loc.Name = strings.TrimSpace(fields["first_name"] + " " + fields["last_name"])
	if loc.Name == "" {
		loc.Name = pick(fields, nameFieldKeys)
	}

	if t, err := ParseAddressType(fields[addressTypeKey]); err == nil {
		loc.addressType = t
	}

	if loc.Company != "" {
		if loc.AttentionName == "" {
			loc.AttentionName = loc.Name
		}
		loc.Name = loc.Company
	}
	return loc
}

func pick(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}
