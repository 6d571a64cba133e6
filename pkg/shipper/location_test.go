package shipper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/pkg/shipper"
)

func TestSplitPostalCode(t *testing.T) {
	tests := []struct {
		code     string
		wantZip5 string
		wantZip4 *string
	}{
		{"10001-1234", "10001", strPtr("1234")},
		{"90210", "90210", nil},
		{"K1A 0B1", "K1A 0B1", nil},
		{"12345-", "12345", strPtr("")},
		{"", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			zip5, zip4 := shipper.SplitPostalCode(tt.code)
			assert.Equal(t, tt.wantZip5, zip5)
			assert.Equal(t, tt.wantZip4, zip4)
		})
	}
}

func TestLocation_WithAddressType(t *testing.T) {
	loc := shipper.Location{PostalCode: "10001"}
	assert.Equal(t, shipper.AddressUnknown, loc.AddressType())

	commercial, err := loc.WithAddressType(shipper.AddressCommercial)
	require.NoError(t, err)
	assert.True(t, commercial.Commercial())
	assert.Equal(t, shipper.AddressUnknown, loc.AddressType(), "original is untouched")

	same, err := commercial.WithAddressType("warehouse")
	assert.True(t, errors.Is(err, shipper.ErrInvalidAddressType))
	assert.True(t, same.Commercial(), "invalid value leaves the type as it was")
}

func TestParseAddressType(t *testing.T) {
	tests := []struct {
		in      string
		want    shipper.AddressType
		wantErr bool
	}{
		{"RESIDENTIAL", shipper.AddressResidential, false},
		{"commercial", shipper.AddressCommercial, false},
		{" po_box ", shipper.AddressPOBox, false},
		{"", shipper.AddressUnknown, false},
		{"business", shipper.AddressUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := shipper.ParseAddressType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_Helpers(t *testing.T) {
	loc := shipper.Location{
		Name: "Jane Doe", Address1: "350 5th Ave", City: "New York",
		Province: "NY", PostalCode: "10001-1234", CountryCode: "US", Phone: "+1 (212) 555-0199",
	}

	assert.Equal(t, "10001", loc.Zip5())
	require.NotNil(t, loc.Zip4())
	assert.Equal(t, "1234", *loc.Zip4())
	assert.Equal(t, "12125550199", loc.PhoneDigits())
	assert.Equal(t, "Jane Doe 350 5th Ave New York, NY, 10001-1234 US", loc.String())
}

func TestLocationFrom(t *testing.T) {
	loc := shipper.LocationFrom(map[string]string{
		"first_name":   "Jane",
		"last_name":    "Doe",
		"zip":          "10001",
		"state_code":   "NY",
		"state":        "New York",
		"town":         "New York",
		"street":       "350 5th Ave",
		"country":      "us",
		"phone_number": "212-555-0199",
		"address_type": "Residential",
	})

	assert.Equal(t, "Jane Doe", loc.Name)
	assert.Equal(t, "10001", loc.PostalCode)
	assert.Equal(t, "NY", loc.Province, "state_code is tried before state")
	assert.Equal(t, "New York", loc.City)
	assert.Equal(t, "350 5th Ave", loc.Address1)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "212-555-0199", loc.Phone)
	assert.True(t, loc.Residential())
	assert.Empty(t, loc.AttentionName)
}

func TestLocationFrom_CompanyBecomesName(t *testing.T) {
	loc := shipper.LocationFrom(map[string]string{
		"name":         "Jane Doe",
		"company_name": "Acme Corp",
		"postal_code":  "90210",
		"address_type": "castle",
	})

	assert.Equal(t, "Acme Corp", loc.Name)
	assert.Equal(t, "Acme Corp", loc.Company)
	assert.Equal(t, "Jane Doe", loc.AttentionName)
	assert.Equal(t, shipper.AddressUnknown, loc.AddressType(), "unknown address types are dropped")
}

func TestLocationFrom_KeepsExplicitAttentionName(t *testing.T) {
	loc := shipper.LocationFrom(map[string]string{
		"first_name":     "Jane",
		"last_name":      "Doe",
		"company":        "Acme Corp",
		"attention_name": "Receiving Dock 4",
	})

	assert.Equal(t, "Acme Corp", loc.Name)
	assert.Equal(t, "Receiving Dock 4", loc.AttentionName)
}

func strPtr(s string) *string { return &s }
