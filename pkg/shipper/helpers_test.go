package shipper_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/pkg/shipper"
)

func validParams() shipper.ShipmentParams {
	return shipper.ShipmentParams{
		ServiceTypeCode: "Priority",
		PaymentType:     shipper.PaymentBillToAccount,
		Packages: []shipper.Package{
			{Weight: 16, WeightUnit: shipper.WeightOZ, Length: 10, Width: 6, Height: 4},
		},
		ReferenceNumber: "R-1001",
		PrintMethodCode: "PNG",
		Shipper: shipper.Location{
			Name: "Acme Fulfillment", Address1: "1 Rodeo Dr", City: "Beverly Hills",
			Province: "CA", PostalCode: "90210", CountryCode: "US", Phone: "(310) 555-0100",
		},
		Destination: shipper.Location{
			Name: "Jane Doe", Address1: "350 5th Ave", City: "New York",
			Province: "NY", PostalCode: "10001-1234", CountryCode: "US",
		},
	}
}

func newShipment(t *testing.T, mutate func(p *shipper.ShipmentParams)) *shipper.Shipment {
	t.Helper()
	p := validParams()
	if mutate != nil {
		mutate(&p)
	}
	s, err := shipper.NewShipment(p)
	require.NoError(t, err)
	return s
}
