package fedex

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

const mockSuccess = `<Notifications><Severity>SUCCESS</Severity><Code>0</Code><Message>Request was successfully processed.</Message></Notifications>`

// NewMockPoster returns a transport that answers every FedEx request with a
// plausible success reply, picked by the request's root element.
func NewMockPoster() *transport.MockPoster {
	return &transport.MockPoster{
		OnPost: func(ctx context.Context, req transport.Request) ([]byte, error) {
			root, err := xmlnode.Parse(req.Body)
			if err != nil {
				return nil, err
			}
			return mockReply(root.Tag), nil
		},
	}
}

func mockReply(request string) []byte {
	switch request {
	case "RateRequest":
		return []byte(`<RateReply>` + mockSuccess +
			mockRate("FEDEX_GROUND", "THREE_DAYS", "12.41") +
			mockRate("SMART_POST", "FIVE_DAYS", "8.02") +
			mockRate("FEDEX_2_DAY", "TWO_DAYS", "24.87") +
			`</RateReply>`)
	case "ProcessShipmentRequest":
		tracking := fmt.Sprintf("7%011d", time.Now().UnixNano()%1e11)
		image := base64.StdEncoding.EncodeToString([]byte("mock label"))
		return []byte(`<ProcessShipmentReply>` + mockSuccess + `<CompletedShipmentDetail>` +
			`<ShipmentRating><ShipmentRateDetails><TotalNetCharge><Currency>USD</Currency><Amount>12.41</Amount></TotalNetCharge></ShipmentRateDetails></ShipmentRating>` +
			`<CompletedPackageDetails><TrackingIds><TrackingNumber>` + tracking + `</TrackingNumber></TrackingIds>` +
			`<Label><Parts><Image>` + image + `</Image></Parts></Label></CompletedPackageDetails>` +
			`</CompletedShipmentDetail></ProcessShipmentReply>`)
	case "TrackRequest":
		return []byte(`<TrackReply>` + mockSuccess + `<TrackDetails><TrackingNumber>123456789012</TrackingNumber>` +
			`<DestinationAddress><City>NEW YORK</City><StateOrProvinceCode>NY</StateOrProvinceCode><CountryCode>US</CountryCode></DestinationAddress>` +
			`<Events><Timestamp>2024-05-02T09:15:00-04:00</Timestamp><EventDescription>Delivered</EventDescription>` +
			`<Address><City>NEW YORK</City><StateOrProvinceCode>NY</StateOrProvinceCode><PostalCode>10001</PostalCode><CountryCode>US</CountryCode></Address></Events>` +
			`<Events><Timestamp>2024-05-01T18:40:00-07:00</Timestamp><EventDescription>Picked up</EventDescription>` +
			`<Address><City>BEVERLY HILLS</City><StateOrProvinceCode>CA</StateOrProvinceCode><PostalCode>90210</PostalCode><CountryCode>US</CountryCode></Address></Events>` +
			`</TrackDetails></TrackReply>`)
	case "AddressValidationRequest":
		return []byte(`<AddressValidationReply>` + mockSuccess +
			`<AddressResults><ProposedAddressDetails><ResidentialStatus>BUSINESS</ResidentialStatus></ProposedAddressDetails></AddressResults>` +
			`</AddressValidationReply>`)
	case "UploadImagesRequest":
		return []byte(`<UploadImagesReply>` + mockSuccess + `<ImageStatuses><Id>IMAGE_1</Id><Status>SUCCESS</Status></ImageStatuses></UploadImagesReply>`)
	case "SmartPostCloseRequest":
		return []byte(`<SmartPostCloseReply>` + mockSuccess + `</SmartPostCloseReply>`)
	case "GroundCloseWithDocumentsRequest":
		manifest := base64.StdEncoding.EncodeToString([]byte("mock manifest"))
		return []byte(`<GroundCloseDocumentsReply>` + mockSuccess +
			`<CloseDocuments><ShippingCycle>1</ShippingCycle><Parts><Image>` + manifest + `</Image></Parts></CloseDocuments>` +
			`</GroundCloseDocumentsReply>`)
	default:
		return []byte(`<Reply><Notifications><Severity>ERROR</Severity><Code>9999</Code><Message>Unknown mock request ` + request + `</Message></Notifications></Reply>`)
	}
}

func mockRate(serviceType, transit, amount string) string {
	return `<RateReplyDetails><ServiceType>` + serviceType + `</ServiceType>` +
		`<CommitDetails><TransitTime>` + transit + `</TransitTime></CommitDetails>` +
		`<RatedShipmentDetails><ShipmentRateDetail><TotalNetCharge><Currency>USD</Currency><Amount>` + amount +
		`</Amount></TotalNetCharge></ShipmentRateDetail></RatedShipmentDetails></RateReplyDetails>`
}
