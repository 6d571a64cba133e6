package endicia_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/endicia"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

var testConfig = endicia.Config{
	RequesterID:       "lxxx",
	AccountID:         "123456",
	PassPhrase:        "secret",
	PartnerCustomerID: "cust-1",
}

func newShipment(t *testing.T, mutate func(p *shipper.ShipmentParams)) *shipper.Shipment {
	t.Helper()
	p := shipper.ShipmentParams{
		ServiceTypeCode: endicia.MailClassPriority,
		PaymentType:     shipper.PaymentBillToAccount,
		Packages: []shipper.Package{
			{Weight: 16, WeightUnit: shipper.WeightOZ, Length: 10, Width: 6, Height: 4, PackageType: "Parcel"},
		},
		ReferenceNumber: "R-1001",
		PrintMethodCode: "PNG",
		OrderID:         "5512",
		Description:     "Books",
		POZipCode:       "90210",
		Shipper: shipper.Location{
			Name: "Acme Fulfillment", Address1: "1 Rodeo Dr", City: "Beverly Hills",
			Province: "CA", PostalCode: "90210", CountryCode: "US", Phone: "(310) 555-0100",
		},
		Destination: shipper.Location{
			Name: "Jane Doe", Address1: "350 5th Ave", City: "New York",
			Province: "NY", PostalCode: "10001-1234", CountryCode: "US", Phone: "212.555.0199",
		},
	}
	if mutate != nil {
		mutate(&p)
	}
	s, err := shipper.NewShipment(p)
	require.NoError(t, err)
	return s
}

func value(t *testing.T, doc *xmlnode.Node, path ...string) string {
	t.Helper()
	n := doc.Find(path...)
	require.NotNil(t, n, "missing element %v", path)
	return n.Value()
}

func TestBuildLabelRequest_ExampleScenario(t *testing.T) {
	doc := endicia.BuildLabelRequest(testConfig, newShipment(t, nil), shipper.Options{})

	assert.Equal(t, "LabelRequest", doc.Name())
	assert.Equal(t, "10001", value(t, doc, "ToPostalCode"))
	assert.Equal(t, "1234", value(t, doc, "ToZIP4"))
	assert.Nil(t, doc.Child("SundayHolidayDelivery"), "only Express gets SundayHolidayDelivery")
	assert.Nil(t, doc.Child("CustomsFormType"), "same country, non-military province")
	assert.Nil(t, doc.Child("Value"))

	assert.Equal(t, "16", value(t, doc, "WeightOz"))
	assert.Equal(t, "Priority", value(t, doc, "MailClass"))
	assert.Equal(t, "10", value(t, doc, "MailpieceDimensions", "Length"))
}

func TestBuildLabelRequest_HeaderAndCredentials(t *testing.T) {
	doc := endicia.BuildLabelRequest(testConfig, newShipment(t, nil), shipper.Options{})

	labelType, _ := doc.AttrValue("LabelType")
	labelSize, _ := doc.AttrValue("LabelSize")
	imageFormat, _ := doc.AttrValue("ImageFormat")
	assert.Equal(t, "Default", labelType)
	assert.Equal(t, "4X6", labelSize)
	assert.Equal(t, "PNG", imageFormat)

	assert.Equal(t, "lxxx", value(t, doc, "RequesterID"))
	assert.Equal(t, "123456", value(t, doc, "AccountID"))
	assert.Equal(t, "secret", value(t, doc, "PassPhrase"))
	assert.Equal(t, "cust-1", value(t, doc, "PartnerCustomerID"))
	assert.Equal(t, "R-1001", value(t, doc, "PartnerTransactionID"))
	assert.Equal(t, "3105550100", value(t, doc, "FromPhone"))
	assert.Equal(t, "#5512", value(t, doc, "RubberStamp2"))
	assert.Equal(t, "TRUE", value(t, doc, "ShowReturnAddress"))

	opts := doc.Child("ResponseOptions")
	require.NotNil(t, opts)
	price, _ := opts.AttrValue("PostagePrice")
	assert.Equal(t, "TRUE", price)
}

func TestBuildLabelRequest_Names(t *testing.T) {
	doc := endicia.BuildLabelRequest(testConfig, newShipment(t, nil), shipper.Options{})
	assert.Equal(t, "Acme Fulfillment", value(t, doc, "FromName"))
	assert.Equal(t, "", value(t, doc, "FromCompany"))
	assert.Equal(t, "Jane Doe", value(t, doc, "ToName"))

	doc = endicia.BuildLabelRequest(testConfig, newShipment(t, func(p *shipper.ShipmentParams) {
		p.Shipper.AttentionName = "Sam Packer"
		p.Destination.Name = "Globex"
		p.Destination.AttentionName = "Hank Scorpio"
	}), shipper.Options{})
	assert.Equal(t, "Sam Packer", value(t, doc, "FromName"))
	assert.Equal(t, "Acme Fulfillment", value(t, doc, "FromCompany"))
	assert.Equal(t, "Hank Scorpio", value(t, doc, "ToName"))
	assert.Equal(t, "Globex", value(t, doc, "ToCompany"))
}

func TestBuildLabelRequest_NoZip4Omitted(t *testing.T) {
	s := newShipment(t, func(p *shipper.ShipmentParams) { p.Destination.PostalCode = "10001" })
	doc := endicia.BuildLabelRequest(testConfig, s, shipper.Options{})

	assert.Equal(t, "10001", value(t, doc, "ToPostalCode"))
	assert.Nil(t, doc.Child("ToZIP4"))
	assert.NotContains(t, doc.String(), "ToZIP4")
}

func TestBuildLabelRequest_Express(t *testing.T) {
	s := newShipment(t, func(p *shipper.ShipmentParams) { p.ServiceTypeCode = endicia.MailClassExpress })
	doc := endicia.BuildLabelRequest(testConfig, s, shipper.Options{})
	assert.Equal(t, "FALSE", value(t, doc, "SundayHolidayDelivery"))

	rate := endicia.BuildRateRequest(testConfig, s, shipper.Options{})
	assert.Equal(t, "FALSE", value(t, rate, "SundayHolidayDelivery"))
}

func TestBuildLabelRequest_MilitaryCustoms(t *testing.T) {
	s := newShipment(t, func(p *shipper.ShipmentParams) {
		p.Destination.Province = "AE"
		p.Destination.City = "APO"
		p.Destination.PostalCode = "09012"
		p.ValueCents = 2599
	})
	require.True(t, s.RequiresCustoms())
	doc := endicia.BuildLabelRequest(testConfig, s, shipper.Options{})

	assert.Equal(t, "25.99", value(t, doc, "Value"))
	assert.Equal(t, "Form2976A", value(t, doc, "CustomsFormType"))
	assert.Equal(t, "PDF", value(t, doc, "CustomsFormImageFormat"))
	assert.Equal(t, "United States", value(t, doc, "OriginCountry"))
	assert.Equal(t, "Gift", value(t, doc, "ContentsType"))
	assert.Nil(t, doc.Child("CustomsCertify"), "certify block needs a signer")
	assert.Nil(t, doc.Child("CustomsSigner"))
}

func TestBuildLabelRequest_MilitaryCustomsCertified(t *testing.T) {
	s := newShipment(t, func(p *shipper.ShipmentParams) {
		p.Destination.Province = "AP"
		p.ValueCents = 5000
		p.SignedBy = "Sam Packer"
		p.Quantity = 2
		p.Packages[0].Weight = 20.7
	})
	doc := endicia.BuildLabelRequest(testConfig, s, shipper.Options{})

	assert.Equal(t, "TRUE", value(t, doc, "CustomsCertify"))
	assert.Equal(t, "Sam Packer", value(t, doc, "CustomsSigner"))
	assert.Equal(t, "Books", value(t, doc, "CustomsDescription1"))
	assert.Equal(t, "2", value(t, doc, "CustomsQuantity1"))
	assert.Equal(t, "20", value(t, doc, "CustomsWeight1"))
	assert.Equal(t, "50.00", value(t, doc, "CustomsValue1"))
	assert.Equal(t, "United States", value(t, doc, "CustomsCountry1"))
	assert.Equal(t, "Return", value(t, doc, "NonDeliveryOption"))
	assert.Equal(t, "2125550199", value(t, doc, "ToPhone"))
}

func TestBuildRateRequest_Exact(t *testing.T) {
	doc := endicia.BuildRateRequest(testConfig, newShipment(t, nil), shipper.Options{})

	assert.Equal(t, `<PostageRateRequest><RequesterID>lxxx</RequesterID>`+
		`<CertifiedIntermediary><AccountID>123456</AccountID><PassPhrase>secret</PassPhrase></CertifiedIntermediary>`+
		`<FromPostalCode>90210</FromPostalCode><ToPostalCode>10001</ToPostalCode>`+
		`<WeightOz>16</WeightOz><MailpieceShape>Parcel</MailpieceShape><MailClass>Priority</MailClass>`+
		`<MailpieceDimensions><Length>10</Length><Width>6</Width><Height>4</Height></MailpieceDimensions>`+
		`<ResponseOptions PostagePrice="TRUE"/></PostageRateRequest>`, doc.String())
}

func TestBuildAccountRequests_CertifiedIntermediary(t *testing.T) {
	opts := shipper.Options{RequestID: "req-7"}
	docs := []*xmlnode.Node{
		endicia.BuildAccountStatusRequest(testConfig, opts),
		endicia.BuildChangePassPhraseRequest(testConfig, "new-secret", opts),
		endicia.BuildBuyPostageRequest(testConfig, 100, opts),
	}

	for _, doc := range docs {
		t.Run(doc.Name(), func(t *testing.T) {
			assert.Equal(t, "lxxx", value(t, doc, "RequesterID"))
			assert.Equal(t, "req-7", value(t, doc, "RequestID"))
			assert.Equal(t, "123456", value(t, doc, "CertifiedIntermediary", "AccountID"))
			assert.Equal(t, "secret", value(t, doc, "CertifiedIntermediary", "PassPhrase"))
		})
	}

	assert.Equal(t, "new-secret", value(t, docs[1], "NewPassPhrase"))
	assert.Equal(t, "100.00", value(t, docs[2], "RecreditAmount"))
}

func TestBuildAccountStatusRequest_GeneratesRequestID(t *testing.T) {
	a := endicia.BuildAccountStatusRequest(testConfig, shipper.Options{})
	b := endicia.BuildAccountStatusRequest(testConfig, shipper.Options{})

	assert.NotEmpty(t, value(t, a, "RequestID"))
	assert.NotEqual(t, value(t, a, "RequestID"), value(t, b, "RequestID"))
}

func TestBuildRefundRequest_Deduplicates(t *testing.T) {
	doc := endicia.BuildRefundRequest(testConfig, []string{"B", "A", "B", "C", "A"}, shipper.Options{Test: true})

	var pics []string
	for _, n := range doc.Find("RefundList").ChildrenNamed("PICNumber") {
		pics = append(pics, n.Value())
	}
	assert.Equal(t, []string{"B", "A", "C"}, pics)
	assert.Equal(t, "Y", value(t, doc, "Test"))
	assert.Equal(t, "123456", value(t, doc, "AccountID"))
}

func TestBuildRefundRequest_LiveHasNoTestElement(t *testing.T) {
	doc := endicia.BuildRefundRequest(testConfig, []string{"A"}, shipper.Options{})
	assert.Nil(t, doc.Child("Test"))
}

func TestBuildPickupRequest(t *testing.T) {
	s := newShipment(t, func(p *shipper.ShipmentParams) {
		p.Shipper.PostalCode = "90210-4321"
		p.Shipper.AttentionName = "Sam J Packer"
	})
	doc := endicia.BuildPickupRequest(testConfig, s, []string{"B", "A", "B"}, shipper.Options{})

	var pics []string
	for _, n := range doc.Find("PickupList").ChildrenNamed("PICNumber") {
		pics = append(pics, n.Value())
	}
	assert.Equal(t, []string{"B", "A", "B"}, pics, "pickups keep duplicates")

	assert.Equal(t, "90210", value(t, doc, "ZIP5"))
	assert.Equal(t, "4321", value(t, doc, "ZIP4"))
	assert.Equal(t, "3105550100", value(t, doc, "Phone"))
	assert.Equal(t, "Acme Fulfillment", value(t, doc, "CompanyName"))
	assert.Equal(t, "Sam J", value(t, doc, "FirstName"))
	assert.Equal(t, "Packer", value(t, doc, "LastName"))
	assert.Nil(t, doc.Child("Test"))
}

func TestBuildPickupRequest_NoZip4(t *testing.T) {
	doc := endicia.BuildPickupRequest(testConfig, newShipment(t, nil), []string{"A"}, shipper.Options{})
	assert.Nil(t, doc.Child("ZIP4"))
}

func TestFlatRateEstimates(t *testing.T) {
	priority := endicia.FlatRateEstimates(endicia.MailClassPriority)
	require.Len(t, priority, 4)
	assert.Equal(t, 4.75, priority[0].TotalPrice.Amount)
	assert.Equal(t, "Priority:FlatRateEnvelope", priority[0].ServiceCode)
	assert.Equal(t, 13.95, priority[3].TotalPrice.Amount)

	express := endicia.FlatRateEstimates(endicia.MailClassExpress)
	require.Len(t, express, 1)
	assert.Equal(t, 17.40, express[0].TotalPrice.Amount)

	assert.Empty(t, endicia.FlatRateEstimates(endicia.MailClassFirst))
}
