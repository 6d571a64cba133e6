// Package endicia provides integration with the Endicia label server (USPS
// postage, rating and account management) and the Endicia ELS refund and
// carrier-pickup service.
package endicia

import (
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
)

const carrierName = "endicia"

const (
	labelServiceURL = "https://www.envmgr.com/LabelService/EwsLabelService.asmx"
	elsServiceURL   = "https://www.endicia.com/ELS/ELSServices.cfc?wsdl"
)

// Mail classes that change request shape.
const (
	MailClassPriority = "Priority"
	MailClassExpress  = "Express"
	MailClassFirst    = "First"
)

// route is how one operation reaches the carrier: the endpoint, the form
// field carrying the XML and, for the ELS service, the method name.
type route struct {
	endpoint transport.Endpoint
	field    string
	method   string
}

var routes = map[shipper.Operation]route{
	shipper.OpLabel:            labelRoute("GetPostageLabelXML", "labelRequestXML"),
	shipper.OpRate:             labelRoute("CalculatePostageRateXML", "postageRateRequestXML"),
	shipper.OpBuyPostage:       labelRoute("BuyPostageXML", "recreditRequestXML"),
	shipper.OpChangePassPhrase: labelRoute("ChangePassPhraseXML", "changePassPhraseRequestXML"),
	shipper.OpAccountStatus:    labelRoute("GetAccountStatusXML", "accountStatusRequestXML"),
	shipper.OpRefund:           elsRoute("RefundRequest"),
	shipper.OpPickup:           elsRoute("CarrierPickupRequest"),
}

func labelRoute(resource, field string) route {
	u := labelServiceURL + "/" + resource
	return route{endpoint: transport.Endpoint{Test: u, Live: u}, field: field}
}

func elsRoute(method string) route {
	return route{endpoint: transport.Endpoint{Test: elsServiceURL, Live: elsServiceURL}, field: "XMLInput", method: method}
}

// FlatRate is a fixed-price USPS packaging option.
type FlatRate struct {
	Shape string
	Name  string
	Price float64
}

// FlatRates lists the flat-rate options per mail class.
var FlatRates = map[string][]FlatRate{
	MailClassPriority: {
		{Shape: "FlatRateEnvelope", Name: "USPS - Priority Mail Flat Rate Envelope", Price: 4.75},
		{Shape: "SmallFlatRateBox", Name: "USPS - Priority Mail Small Flat Rate Box", Price: 4.85},
		{Shape: "MediumFlatRateBox", Name: "USPS - Priority Mail Medium Flat Rate Box", Price: 10.20},
		{Shape: "LargeFlatRateBox", Name: "USPS - Priority Mail Large Flat Rate Box", Price: 13.95},
	},
	MailClassExpress: {
		{Shape: "FlatRateEnvelope", Name: "USPS - Express Mail Small Flat Rate Envelope", Price: 17.40},
	},
}

// FlatRateEstimates returns the flat-rate options for mailClass as rate
// estimates, cheapest first.
func FlatRateEstimates(mailClass string) []shipper.RateEstimate {
	table := FlatRates[mailClass]
	rates := make([]shipper.RateEstimate, 0, len(table))
	for _, fr := range table {
		rates = append(rates, shipper.RateEstimate{
			Carrier:     carrierName,
			ServiceName: fr.Name,
			ServiceCode: mailClass + ":" + fr.Shape,
			TotalPrice:  shipper.Money{Amount: fr.Price, Currency: "USD"},
		})
	}
	shipper.SortRates(rates)
	return rates
}
