package endicia

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

const customsCountry = "United States"

// BuildLabelRequest builds a LabelRequest for the shipment's first package.
func BuildLabelRequest(cfg Config, s *shipper.Shipment, opts shipper.Options) *xmlnode.Node {
	from := s.Shipper()
	to := s.Destination()
	pkg := s.Package()
	zip5, zip4 := shipper.SplitPostalCode(to.PostalCode)

	fromName, fromCompany := nameAndCompany(from)
	toName, toCompany := nameAndCompany(to)

	root := xmlnode.New("LabelRequest",
		xmlnode.Leaf("RequesterID", cfg.RequesterID),
		xmlnode.Leaf("AccountID", cfg.AccountID),
		xmlnode.Leaf("PassPhrase", cfg.PassPhrase),
		xmlnode.Leaf("PartnerCustomerID", cfg.PartnerCustomerID),
		xmlnode.Leaf("PartnerTransactionID", s.ReferenceNumber()),
		xmlnode.Leaf("FromName", fromName),
		xmlnode.Leaf("FromCompany", fromCompany),
		xmlnode.Leaf("ReturnAddress1", from.Address1),
		xmlnode.Leaf("ReturnAddress2", from.Address2),
		xmlnode.Leaf("FromCity", from.City),
		xmlnode.Leaf("FromState", from.Province),
		xmlnode.Leaf("FromPostalCode", from.PostalCode),
		xmlnode.Leaf("FromPhone", from.PhoneDigits()),
		xmlnode.Leaf("ToName", toName),
		xmlnode.Leaf("ToCompany", toCompany),
		xmlnode.Leaf("ToAddress1", to.Address1),
		xmlnode.Leaf("ToAddress2", to.Address2),
		xmlnode.Leaf("ToCity", to.City),
		xmlnode.Leaf("ToState", to.Province),
		xmlnode.Leaf("ToPostalCode", zip5),
		xmlnode.Optional("ToZIP4", zip4),
	).
		Attr("LabelType", "Default").
		Attr("LabelSize", "4X6").
		Attr("ImageFormat", s.PrintMethodCode())

	root.Add(mailpiece(s, pkg)...)
	root.Add(
		xmlnode.Bool("ShowReturnAddress", true, xmlnode.Upper),
		xmlnode.Bool("Stealth", true, xmlnode.Upper),
		xmlnode.Leaf("Description", s.Description()),
		xmlnode.Leaf("RubberStamp1", "Order:"),
		xmlnode.Leaf("RubberStamp2", "#"+s.OrderID()),
		xmlnode.Leaf("POZipCode", s.POZipCode()),
		responseOptions(),
	)

	if s.RequiresCustoms() {
		root.Add(customs(s, pkg, to)...)
	}
	return root
}

// BuildRateRequest builds a PostageRateRequest for the shipment's first
// package.
func BuildRateRequest(cfg Config, s *shipper.Shipment, opts shipper.Options) *xmlnode.Node {
	zip5, _ := shipper.SplitPostalCode(s.Destination().PostalCode)

	root := xmlnode.New("PostageRateRequest",
		xmlnode.Leaf("RequesterID", cfg.RequesterID),
		certifiedIntermediary(cfg),
		xmlnode.Leaf("FromPostalCode", s.Shipper().PostalCode),
		xmlnode.Leaf("ToPostalCode", zip5),
	)
	root.Add(mailpiece(s, s.Package())...)
	return root.Add(responseOptions())
}

// BuildBuyPostageRequest builds a RecreditRequest adding amount dollars to
// the account.
func BuildBuyPostageRequest(cfg Config, amount float64, opts shipper.Options) *xmlnode.Node {
	return xmlnode.New("RecreditRequest",
		xmlnode.Leaf("RequesterID", cfg.RequesterID),
		xmlnode.Leaf("RequestID", requestID(opts)),
		certifiedIntermediary(cfg),
		xmlnode.Leaf("RecreditAmount", formatAmount(amount)),
	)
}

// BuildChangePassPhraseRequest builds a ChangePassPhraseRequest.
func BuildChangePassPhraseRequest(cfg Config, newPassPhrase string, opts shipper.Options) *xmlnode.Node {
	return xmlnode.New("ChangePassPhraseRequest",
		xmlnode.Leaf("RequesterID", cfg.RequesterID),
		xmlnode.Leaf("RequestID", requestID(opts)),
		certifiedIntermediary(cfg),
		xmlnode.Leaf("NewPassPhrase", newPassPhrase),
	)
}

// BuildAccountStatusRequest builds an AccountStatusRequest.
func BuildAccountStatusRequest(cfg Config, opts shipper.Options) *xmlnode.Node {
	return xmlnode.New("AccountStatusRequest",
		xmlnode.Leaf("RequesterID", cfg.RequesterID),
		xmlnode.Leaf("RequestID", requestID(opts)),
		certifiedIntermediary(cfg),
	)
}

// BuildRefundRequest builds an ELS RefundRequest. Repeated tracking numbers
// are sent once, in first-seen order.
func BuildRefundRequest(cfg Config, trackingNumbers []string, opts shipper.Options) *xmlnode.Node {
	list := xmlnode.New("RefundList")
	for _, tn := range unique(trackingNumbers) {
		list.Add(xmlnode.Leaf("PICNumber", tn))
	}

	return xmlnode.New("RefundRequest",
		xmlnode.Leaf("AccountID", cfg.AccountID),
		xmlnode.Leaf("PassPhrase", cfg.PassPhrase),
		xmlnode.LeafIf(opts.Test, "Test", "Y"),
		list,
	)
}

// BuildPickupRequest builds an ELS CarrierPickupRequest at the shipper's
// address. Tracking numbers are sent as given.
func BuildPickupRequest(cfg Config, s *shipper.Shipment, trackingNumbers []string, opts shipper.Options) *xmlnode.Node {
	from := s.Shipper()
	zip5, zip4 := shipper.SplitPostalCode(from.PostalCode)

	list := xmlnode.New("PickupList")
	for _, tn := range trackingNumbers {
		list.Add(xmlnode.Leaf("PICNumber", tn))
	}

	first, last := splitName(from.AttentionName)

	return xmlnode.New("CarrierPickupRequest",
		xmlnode.Leaf("AccountID", cfg.AccountID),
		xmlnode.Leaf("PassPhrase", cfg.PassPhrase),
		xmlnode.LeafIf(opts.Test, "Test", "Y"),
		xmlnode.Leaf("FirstName", first),
		xmlnode.Leaf("LastName", last),
		xmlnode.Leaf("CompanyName", from.Name),
		xmlnode.Leaf("Address", from.Address1),
		xmlnode.Leaf("SuiteOrApt", from.Address2),
		xmlnode.Leaf("City", from.City),
		xmlnode.Leaf("State", from.Province),
		xmlnode.Leaf("ZIP5", zip5),
		xmlnode.Optional("ZIP4", zip4),
		xmlnode.Leaf("Phone", from.PhoneDigits()),
		list,
	)
}

func certifiedIntermediary(cfg Config) *xmlnode.Node {
	return xmlnode.New("CertifiedIntermediary",
		xmlnode.Leaf("AccountID", cfg.AccountID),
		xmlnode.Leaf("PassPhrase", cfg.PassPhrase),
	)
}

func mailpiece(s *shipper.Shipment, pkg shipper.Package) []*xmlnode.Node {
	inches := pkg.Inches()
	return []*xmlnode.Node{
		xmlnode.Float("WeightOz", round1(pkg.Ounces())),
		xmlnode.Leaf("MailpieceShape", string(pkg.PackageType)),
		xmlnode.Leaf("MailClass", s.ServiceTypeCode()),
		xmlnode.New("MailpieceDimensions",
			xmlnode.Float("Length", round1(inches[0])),
			xmlnode.Float("Width", round1(inches[1])),
			xmlnode.Float("Height", round1(inches[2])),
		),
		sundayHoliday(s.ServiceTypeCode()),
	}
}

// sundayHoliday is emitted for Express only.
func sundayHoliday(mailClass string) *xmlnode.Node {
	if mailClass != MailClassExpress {
		return nil
	}
	return xmlnode.Bool("SundayHolidayDelivery", false, xmlnode.Upper)
}

func responseOptions() *xmlnode.Node {
	return xmlnode.New("ResponseOptions").BoolAttr("PostagePrice", true, xmlnode.Upper)
}

func customs(s *shipper.Shipment, pkg shipper.Package, to shipper.Location) []*xmlnode.Node {
	value := formatCents(s.ValueCents())
	nodes := []*xmlnode.Node{
		xmlnode.Leaf("Value", value),
		xmlnode.Leaf("CustomsFormType", "Form2976A"),
		xmlnode.Leaf("CustomsFormImageFormat", "PDF"),
		xmlnode.Leaf("OriginCountry", customsCountry),
		xmlnode.Leaf("ContentsType", "Gift"),
	}
	if strings.TrimSpace(s.SignedBy()) == "" {
		return nodes
	}
	return append(nodes,
		xmlnode.Bool("CustomsCertify", true, xmlnode.Upper),
		xmlnode.Leaf("CustomsSigner", s.SignedBy()),
		xmlnode.Leaf("CustomsDescription1", s.Description()),
		xmlnode.Int("CustomsQuantity1", s.Quantity()),
		xmlnode.Int("CustomsWeight1", int(pkg.Ounces())),
		xmlnode.Leaf("CustomsValue1", value),
		xmlnode.Leaf("CustomsCountry1", customsCountry),
		xmlnode.Leaf("NonDeliveryOption", "Return"),
		xmlnode.Leaf("ToPhone", to.PhoneDigits()),
	)
}

// nameAndCompany picks the person and company lines. With an attention name
// the location's name is the company.
func nameAndCompany(loc shipper.Location) (name, company string) {
	if strings.TrimSpace(loc.AttentionName) == "" {
		return loc.Name, ""
	}
	return loc.AttentionName, loc.Name
}

func splitName(full string) (first, last string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}

func requestID(opts shipper.Options) string {
	if opts.RequestID != "" {
		return opts.RequestID
	}
	return uuid.NewString()
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
