package fedex

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

// Request defaults.
const (
	defaultDropoffType     = "REGULAR_PICKUP"
	defaultPackagingType   = "YOUR_PACKAGING"
	defaultLabelFormatType = "COMMON2D"
	defaultImageType       = "EPL2"
	defaultLabelStockType  = "STOCK_4X6"
	paperImageType         = "PDF"
	paperLabelStockType    = "PAPER_8.5X11_BOTTOM_HALF_LABEL"
	defaultIndicia         = "PARCEL_SELECT"
	defaultSmartPostHubID  = "5254"
	defaultCloseHubID      = "5531"
)

// BuildRateRequest builds a RateRequest for every service available to the
// shipment.
func BuildRateRequest(cfg Config, s *shipper.Shipment, opts shipper.Options) *xmlnode.Node {
	from, to := parties(cfg, s, opts, s.CrossBorder())

	rs := xmlnode.New("RequestedShipment",
		xmlnode.Leaf("DropoffType", orDefault(opts.DropoffType, defaultDropoffType)),
		xmlnode.Leaf("PackagingType", orDefault(opts.PackagingType, defaultPackagingType)),
		location("Shipper", s.Shipper(), from),
		location("Recipient", s.Destination(), to),
		originLocation(s),
		smartPostDetail(opts),
		xmlnode.Leaf("RateRequestTypes", "ACCOUNT"),
	)
	rs.Add(packages(s, opts)...)

	return envelope(rateService, "RateRequest", cfg, opts,
		xmlnode.Bool("ReturnTransitAndCommit", true, xmlnode.Lower),
		rs,
	)
}

// BuildProcessShipmentRequest builds a ProcessShipmentRequest that buys the
// label for the shipment's service.
func BuildProcessShipmentRequest(cfg Config, s *shipper.Shipment, opts shipper.Options) *xmlnode.Node {
	svc := s.ServiceTypeCode()
	international := s.CrossBorder()
	from, to := parties(cfg, s, opts, false)

	paymentType := "SENDER"
	if opts.Return {
		paymentType = "RECIPIENT"
	}

	rs := xmlnode.New("RequestedShipment",
		xmlnode.Leaf("ShipTimestamp", ShipDate(cfg.now()).Format(time.RFC3339)),
		xmlnode.Leaf("DropoffType", orDefault(opts.DropoffType, defaultDropoffType)),
		xmlnode.Leaf("ServiceType", svc),
		xmlnode.Leaf("PackagingType", orDefault(opts.PackagingType, defaultPackagingType)),
		location("Shipper", s.Shipper(), from),
		location("Recipient", s.Destination(), to),
		originLocation(s),
		payment("ShippingChargesPayment", paymentType, cfg.Account, s.Origin().CountryCode),
	)

	if international {
		rs.Add(
			xmlnode.New("SpecialServicesRequested",
				xmlnode.Leaf("SpecialServiceTypes", "ELECTRONIC_TRADE_DOCUMENTS"),
				xmlnode.New("EtdDetail", xmlnode.Leaf("RequestedDocumentCopies", "COMMERCIAL_INVOICE")),
			),
			customsClearance(cfg, s, opts),
		)
	}
	if svc == ServiceSmartPost {
		rs.Add(smartPostDetail(opts))
	}
	rs.Add(labelSpecification(svc, opts))
	if international {
		rs.Add(shippingDocumentSpecification())
	}
	rs.Add(xmlnode.Leaf("RateRequestTypes", "ACCOUNT"))
	rs.Add(packages(s, opts)...)

	return envelope(shipService, "ProcessShipmentRequest", cfg, opts, rs)
}

// BuildTrackRequest builds a TrackRequest with detailed scans.
func BuildTrackRequest(cfg Config, trackingNumber string, opts shipper.Options) *xmlnode.Node {
	idType, _ := PackageIdentifierType(opts)
	return envelope(trackService, "TrackRequest", cfg, opts,
		xmlnode.New("PackageIdentifier",
			xmlnode.Leaf("Value", trackingNumber),
			xmlnode.Leaf("Type", idType),
		),
		dateLeaf("ShipDateRangeBegin", opts.ShipDateRangeBegin),
		dateLeaf("ShipDateRangeEnd", opts.ShipDateRangeEnd),
		xmlnode.Int("IncludeDetailedScans", 1),
	)
}

// PackageIdentifierType returns the wire identifier type for
// opts.PackageIdentifierType, and false when that type is unknown.
func PackageIdentifierType(opts shipper.Options) (string, bool) {
	key := orDefault(opts.PackageIdentifierType, defaultPackageIdentifier)
	t, ok := PackageIdentifierTypes[strings.ToLower(key)]
	if !ok {
		return PackageIdentifierTypes[defaultPackageIdentifier], false
	}
	return t, true
}

// BuildAddressValidationRequest builds an AddressValidationRequest asking
// for the residential status of loc.
func BuildAddressValidationRequest(cfg Config, loc shipper.Location, opts shipper.Options) *xmlnode.Node {
	return envelope(validateService, "AddressValidationRequest", cfg, opts,
		xmlnode.Leaf("RequestTimestamp", cfg.now().Format(time.RFC3339)),
		xmlnode.New("Options",
			xmlnode.Bool("CheckResidentialStatus", true, xmlnode.Lower),
			xmlnode.Int("MaximumNumberOfMatches", 1),
			xmlnode.Leaf("StreetAccuracy", "MEDIUM"),
			xmlnode.Leaf("DirectionalAccuracy", "MEDIUM"),
			xmlnode.Leaf("CompanyNameAccuracy", "MEDIUM"),
			xmlnode.Bool("ConvertToUpperCase", true, xmlnode.Lower),
			xmlnode.Bool("RecognizeAlternateCityNames", true, xmlnode.Lower),
			xmlnode.Bool("ReturnParsedElements", true, xmlnode.Lower),
		),
		xmlnode.New("AddressesToValidate", address(loc, false, false)),
	)
}

// BuildUploadImageRequest builds an UploadImagesRequest for a letterhead or
// signature image used on commercial invoices.
func BuildUploadImageRequest(cfg Config, imageID string, image []byte, opts shipper.Options) *xmlnode.Node {
	return envelope(uploadService, "UploadImagesRequest", cfg, opts,
		xmlnode.New("Images",
			xmlnode.Leaf("Id", imageID),
			xmlnode.Leaf("Image", base64.StdEncoding.EncodeToString(image)),
		),
	)
}

// BuildGroundCloseRequest builds the end-of-day ground close asking for the
// manifest.
func BuildGroundCloseRequest(cfg Config, opts shipper.Options) *xmlnode.Node {
	date := opts.CloseDate
	if date.IsZero() {
		date = cfg.now()
	}
	return envelope(closeService, "GroundCloseWithDocumentsRequest", cfg, opts,
		xmlnode.Leaf("CloseDate", date.Format(time.DateOnly)),
		xmlnode.New("CloseDocumentSpecification", xmlnode.Leaf("CloseDocumentTypes", "MANIFEST")),
	)
}

// BuildSmartPostCloseRequest builds the smart post close for a hub.
func BuildSmartPostCloseRequest(cfg Config, opts shipper.Options) *xmlnode.Node {
	return envelope(closeService, "SmartPostCloseRequest", cfg, opts,
		xmlnode.Leaf("HubId", orDefault(opts.HubID, defaultCloseHubID)),
		xmlnode.Leaf("DestinationCountryCode", "US"),
		xmlnode.Leaf("PickUpCarrier", "FXSP"),
	)
}

// LabelImageType returns the image type the label will be printed in.
func LabelImageType(serviceCode string, opts shipper.Options) string {
	if UsePaperLabels(serviceCode, opts) {
		return paperImageType
	}
	return orDefault(opts.ImageType, defaultImageType)
}

// envelope wraps body in the root element of svc with the shared header.
func envelope(svc service, name string, cfg Config, opts shipper.Options, body ...*xmlnode.Node) *xmlnode.Node {
	root := xmlnode.New(name,
		xmlnode.New("WebAuthenticationDetail",
			xmlnode.New("UserCredential",
				xmlnode.Leaf("Key", cfg.Key),
				xmlnode.Leaf("Password", cfg.Password),
			),
		),
		xmlnode.New("ClientDetail",
			xmlnode.Leaf("AccountNumber", cfg.Account),
			xmlnode.Leaf("MeterNumber", cfg.MeterNumber),
		),
		xmlnode.New("TransactionDetail",
			xmlnode.Leaf("CustomerTransactionId", transactionID(opts)),
		),
		xmlnode.New("Version",
			xmlnode.Leaf("ServiceId", svc.id),
			xmlnode.Int("Major", svc.major),
			xmlnode.Int("Intermediate", svc.intermediate),
			xmlnode.Int("Minor", svc.minor),
		),
	).Attr("xmlns", svc.namespace)
	return root.Add(body...)
}

// party carries how one side of the shipment is written.
type party struct {
	account           string
	residential       bool
	countryAndZipOnly bool
}

// parties returns the shipper and recipient settings. The paying side carries
// the account number; the residential override applies to the destination.
// Rates to foreign destinations only send the other side's country and postal
// code.
func parties(cfg Config, s *shipper.Shipment, opts shipper.Options, international bool) (from, to party) {
	svc := s.ServiceTypeCode()
	override := opts.Residential
	if override == nil {
		override = s.Residential()
	}

	from = party{residential: IsResidential(s.Shipper(), svc, nil)}
	to = party{residential: IsResidential(s.Destination(), svc, override)}
	if opts.Return {
		to.account = cfg.Account
		from.countryAndZipOnly = international
	} else {
		from.account = cfg.Account
		to.countryAndZipOnly = international
	}
	return from, to
}

func originLocation(s *shipper.Shipment) *xmlnode.Node {
	if !s.HasDistinctOrigin() {
		return nil
	}
	origin := s.Origin()
	return location("Origin", origin, party{residential: IsResidential(origin, s.ServiceTypeCode(), nil)})
}

func location(name string, loc shipper.Location, p party) *xmlnode.Node {
	node := xmlnode.New(name, xmlnode.NonEmpty("AccountNumber", p.account))
	if strings.TrimSpace(loc.Name) != "" || strings.TrimSpace(loc.Company) != "" {
		node.Add(contact(loc, p.residential))
	}
	return node.Add(address(loc, p.countryAndZipOnly, p.residential))
}

// contact writes the person and, for businesses, the company. With an
// attention name the location's name is the company.
func contact(loc shipper.Location, residential bool) *xmlnode.Node {
	person, company := loc.Name, loc.Company
	if strings.TrimSpace(loc.AttentionName) != "" {
		person, company = loc.AttentionName, loc.Name
	}
	c := xmlnode.New("Contact", xmlnode.NonEmpty("PersonName", person))
	if !residential {
		c.Add(xmlnode.NonEmpty("CompanyName", company))
	}
	return c.Add(xmlnode.NonEmpty("PhoneNumber", loc.Phone))
}

func address(loc shipper.Location, countryAndZipOnly, residential bool) *xmlnode.Node {
	a := xmlnode.New("Address")
	if !countryAndZipOnly {
		a.Add(
			xmlnode.NonEmpty("StreetLines", loc.Address1),
			xmlnode.NonEmpty("StreetLines", loc.Address2),
			xmlnode.NonEmpty("City", loc.City),
			xmlnode.NonEmpty("StateOrProvinceCode", loc.Province),
		)
	}
	return a.Add(
		xmlnode.Leaf("PostalCode", loc.PostalCode),
		xmlnode.Leaf("CountryCode", loc.CountryCode),
		xmlnode.LeafIf(residential, "Residential", "true"),
	)
}

func packages(s *shipper.Shipment, opts shipper.Options) []*xmlnode.Node {
	svc := s.ServiceTypeCode()
	origin := s.Origin()
	pkgs := s.Packages()

	nodes := []*xmlnode.Node{xmlnode.Int("PackageCount", len(pkgs))}
	for i, pkg := range pkgs {
		item := xmlnode.New("RequestedPackageLineItems",
			xmlnode.Int("SequenceNumber", i+1),
			xmlnode.Int("GroupPackageCount", 1),
		)
		if pkg.InsuredValueCents > 0 && HasPackageServices(svc) {
			item.Add(money("InsuredValue", pkg.InsuredValueCents, pkg.CurrencyOrDefault()))
		}
		item.Add(weight(origin, pkg), dimensions(origin, pkg))

		if HasCustomerReferences(svc) {
			item.Add(
				customerReference("INVOICE_NUMBER", pkg.Reference1),
				customerReference("CUSTOMER_REFERENCE", pkg.Reference2),
			)
			if HasPackageServices(svc) {
				item.Add(xmlnode.New("SpecialServicesRequested",
					xmlnode.Leaf("SpecialServiceTypes", "SIGNATURE_OPTION"),
					xmlnode.New("SignatureOptionDetail", xmlnode.Leaf("OptionType", SignatureOption(pkg, opts))),
				))
			}
		}
		nodes = append(nodes, item)
	}
	return nodes
}

func weight(origin shipper.Location, pkg shipper.Package) *xmlnode.Node {
	value, units := Weight(origin, pkg)
	return xmlnode.New("Weight",
		xmlnode.Leaf("Units", units),
		xmlnode.Float("Value", value),
	)
}

func dimensions(origin shipper.Location, pkg shipper.Package) *xmlnode.Node {
	dims, units := Dimensions(origin, pkg)
	return xmlnode.New("Dimensions",
		xmlnode.Int("Length", dims[0]),
		xmlnode.Int("Width", dims[1]),
		xmlnode.Int("Height", dims[2]),
		xmlnode.Leaf("Units", units),
	)
}

func customerReference(refType, value string) *xmlnode.Node {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return xmlnode.New("CustomerReferences",
		xmlnode.Leaf("CustomerReferenceType", refType),
		xmlnode.Leaf("Value", value),
	)
}

func customsClearance(cfg Config, s *shipper.Shipment, opts shipper.Options) *xmlnode.Node {
	pkgs := s.Packages()
	first := pkgs[0]
	currency := first.CurrencyOrDefault()

	var valueCents, freightCents int64
	for _, pkg := range pkgs {
		valueCents += pkg.ValueCents()
		freightCents += pkg.CostCents
	}

	node := xmlnode.New("CustomsClearanceDetail")
	if opts.Broker != "" {
		node.Add(
			xmlnode.Leaf("ClearanceBrokerage", opts.Broker),
			payment("DutiesPayment", "RECIPIENT", "", ""),
		)
	} else {
		node.Add(payment("DutiesPayment", "SENDER", cfg.Account, s.Origin().CountryCode))
	}

	node.Add(
		money("CustomsValue", valueCents, currency),
		xmlnode.Bool("PartiesToTransactionAreRelated", false, xmlnode.Lower),
		xmlnode.New("CommercialInvoice",
			money("FreightCharge", freightCents, currency),
			xmlnode.Leaf("DeclarationStatment", DeclarationStatement),
			xmlnode.Leaf("Purpose", "SOLD"),
			xmlnode.NonEmpty("CustomerInvoiceNumber", first.Reference1),
			xmlnode.Leaf("TermsOfSale", "CFR_OR_CPT"),
		),
	)
	for _, pkg := range pkgs {
		node.Add(commodity(s, pkg))
	}
	return node
}

func commodity(s *shipper.Shipment, pkg shipper.Package) *xmlnode.Node {
	units := pkg.UnitCount()
	value := pkg.ValueCents()
	currency := pkg.CurrencyOrDefault()

	description := s.Description()
	if len(pkg.Customs) > 0 && pkg.Customs[0].Description != "" {
		description = pkg.Customs[0].Description
	}

	return xmlnode.New("Commodities",
		xmlnode.Int("NumberOfPieces", units),
		xmlnode.Leaf("Description", description),
		xmlnode.Leaf("CountryOfManufacture", s.Origin().CountryCode),
		weight(s.Origin(), pkg),
		xmlnode.Int("Quantity", units),
		xmlnode.Leaf("QuantityUnits", "EA"),
		money("UnitPrice", value/int64(units), currency),
		money("CustomsValue", value, currency),
	)
}

func payment(name, paymentType, account, country string) *xmlnode.Node {
	node := xmlnode.New(name, xmlnode.Leaf("PaymentType", paymentType))
	if account == "" {
		return node
	}
	return node.Add(xmlnode.New("Payor",
		xmlnode.Leaf("AccountNumber", account),
		xmlnode.Leaf("CountryCode", country),
	))
}

func smartPostDetail(opts shipper.Options) *xmlnode.Node {
	return xmlnode.New("SmartPostDetail",
		xmlnode.Leaf("Indicia", orDefault(opts.Indicia, defaultIndicia)),
		xmlnode.NonEmpty("AncillaryEndorsement", opts.AncillaryEndorsement),
		xmlnode.Leaf("HubId", orDefault(opts.HubID, defaultSmartPostHubID)),
		xmlnode.NonEmpty("CustomerManifestId", opts.CustomerManifestID),
	)
}

func labelSpecification(serviceCode string, opts shipper.Options) *xmlnode.Node {
	stock := orDefault(opts.LabelStockType, defaultLabelStockType)
	if UsePaperLabels(serviceCode, opts) {
		stock = paperLabelStockType
	}
	return xmlnode.New("LabelSpecification",
		xmlnode.Leaf("LabelFormatType", orDefault(opts.LabelFormatType, defaultLabelFormatType)),
		xmlnode.Leaf("ImageType", LabelImageType(serviceCode, opts)),
		xmlnode.Leaf("LabelStockType", stock),
	)
}

func shippingDocumentSpecification() *xmlnode.Node {
	usage := func(usageType, id string) *xmlnode.Node {
		return xmlnode.New("CustomerImageUsages",
			xmlnode.Leaf("Type", usageType),
			xmlnode.Leaf("Id", id),
		)
	}
	return xmlnode.New("ShippingDocumentSpecification",
		xmlnode.Leaf("ShippingDocumentTypes", "COMMERCIAL_INVOICE"),
		xmlnode.New("CommercialInvoiceDetail",
			xmlnode.New("Format",
				xmlnode.Leaf("ImageType", "PDF"),
				xmlnode.Leaf("StockType", "PAPER_LETTER"),
			),
			usage("LETTER_HEAD", "IMAGE_1"),
			usage("SIGNATURE", "IMAGE_2"),
		),
	)
}

func money(name string, cents int64, currency string) *xmlnode.Node {
	return xmlnode.New(name,
		xmlnode.Leaf("Currency", currency),
		xmlnode.Leaf("Amount", fmt.Sprintf("%.2f", float64(cents)/100)),
	)
}

func dateLeaf(name string, t *time.Time) *xmlnode.Node {
	if t == nil {
		return nil
	}
	return xmlnode.Leaf(name, t.Format(time.DateOnly))
}

func transactionID(opts shipper.Options) string {
	if opts.TransactionID != "" {
		return opts.TransactionID
	}
	return uuid.NewString()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
