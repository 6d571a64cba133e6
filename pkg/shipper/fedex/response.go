package fedex

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

// NoRatesMessage is reported when a successful rate reply lists no services.
const NoRatesMessage = "No shipping rates could be found for the destination address"

var errNoNotifications = errors.New("reply has no Notifications element")

// notification is the status block every FedEx reply carries.
type notification struct {
	severity string
	code     string
	message  string
}

func readNotification(root *etree.Element) (notification, bool) {
	n := root.FindElement("Notifications")
	if n == nil {
		return notification{}, false
	}
	return notification{
		severity: xmlnode.TextAt(n, "Severity"),
		code:     xmlnode.TextAt(n, "Code"),
		message:  xmlnode.TextAt(n, "Message"),
	}, true
}

func (n notification) success() bool {
	switch n.severity {
	case "SUCCESS", "WARNING", "NOTE":
		return true
	default:
		return false
	}
}

func (n notification) String() string {
	return fmt.Sprintf("%s - %s: %s", n.severity, n.code, n.message)
}

// ParseRateResponse decodes a RateReply. now anchors estimated delivery
// ranges.
func ParseRateResponse(raw []byte, packages []shipper.Package, now time.Time) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpRate, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	var rates []shipper.RateEstimate
	for _, detail := range root.SelectElements("RateReplyDetails") {
		rates = append(rates, rateEstimate(detail, packages, now))
	}

	if len(rates) == 0 {
		msg := note.String()
		if note.message == "" {
			msg = NoRatesMessage
		}
		return shipper.NewCarrierErrorResponse(carrierName, shipper.OpRate, note.code, msg, raw), nil
	}

	return &shipper.Response{
		Kind:      shipper.KindRateQuote,
		Carrier:   carrierName,
		Operation: shipper.OpRate,
		Success:   true,
		Message:   note.String(),
		Raw:       raw,
		Rates:     rates,
	}, nil
}

func rateEstimate(detail *etree.Element, packages []shipper.Package, now time.Time) shipper.RateEstimate {
	base := xmlnode.TextAt(detail, "ServiceType")
	code := base
	for _, opt := range detail.SelectElements("AppliedOptions") {
		if strings.TrimSpace(opt.Text()) == "SATURDAY_DELIVERY" {
			code = base + saturdaySuffix
			break
		}
	}

	transit := xmlnode.TextAt(detail, "CommitDetails/TransitTime")
	if transit == "" {
		transit = xmlnode.TextAt(detail, "TransitTime")
	}
	days := TransitDays(transit, base)

	charge := "RatedShipmentDetails/ShipmentRateDetail/TotalNetCharge"
	rate := shipper.RateEstimate{
		Carrier:     carrierName,
		ServiceName: ServiceNameForCode(code),
		ServiceCode: code,
		TotalPrice: shipper.Money{
			Amount:   xmlnode.FloatAt(detail, charge+"/Amount"),
			Currency: currencyCode(xmlnode.TextAt(detail, charge+"/Currency")),
		},
		TransitDays: days,
		Packages:    packages,
	}
	if days > 0 {
		at := now.AddDate(0, 0, days)
		rate.DeliveryRange = []time.Time{at, at}
	}
	if ts, ok := parseTimestamp(xmlnode.TextAt(detail, "DeliveryTimestamp")); ok {
		rate.DeliveryDate = &ts
	}
	return rate
}

// ParseProcessShipmentResponse decodes a ProcessShipmentReply. The customs
// document is read for international shipments only.
func ParseProcessShipmentResponse(raw []byte, imageType string, international bool) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpLabel, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	detail := root.FindElement("CompletedShipmentDetail")
	if detail == nil {
		return nil, malformed(shipper.OpLabel, raw, errors.New("reply has no CompletedShipmentDetail"))
	}

	data, err := decode(shipper.OpLabel, raw, xmlnode.JoinedTextAt(detail, "CompletedPackageDetails/Label/Parts/Image"))
	if err != nil {
		return nil, err
	}
	label := &shipper.Label{
		Data:           data,
		Format:         shipper.LabelFormat(imageType),
		TrackingNumber: xmlnode.TextAt(detail, "CompletedPackageDetails/TrackingIds/TrackingNumber"),
	}

	charge := "ShipmentRating/ShipmentRateDetails/TotalNetCharge"
	if detail.FindElement(charge) != nil {
		label.Postage = &shipper.Money{
			Amount:   xmlnode.FloatAt(detail, charge+"/Amount"),
			Currency: currencyCode(xmlnode.TextAt(detail, charge+"/Currency")),
		}
	}

	if international {
		label.CustomsDocument, err = decode(shipper.OpLabel, raw, xmlnode.JoinedTextAt(detail, "ShipmentDocuments/Parts/Image"))
		if err != nil {
			return nil, err
		}
	}

	return &shipper.Response{
		Kind:      shipper.KindLabelIssued,
		Carrier:   carrierName,
		Operation: shipper.OpLabel,
		Success:   true,
		Message:   note.String(),
		Raw:       raw,
		Label:     label,
	}, nil
}

// ParseAddressValidationResponse decodes an AddressValidationReply into the
// destination's address type.
func ParseAddressValidationResponse(raw []byte) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpValidateAddress, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	status := xmlnode.TextAt(root, "AddressResults/ProposedAddressDetails/ResidentialStatus")
	return &shipper.Response{
		Kind:      shipper.KindAddressValidated,
		Carrier:   carrierName,
		Operation: shipper.OpValidateAddress,
		Success:   true,
		Message:   note.String(),
		Raw:       raw,
		Address: &shipper.AddressValidation{
			AddressType: AddressTypeForStatus(status),
			Status:      status,
		},
	}, nil
}

// AddressTypeForStatus maps a ResidentialStatus. Anything not known to be a
// business is treated as a residence.
func AddressTypeForStatus(status string) shipper.AddressType {
	if strings.EqualFold(status, "BUSINESS") {
		return shipper.AddressCommercial
	}
	return shipper.AddressResidential
}

// ParseTrackResponse decodes a TrackReply. Events without a country are
// dropped and the rest are ordered by time.
func ParseTrackResponse(raw []byte) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpTrack, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	details := root.FindElement("TrackDetails")
	history := &shipper.TrackingHistory{
		TrackingNumber: xmlnode.TextAt(details, "TrackingNumber"),
		Destination: shipper.Location{
			CountryCode: xmlnode.TextAt(details, "DestinationAddress/CountryCode"),
			Province:    xmlnode.TextAt(details, "DestinationAddress/StateOrProvinceCode"),
			City:        xmlnode.TextAt(details, "DestinationAddress/City"),
		},
	}

	if details != nil {
		for _, ev := range details.SelectElements("Events") {
			country := xmlnode.TextAt(ev, "Address/CountryCode")
			if country == "" {
				continue
			}
			ts, ok := parseTimestamp(xmlnode.TextAt(ev, "Timestamp"))
			if !ok {
				continue
			}
			history.Events = append(history.Events, shipper.TrackingEvent{
				Timestamp: ts,
				Location: shipper.Location{
					CountryCode: country,
					Province:    xmlnode.TextAt(ev, "Address/StateOrProvinceCode"),
					City:        xmlnode.TextAt(ev, "Address/City"),
					PostalCode:  xmlnode.TextAt(ev, "Address/PostalCode"),
				},
				Description: xmlnode.TextAt(ev, "EventDescription"),
			})
		}
	}
	shipper.SortEvents(history.Events)

	return &shipper.Response{
		Kind:      shipper.KindTrackingHistory,
		Carrier:   carrierName,
		Operation: shipper.OpTrack,
		Success:   true,
		Message:   note.String(),
		Raw:       raw,
		Tracking:  history,
	}, nil
}

// ParseUploadImageResponse decodes an UploadImagesReply; the reference is
// the stored image id.
func ParseUploadImageResponse(raw []byte) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpUploadImage, raw)
	if failed != nil || err != nil {
		return failed, err
	}
	return acknowledged(shipper.OpUploadImage, raw, note, &shipper.Acknowledgement{
		Reference: xmlnode.TextAt(root, "ImageStatuses/Id"),
	}), nil
}

// ParseSmartPostCloseResponse decodes a SmartPostCloseReply.
func ParseSmartPostCloseResponse(raw []byte) (*shipper.Response, error) {
	_, note, failed, err := open(shipper.OpCloseManifest, raw)
	if failed != nil || err != nil {
		return failed, err
	}
	return acknowledged(shipper.OpCloseManifest, raw, note, &shipper.Acknowledgement{}), nil
}

// ParseGroundCloseResponse decodes a GroundCloseDocumentsReply; the
// reference is the shipping cycle and the document the manifest.
func ParseGroundCloseResponse(raw []byte) (*shipper.Response, error) {
	root, note, failed, err := open(shipper.OpCloseManifest, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	manifest, err := decode(shipper.OpCloseManifest, raw, xmlnode.JoinedTextAt(root, "CloseDocuments/Parts/Image"))
	if err != nil {
		return nil, err
	}
	return acknowledged(shipper.OpCloseManifest, raw, note, &shipper.Acknowledgement{
		Reference: xmlnode.TextAt(root, "CloseDocuments/ShippingCycle"),
		Document:  manifest,
	}), nil
}

// open parses raw and reads its notification. A carrier-reported failure
// comes back as the failed response; only unparseable input is an error.
func open(op shipper.Operation, raw []byte) (*etree.Element, notification, *shipper.Response, error) {
	root, err := xmlnode.Parse(raw)
	if err != nil {
		return nil, notification{}, nil, malformed(op, raw, err)
	}

	note, ok := readNotification(root)
	if !ok {
		return nil, notification{}, nil, malformed(op, raw, errNoNotifications)
	}
	if !note.success() {
		return root, note, shipper.NewCarrierErrorResponse(carrierName, op, note.code, note.String(), raw), nil
	}
	return root, note, nil, nil
}

func acknowledged(op shipper.Operation, raw []byte, note notification, ack *shipper.Acknowledgement) *shipper.Response {
	return &shipper.Response{
		Kind:      shipper.KindAcknowledged,
		Carrier:   carrierName,
		Operation: op,
		Success:   true,
		Message:   note.String(),
		Raw:       raw,
		Ack:       ack,
	}
}

func malformed(op shipper.Operation, raw []byte, cause error) error {
	return &shipper.MalformedResponseError{Carrier: carrierName, Operation: op, Body: raw, Cause: cause}
}

func decode(op shipper.Operation, raw []byte, encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := xmlnode.DecodeBase64(encoded)
	if err != nil {
		return nil, malformed(op, raw, err)
	}
	return data, nil
}

// currencyCode maps FedEx's legacy UKL to GBP.
func currencyCode(code string) string {
	if strings.EqualFold(code, "UKL") {
		return "GBP"
	}
	return code
}

// parseTimestamp reads an xs:dateTime. Values without a zone are taken as
// UTC; all results are in UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
