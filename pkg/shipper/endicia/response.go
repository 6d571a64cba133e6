package endicia

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/xmlnode"
)

// ParseLabelResponse decodes a LabelRequestResponse.
func ParseLabelResponse(raw []byte, imageFormat string) (*shipper.Response, error) {
	root, failed, err := open(shipper.OpLabel, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	parts, err := labelParts(raw, root)
	if err != nil {
		return nil, err
	}
	var data []byte
	if len(parts) > 0 {
		data = parts[0]
	}
	customsDoc, err := decode(shipper.OpLabel, raw, xmlnode.TextAt(root, "CustomsForm/Image"))
	if err != nil {
		return nil, err
	}

	label := &shipper.Label{
		Data:            data,
		Parts:           parts,
		Format:          shipper.LabelFormat(imageFormat),
		TrackingNumber:  xmlnode.TextAt(root, "TrackingNumber"),
		CustomsDocument: customsDoc,
	}
	if postage := xmlnode.TextAt(root, "FinalPostage"); postage != "" {
		label.Postage = &shipper.Money{Amount: xmlnode.FloatAt(root, "FinalPostage"), Currency: "USD"}
	}

	return &shipper.Response{
		Kind:      shipper.KindLabelIssued,
		Carrier:   carrierName,
		Operation: shipper.OpLabel,
		Success:   true,
		Raw:       raw,
		Label:     label,
	}, nil
}

// ParseRateResponse decodes a PostageRateResponse into one estimate for the
// requested mail class.
func ParseRateResponse(raw []byte, mailClass string, packages []shipper.Package) (*shipper.Response, error) {
	root, failed, err := open(shipper.OpRate, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	price := xmlnode.AttrAt(root, "PostagePrice", "TotalAmount")
	if price == "" {
		price = xmlnode.AttrAt(root, "PostagePrice/Postage", "TotalAmount")
	}
	if price == "" {
		return shipper.NewCarrierErrorResponse(carrierName, shipper.OpRate, xmlnode.TextAt(root, "Status"),
			"No postage price returned for "+mailClass, raw), nil
	}

	name := xmlnode.TextAt(root, "PostagePrice/Postage/MailService")
	if name == "" {
		name = "USPS " + mailClass
	}

	rate := shipper.RateEstimate{
		Carrier:     carrierName,
		ServiceName: name,
		ServiceCode: mailClass,
		TotalPrice:  shipper.Money{Amount: parseFloat(price), Currency: "USD"},
		Packages:    packages,
	}

	return &shipper.Response{
		Kind:      shipper.KindRateQuote,
		Carrier:   carrierName,
		Operation: shipper.OpRate,
		Success:   true,
		Raw:       raw,
		Rates:     []shipper.RateEstimate{rate},
	}, nil
}

// ParseAccountStatusResponse decodes an AccountStatusResponse.
func ParseAccountStatusResponse(raw []byte) (*shipper.Response, error) {
	return parseAccount(shipper.OpAccountStatus, raw)
}

// ParseBuyPostageResponse decodes a RecreditRequestResponse; the payload is
// the account state after the purchase.
func ParseBuyPostageResponse(raw []byte) (*shipper.Response, error) {
	return parseAccount(shipper.OpBuyPostage, raw)
}

func parseAccount(op shipper.Operation, raw []byte) (*shipper.Response, error) {
	root, failed, err := open(op, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	return &shipper.Response{
		Kind:      shipper.KindAccountStatus,
		Carrier:   carrierName,
		Operation: op,
		Success:   true,
		Raw:       raw,
		Account: &shipper.AccountStatus{
			AccountID:        xmlnode.TextAt(root, ".//AccountID"),
			Status:           xmlnode.TextAt(root, ".//AccountStatus"),
			PostageBalance:   xmlnode.FloatAt(root, ".//PostageBalance"),
			AscendingBalance: xmlnode.FloatAt(root, ".//AscendingBalance"),
		},
	}, nil
}

// ParseChangePassPhraseResponse decodes a ChangePassPhraseRequestResponse.
func ParseChangePassPhraseResponse(raw []byte) (*shipper.Response, error) {
	_, failed, err := open(shipper.OpChangePassPhrase, raw)
	if failed != nil || err != nil {
		return failed, err
	}
	return acknowledged(shipper.OpChangePassPhrase, raw, &shipper.Acknowledgement{}), nil
}

// ParseRefundResponse decodes an ELS RefundResponse with one item per
// tracking number.
func ParseRefundResponse(raw []byte) (*shipper.Response, error) {
	root, failed, err := open(shipper.OpRefund, raw)
	if failed != nil || err != nil {
		return failed, err
	}

	ack := &shipper.Acknowledgement{}
	for _, pic := range root.FindElements("RefundList/PICNumber") {
		ack.Items = append(ack.Items, shipper.AckItem{
			ID:       strings.TrimSpace(pic.Text()),
			Approved: strings.EqualFold(xmlnode.TextAt(pic, "IsApproved"), "YES"),
			Message:  xmlnode.TextAt(pic, "ErrorMsg"),
		})
	}
	return acknowledged(shipper.OpRefund, raw, ack), nil
}

// ParsePickupResponse decodes an ELS carrier pickup response.
func ParsePickupResponse(raw []byte) (*shipper.Response, error) {
	root, failed, err := open(shipper.OpPickup, raw)
	if failed != nil || err != nil {
		return failed, err
	}
	return acknowledged(shipper.OpPickup, raw, &shipper.Acknowledgement{
		Reference: xmlnode.TextAt(root, ".//ConfirmationNumber"),
	}), nil
}

// open parses raw. A carrier-reported error comes back as the failed
// response; only unparseable input is an error.
func open(op shipper.Operation, raw []byte) (*etree.Element, *shipper.Response, error) {
	root, err := xmlnode.Parse(raw)
	if err != nil {
		return nil, nil, &shipper.MalformedResponseError{Carrier: carrierName, Operation: op, Body: raw, Cause: err}
	}

	if msg := errorMessage(root); msg != "" {
		return root, shipper.NewCarrierErrorResponse(carrierName, op, xmlnode.TextAt(root, "Status"), msg, raw), nil
	}
	return root, nil, nil
}

// errorMessage reads the label server's ErrorMessage or the ELS ErrorMsg.
func errorMessage(root *etree.Element) string {
	msg := xmlnode.TextAt(root, "ErrorMessage")
	if msg == "" {
		msg = xmlnode.TextAt(root, "ErrorMsg")
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(msg, `"`, "")), " ")
}

func acknowledged(op shipper.Operation, raw []byte, ack *shipper.Acknowledgement) *shipper.Response {
	return &shipper.Response{
		Kind:      shipper.KindAcknowledged,
		Carrier:   carrierName,
		Operation: op,
		Success:   true,
		Raw:       raw,
		Ack:       ack,
	}
}

// labelParts decodes a single Base64LabelImage, or every Label/Image in
// PartNumber order.
func labelParts(raw []byte, root *etree.Element) ([][]byte, error) {
	if single := xmlnode.TextAt(root, "Base64LabelImage"); single != "" {
		data, err := decode(shipper.OpLabel, raw, single)
		if err != nil {
			return nil, err
		}
		return [][]byte{data}, nil
	}

	images := root.FindElements("Label/Image")
	sort.SliceStable(images, func(i, j int) bool {
		return partNumber(images[i]) < partNumber(images[j])
	})
	var parts [][]byte
	for _, img := range images {
		data, err := decode(shipper.OpLabel, raw, strings.TrimSpace(img.Text()))
		if err != nil {
			return nil, err
		}
		if data != nil {
			parts = append(parts, data)
		}
	}
	return parts, nil
}

func partNumber(el *etree.Element) int {
	n, err := strconv.Atoi(el.SelectAttrValue("PartNumber", ""))
	if err != nil {
		return 0
	}
	return n
}

func decode(op shipper.Operation, raw []byte, encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := xmlnode.DecodeBase64(encoded)
	if err != nil {
		return nil, &shipper.MalformedResponseError{Carrier: carrierName, Operation: op, Body: raw, Cause: err}
	}
	return data, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
