package shipper

// ResponseKind tags the payload carried by a Response.
type ResponseKind string

const (
	KindRateQuote        ResponseKind = "rate_quote"
	KindLabelIssued      ResponseKind = "label_issued"
	KindTrackingHistory  ResponseKind = "tracking_history"
	KindAddressValidated ResponseKind = "address_validated"
	KindAccountStatus    ResponseKind = "account_status"
	KindAcknowledged     ResponseKind = "acknowledged"
	KindCarrierError     ResponseKind = "carrier_error"
)

// Response is the canonical result of a carrier call. Exactly one payload
// pointer matching Kind is set. Carrier-level rejections are ordinary
// responses with Kind KindCarrierError and Success false; callers branch on
// Success rather than on a Go error.
type Response struct {
	Kind      ResponseKind
	Carrier   string
	Operation Operation
	Success   bool
	Message   string
	Raw       []byte

	Rates    []RateEstimate
	Label    *Label
	Tracking *TrackingHistory
	Address  *AddressValidation
	Account  *AccountStatus
	Ack      *Acknowledgement
	Error    *ShipperError
}

// AddressValidation is the carrier's classification of an address.
type AddressValidation struct {
	AddressType AddressType
	// Status is the carrier's verbatim classification.
	Status string
}

// AccountStatus describes a postage account.
type AccountStatus struct {
	AccountID        string
	Status           string
	PostageBalance   float64
	AscendingBalance float64
}

// AckItem is the per-item outcome inside an acknowledgement, e.g. one refund.
type AckItem struct {
	ID       string
	Approved bool
	Message  string
}

// Acknowledgement confirms a mutating operation.
type Acknowledgement struct {
	// Reference is the carrier's confirmation: an image id, pickup
	// confirmation number or shipping cycle.
	Reference string
	Items     []AckItem
	// Document holds decoded bytes returned with the acknowledgement, such as
	// a ground close manifest.
	Document []byte
}

// NewCarrierErrorResponse builds the unsuccessful response for a carrier-level
// rejection.
func NewCarrierErrorResponse(carrier string, op Operation, code, message string, raw []byte) *Response {
	return &Response{
		Kind:      KindCarrierError,
		Carrier:   carrier,
		Operation: op,
		Success:   false,
		Message:   message,
		Raw:       raw,
		Error:     NewShipperError(carrier, code, message),
	}
}
