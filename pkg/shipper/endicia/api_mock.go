package endicia

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper/transport"
)

// NewMockPoster returns a transport that answers every Endicia operation with
// a plausible success reply.
func NewMockPoster() *transport.MockPoster {
	return &transport.MockPoster{
		OnPost: func(ctx context.Context, req transport.Request) ([]byte, error) {
			form, err := req.Form()
			if err != nil {
				return nil, err
			}
			return mockReply(req.URL, form.Get("method")), nil
		},
	}
}

func mockReply(target, method string) []byte {
	switch {
	case strings.HasSuffix(target, "/GetPostageLabelXML"):
		tracking := fmt.Sprintf("9400%018d", time.Now().UnixNano()%1e18)
		image := base64.StdEncoding.EncodeToString([]byte("mock label"))
		return []byte(`<LabelRequestResponse><Status>0</Status><ErrorMessage/>` +
			`<Base64LabelImage>` + image + `</Base64LabelImage>` +
			`<TrackingNumber>` + tracking + `</TrackingNumber>` +
			`<FinalPostage>5.05</FinalPostage></LabelRequestResponse>`)
	case strings.HasSuffix(target, "/CalculatePostageRateXML"):
		return []byte(`<PostageRateResponse><Status>0</Status>` +
			`<PostagePrice TotalAmount="5.05"><Postage TotalAmount="5.05"><MailService>Priority Mail</MailService></Postage></PostagePrice>` +
			`</PostageRateResponse>`)
	case strings.HasSuffix(target, "/GetAccountStatusXML"):
		return []byte(`<AccountStatusResponse><Status>0</Status><CertifiedIntermediary>` +
			`<AccountID>000000</AccountID><PostageBalance>100.00</PostageBalance>` +
			`<AscendingBalance>250.00</AscendingBalance><AccountStatus>A</AccountStatus>` +
			`</CertifiedIntermediary></AccountStatusResponse>`)
	case strings.HasSuffix(target, "/BuyPostageXML"):
		return []byte(`<RecreditRequestResponse><Status>0</Status><CertifiedIntermediary>` +
			`<AccountID>000000</AccountID><PostageBalance>200.00</PostageBalance>` +
			`<AscendingBalance>350.00</AscendingBalance></CertifiedIntermediary></RecreditRequestResponse>`)
	case strings.HasSuffix(target, "/ChangePassPhraseXML"):
		return []byte(`<ChangePassPhraseRequestResponse><Status>0</Status></ChangePassPhraseRequestResponse>`)
	case method == "RefundRequest":
		return []byte(`<RefundResponse><RefundList/></RefundResponse>`)
	case method == "CarrierPickupRequest":
		return []byte(`<CarrierPickupRequestResponse><Response><ConfirmationNumber>WTC123456</ConfirmationNumber></Response></CarrierPickupRequestResponse>`)
	default:
		return []byte(`<Error><ErrorMessage>Unknown mock operation</ErrorMessage></Error>`)
	}
}
