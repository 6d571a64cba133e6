package endicia_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/endicia"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, poster transport.Poster) *endicia.Client {
	t.Helper()
	c, err := endicia.NewWithPoster(testConfig, poster, otelzap.New(zap.NewNop()), nil)
	require.NoError(t, err)
	return c
}

func lastForm(t *testing.T, m *transport.MockPoster) (string, url.Values) {
	t.Helper()
	reqs := m.Requests()
	require.NotEmpty(t, reqs)
	req := reqs[len(reqs)-1]
	assert.Equal(t, transport.ContentTypeForm, req.ContentType)
	form, err := req.Form()
	require.NoError(t, err)
	return req.URL, form
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := endicia.New(endicia.Config{RequesterID: "lxxx"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrConfiguration)

	var cfgErr *shipper.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "endicia", cfgErr.Carrier)
	assert.Equal(t, []string{"AccountID", "PassPhrase"}, cfgErr.Missing)
}

func TestNew_UseMock(t *testing.T) {
	cfg := testConfig
	cfg.UseMock = true
	c, err := endicia.New(cfg, nil, nil)
	require.NoError(t, err)

	resp, err := c.CreateLabel(context.Background(), newShipment(t, nil), shipper.Options{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, []byte("mock label"), resp.Label.Data)
	assert.True(t, strings.HasPrefix(resp.Label.TrackingNumber, "9400"))

	balance, err := c.PostageBalance(context.Background(), shipper.Options{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)
}

func TestClient_Operations(t *testing.T) {
	c := newTestClient(t, transport.NewMockPoster())

	assert.Equal(t, "endicia", c.Name())
	assert.True(t, shipper.Supports(c, shipper.OpLabel))
	assert.True(t, shipper.Supports(c, shipper.OpRefund))
	assert.False(t, shipper.Supports(c, shipper.OpTrack))
	assert.False(t, shipper.Supports(c, shipper.OpValidateAddress))
}

func TestClient_Unsupported(t *testing.T) {
	m := transport.NewMockPoster()
	c := newTestClient(t, m)

	_, err := c.Track(context.Background(), "9400", shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrIncompleteCoverage)

	_, err = c.CloseManifest(context.Background(), shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrIncompleteCoverage)
	assert.Zero(t, m.Calls(), "unsupported operations never reach the network")
}

func TestClient_CreateLabel(t *testing.T) {
	m := transport.NewMockPoster([]byte(`<LabelRequestResponse><Status>0</Status><ErrorMessage/>` +
		`<Base64LabelImage>bGFiZWw=</Base64LabelImage><TrackingNumber>TN1</TrackingNumber>` +
		`<FinalPostage>5.05</FinalPostage></LabelRequestResponse>`))
	c := newTestClient(t, m)

	s := newShipment(t, nil)
	resp, err := c.CreateLabel(context.Background(), s, shipper.Options{})
	require.NoError(t, err)
	require.True(t, resp.Success)

	target, form := lastForm(t, m)
	assert.Equal(t, "https://www.envmgr.com/LabelService/EwsLabelService.asmx/GetPostageLabelXML", target)
	assert.Empty(t, form.Get("method"))
	assert.True(t, strings.HasPrefix(form.Get("labelRequestXML"), "<LabelRequest "))
	assert.Contains(t, form.Get("labelRequestXML"), "<ToZIP4>1234</ToZIP4>")

	recorded := s.Record(resp)
	assert.Equal(t, "TN1", recorded.Tracking())
	assert.Equal(t, []byte("label"), recorded.LabelImage())
	assert.Equal(t, 5.05, recorded.Postage().Amount)
	assert.Empty(t, recorded.ErrorMessage())
	assert.Empty(t, s.Tracking(), "Record does not change the original")
}

func TestClient_CreateLabel_Rejected(t *testing.T) {
	m := transport.NewMockPoster([]byte(`<LabelRequestResponse><Status>1001</Status><ErrorMessage>Invalid ZIP</ErrorMessage></LabelRequestResponse>`))
	c := newTestClient(t, m)

	s := newShipment(t, nil)
	resp, err := c.CreateLabel(context.Background(), s, shipper.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid ZIP", s.Record(resp).ErrorMessage())
}

func TestClient_TransportFailure(t *testing.T) {
	m := transport.NewMockPoster()
	m.SimulateErrors = true
	c := newTestClient(t, m)

	_, err := c.CreateLabel(context.Background(), newShipment(t, nil), shipper.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrTransport)
	assert.Equal(t, 1, m.Calls(), "labels are never retried")
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, transport.NewMockPoster([]byte("<html><body>Bad Gateway")))
	_, err := c.FindRates(context.Background(), newShipment(t, nil), shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrMalformedResponse)
}

func TestClient_FindRates(t *testing.T) {
	m := transport.NewMockPoster([]byte(`<PostageRateResponse><PostagePrice TotalAmount="7.15"/></PostageRateResponse>`))
	c := newTestClient(t, m)

	resp, err := c.FindRates(context.Background(), newShipment(t, nil), shipper.Options{})
	require.NoError(t, err)
	require.Len(t, resp.Rates, 1)
	assert.Equal(t, 7.15, resp.Rates[0].TotalPrice.Amount)

	target, form := lastForm(t, m)
	assert.True(t, strings.HasSuffix(target, "/CalculatePostageRateXML"))
	assert.NotContains(t, form.Get("postageRateRequestXML"), "ToZIP4")
}

func TestClient_AccountOperations(t *testing.T) {
	m := endicia.NewMockPoster()
	c := newTestClient(t, m)
	ctx := context.Background()

	resp, err := c.BuyPostage(ctx, 100, shipper.Options{})
	require.NoError(t, err)
	assert.Equal(t, 200.0, resp.Account.PostageBalance)
	target, form := lastForm(t, m)
	assert.True(t, strings.HasSuffix(target, "/BuyPostageXML"))
	assert.Contains(t, form.Get("recreditRequestXML"), "<RecreditAmount>100.00</RecreditAmount>")

	_, err = c.ChangePassPhrase(ctx, "", shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrRequiredOption)

	resp, err = c.ChangePassPhrase(ctx, "rotated", shipper.Options{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	_, form = lastForm(t, m)
	assert.Contains(t, form.Get("changePassPhraseRequestXML"), "<NewPassPhrase>rotated</NewPassPhrase>")

	resp, err = c.AccountStatus(ctx, shipper.Options{})
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Account.Status)
}

func TestClient_PostageBalance_Rejected(t *testing.T) {
	c := newTestClient(t, transport.NewMockPoster([]byte(`<AccountStatusResponse><Status>12001</Status><ErrorMessage>Bad pass phrase</ErrorMessage></AccountStatusResponse>`)))
	_, err := c.PostageBalance(context.Background(), shipper.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad pass phrase")
}

func TestClient_RefundAndPickup(t *testing.T) {
	m := endicia.NewMockPoster()
	c := newTestClient(t, m)
	ctx := context.Background()

	_, err := c.Refund(ctx, nil, shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrRequiredOption)

	_, err = c.Refund(ctx, []string{"A", "A"}, shipper.Options{Test: true})
	require.NoError(t, err)
	target, form := lastForm(t, m)
	assert.Equal(t, "https://www.endicia.com/ELS/ELSServices.cfc?wsdl", target)
	assert.Equal(t, "RefundRequest", form.Get("method"))
	assert.Equal(t, 1, strings.Count(form.Get("XMLInput"), "<PICNumber>"))
	assert.Contains(t, form.Get("XMLInput"), "<Test>Y</Test>")

	resp, err := c.RequestPickup(ctx, newShipment(t, nil), []string{"A", "A"}, shipper.Options{})
	require.NoError(t, err)
	assert.Equal(t, "WTC123456", resp.Ack.Reference)
	_, form = lastForm(t, m)
	assert.Equal(t, "CarrierPickupRequest", form.Get("method"))
	assert.Equal(t, 2, strings.Count(form.Get("XMLInput"), "<PICNumber>"))
	assert.NotContains(t, form.Get("XMLInput"), "<Test>")
}

func TestClient_ConfigTestMode(t *testing.T) {
	cfg := testConfig
	cfg.Test = true
	m := endicia.NewMockPoster()
	c, err := endicia.NewWithPoster(cfg, m, nil, nil)
	require.NoError(t, err)

	_, err = c.Refund(context.Background(), []string{"A"}, shipper.Options{})
	require.NoError(t, err)
	_, form := lastForm(t, m)
	assert.Contains(t, form.Get("XMLInput"), "<Test>Y</Test>")
}
