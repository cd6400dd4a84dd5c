package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viettravel/booking-backend/internal/config"
	"github.com/viettravel/booking-backend/internal/models"
)

const momoTestSecret = "MOMOTESTSECRET"

func momoTestConfig(endpoint string) config.MoMoConfig {
	return config.MoMoConfig{
		PartnerCode: "MOMOTEST",
		AccessKey:   "testaccess",
		SecretKey:   momoTestSecret,
		Endpoint:    endpoint,
		ReturnURL:   "https://example.com/api/v1/payment/momo/return",
		IPNURL:      "https://example.com/api/v1/payment/momo/return",
	}
}

func momoSign(data string) string {
	mac := hmac.New(sha256.New, []byte(momoTestSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestMoMoCreateRedirect(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var received momoCreateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"payUrl":     "https://test-payment.momo.vn/pay/abc123",
				"resultCode": 0,
				"message":    "Thành công.",
			})
		}))
		defer server.Close()

		gw := NewMoMoGateway(momoTestConfig(server.URL), 5*time.Second)
		redirect, err := gw.CreateRedirect(context.Background(), &RedirectRequest{
			OrderID:   "order-123",
			Amount:    4860000,
			OrderInfo: "Thanh toan don hang BK12345678AB",
		})
		require.NoError(t, err)

		assert.Equal(t, "https://test-payment.momo.vn/pay/abc123", redirect.URL)
		assert.Equal(t, "order-123", redirect.OrderID)

		// The create request is signed over the provider's fixed field order
		assert.Equal(t, "MOMOTEST", received.PartnerCode)
		assert.Equal(t, "payWithATM", received.RequestType)
		expectedBase := fmt.Sprintf("accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
			"testaccess", int64(4860000),
			"https://example.com/api/v1/payment/momo/return",
			"order-123", "Thanh toan don hang BK12345678AB",
			"MOMOTEST",
			"https://example.com/api/v1/payment/momo/return",
			received.RequestID, "payWithATM")
		assert.Equal(t, momoSign(expectedBase), received.Signature)
	})

	t.Run("Gateway Refusal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"resultCode": 41,
				"message":    "Duplicated orderId",
			})
		}))
		defer server.Close()

		gw := NewMoMoGateway(momoTestConfig(server.URL), 5*time.Second)
		_, err := gw.CreateRedirect(context.Background(), &RedirectRequest{
			OrderID: "order-123",
			Amount:  4860000,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Duplicated orderId")
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		gw := NewMoMoGateway(momoTestConfig(server.URL), 20*time.Millisecond)
		_, err := gw.CreateRedirect(context.Background(), &RedirectRequest{
			OrderID: "order-123",
			Amount:  4860000,
		})
		assert.ErrorIs(t, err, models.ErrGatewayTimeout)
	})
}

func TestMoMoParseReturn(t *testing.T) {
	gw := NewMoMoGateway(momoTestConfig("https://test-payment.momo.vn"), 5*time.Second)

	buildReturn := func(resultCode string) url.Values {
		params := url.Values{}
		params.Set("partnerCode", "MOMOTEST")
		params.Set("orderId", "order-123")
		params.Set("requestId", "req-456")
		params.Set("amount", "4860000")
		params.Set("orderInfo", "Thanh toan don hang BK12345678AB")
		params.Set("orderType", "momo_wallet")
		params.Set("transId", "2147483647")
		params.Set("resultCode", resultCode)
		params.Set("message", "Thành công.")
		params.Set("payType", "qr")
		params.Set("responseTime", "1718445000000")
		params.Set("extraData", "")

		base := fmt.Sprintf("accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
			"testaccess",
			params.Get("amount"), params.Get("extraData"), params.Get("message"),
			params.Get("orderId"), params.Get("orderInfo"), params.Get("orderType"),
			params.Get("partnerCode"), params.Get("payType"), params.Get("requestId"),
			params.Get("responseTime"), params.Get("resultCode"), params.Get("transId"))
		params.Set("signature", momoSign(base))
		return params
	}

	t.Run("Success Code 0", func(t *testing.T) {
		ret, err := gw.ParseReturn(buildReturn("0"))
		require.NoError(t, err)

		assert.Equal(t, "order-123", ret.OrderID)
		assert.Equal(t, StatusSuccess, ret.Status)
		assert.Equal(t, "0", ret.ResponseCode)
		assert.Equal(t, "2147483647", ret.ProviderTransactionID)
		assert.Equal(t, int64(4860000), ret.Amount)
	})

	t.Run("Pending Code 1000", func(t *testing.T) {
		ret, err := gw.ParseReturn(buildReturn("1000"))
		require.NoError(t, err)
		assert.Equal(t, StatusPending, ret.Status)
	})

	t.Run("Failure Code 1006", func(t *testing.T) {
		ret, err := gw.ParseReturn(buildReturn("1006"))
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, ret.Status)
	})

	t.Run("Tampered Amount Rejected", func(t *testing.T) {
		params := buildReturn("0")
		params.Set("amount", "100")

		_, err := gw.ParseReturn(params)
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})

	t.Run("Missing Signature Rejected", func(t *testing.T) {
		params := buildReturn("0")
		params.Del("signature")

		_, err := gw.ParseReturn(params)
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})
}

func TestMoMoRecognizes(t *testing.T) {
	gw := NewMoMoGateway(momoTestConfig("https://test-payment.momo.vn"), 5*time.Second)

	params := url.Values{}
	params.Set("partnerCode", "MOMOTEST")
	params.Set("resultCode", "0")
	assert.True(t, gw.Recognizes(params))
	assert.False(t, gw.Recognizes(url.Values{}))
}
