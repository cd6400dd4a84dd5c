package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/viettravel/booking-backend/internal/config"
	"github.com/viettravel/booking-backend/internal/models"
)

// momoRequestType is the capture flow used for the hosted payment page
const momoRequestType = "payWithATM"

// MoMoGateway implements MoMo's v2 create API and return/IPN contract:
// HMAC-SHA256 hex signatures over the provider's fixed field order,
// result code "0" for success, "1000" while the user is still paying.
type MoMoGateway struct {
	cfg    config.MoMoConfig
	client *http.Client
}

// NewMoMoGateway creates a MoMo gateway adapter with a bounded HTTP timeout
func NewMoMoGateway(cfg config.MoMoConfig, timeout time.Duration) *MoMoGateway {
	return &MoMoGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the route tag for this gateway
func (g *MoMoGateway) Name() string {
	return "momo"
}

// Recognizes reports whether the raw params carry MoMo's field names
func (g *MoMoGateway) Recognizes(params url.Values) bool {
	return params.Get("partnerCode") != "" && params.Get("resultCode") != ""
}

// momoCreateRequest is the JSON body of the v2 create call
type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

// momoCreateResponse is the subset of the create response we act on
type momoCreateResponse struct {
	PayURL     string `json:"payUrl"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

// CreateRedirect calls MoMo's create API and returns the hosted payment URL
func (g *MoMoGateway) CreateRedirect(ctx context.Context, req *RedirectRequest) (*Redirect, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	requestID := uuid.New().String()
	extraData := ""

	// Field order in the signature base string is fixed by the provider
	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		g.cfg.AccessKey, req.Amount, extraData, g.cfg.IPNURL, req.OrderID,
		req.OrderInfo, g.cfg.PartnerCode, g.cfg.ReturnURL, requestID, momoRequestType)

	body := momoCreateRequest{
		PartnerCode: g.cfg.PartnerCode,
		AccessKey:   g.cfg.AccessKey,
		RequestID:   requestID,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		OrderInfo:   req.OrderInfo,
		RedirectURL: g.cfg.ReturnURL,
		IPNURL:      g.cfg.IPNURL,
		ExtraData:   extraData,
		RequestType: momoRequestType,
		Signature:   g.sign(raw),
		Lang:        "vi",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", models.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("create call failed: %w", err)
	}
	defer resp.Body.Close()

	var created momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}

	if created.ResultCode != 0 {
		return nil, fmt.Errorf("gateway refused payment creation: %s (code %d)", created.Message, created.ResultCode)
	}
	if created.PayURL == "" {
		return nil, fmt.Errorf("gateway returned no payment URL")
	}

	return &Redirect{URL: created.PayURL, OrderID: req.OrderID}, nil
}

// ParseReturn verifies the callback signature and normalizes the result
func (g *MoMoGateway) ParseReturn(params url.Values) (*ReturnData, error) {
	receivedSig := params.Get("signature")
	if receivedSig == "" {
		return nil, fmt.Errorf("%w: missing signature", models.ErrInvalidSignature)
	}

	// Callback signature base string: accessKey plus the response fields in
	// the provider's alphabetical order
	raw := fmt.Sprintf("accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		g.cfg.AccessKey,
		params.Get("amount"),
		params.Get("extraData"),
		params.Get("message"),
		params.Get("orderId"),
		params.Get("orderInfo"),
		params.Get("orderType"),
		params.Get("partnerCode"),
		params.Get("payType"),
		params.Get("requestId"),
		params.Get("responseTime"),
		params.Get("resultCode"),
		params.Get("transId"))

	expected := g.sign(raw)
	if !hmac.Equal([]byte(expected), []byte(receivedSig)) {
		return nil, models.ErrInvalidSignature
	}

	orderID := params.Get("orderId")
	if orderID == "" {
		return nil, fmt.Errorf("orderId is missing")
	}

	resultCode := params.Get("resultCode")
	var status Status
	switch resultCode {
	case "0":
		status = StatusSuccess
	case "1000":
		status = StatusPending
	default:
		status = StatusFailed
	}

	var amount int64
	if raw := params.Get("amount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		amount = parsed
	}

	return &ReturnData{
		OrderID:               orderID,
		Status:                status,
		ResponseCode:          resultCode,
		ProviderTransactionID: params.Get("transId"),
		Amount:                amount,
	}, nil
}

// DescribeResponseCode returns MoMo's documented message for a result code
func (g *MoMoGateway) DescribeResponseCode(code string) string {
	switch code {
	case "0":
		return "Giao dịch thành công."
	case "9000":
		return "Giao dịch đã được xác nhận thành công."
	case "1000":
		return "Giao dịch đã được khởi tạo, chờ người dùng xác nhận thanh toán."
	case "1001":
		return "Giao dịch thất bại do tài khoản người dùng không đủ tiền."
	case "1003":
		return "Giao dịch bị hủy."
	case "1004":
		return "Giao dịch thất bại do số tiền vượt quá hạn mức thanh toán của người dùng."
	case "1005":
		return "Giao dịch thất bại do url hoặc QR code đã hết hạn."
	case "1006":
		return "Giao dịch thất bại do người dùng đã từ chối xác nhận thanh toán."
	case "1007":
		return "Giao dịch bị từ chối vì tài khoản không tồn tại hoặc đang ở trạng thái ngưng hoạt động."
	case "2001":
		return "Giao dịch thất bại do sai thông tin liên kết."
	case "4001":
		return "Giao dịch bị hạn chế do người dùng chưa hoàn tất xác thực tài khoản."
	default:
		return "Giao dịch thất bại."
	}
}

// sign computes the HMAC-SHA256 hex digest of the base string
func (g *MoMoGateway) sign(data string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
