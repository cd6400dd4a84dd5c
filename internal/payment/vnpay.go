package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/viettravel/booking-backend/internal/config"
	"github.com/viettravel/booking-backend/internal/models"
)

// vnpTimeLayout is VNPay's yyyyMMddHHmmss timestamp format, Vietnam local time
const vnpTimeLayout = "20060102150405"

// vnpTZ is ICT (UTC+7); VNPay rejects create/expire dates in other zones
var vnpTZ = time.FixedZone("ICT", 7*3600)

// VNPayGateway implements the VNPay v2.1.0 hosted payment page contract:
// sorted URL-encoded parameters signed with HMAC-SHA512, response code "00"
// for success.
type VNPayGateway struct {
	cfg config.VNPayConfig
	now func() time.Time
}

// NewVNPayGateway creates a VNPay gateway adapter
func NewVNPayGateway(cfg config.VNPayConfig) *VNPayGateway {
	return &VNPayGateway{cfg: cfg, now: time.Now}
}

// Name returns the route tag for this gateway
func (g *VNPayGateway) Name() string {
	return "vnpay"
}

// Recognizes reports whether the raw params carry VNPay's field names
func (g *VNPayGateway) Recognizes(params url.Values) bool {
	return params.Get("vnp_TxnRef") != ""
}

// CreateRedirect builds the signed hosted-payment-page URL. VNPay needs no
// server-to-server call at creation time; the whole contract is in the URL.
func (g *VNPayGateway) CreateRedirect(_ context.Context, req *RedirectRequest) (*Redirect, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	now := g.now().In(vnpTZ)
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	// VNPay expects the amount multiplied by 100
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.OrderID)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_CreateDate", now.Format(vnpTimeLayout))
	params.Set("vnp_ExpireDate", now.Add(15*time.Minute).Format(vnpTimeLayout))

	query := params.Encode()
	secureHash := g.sign(query)

	return &Redirect{
		URL:     g.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + secureHash,
		OrderID: req.OrderID,
	}, nil
}

// ParseReturn verifies vnp_SecureHash and normalizes the result. Any
// signature mismatch is rejected before the payload is looked at.
func (g *VNPayGateway) ParseReturn(params url.Values) (*ReturnData, error) {
	receivedHash := params.Get("vnp_SecureHash")
	if receivedHash == "" {
		return nil, fmt.Errorf("%w: missing vnp_SecureHash", models.ErrInvalidSignature)
	}

	signed := url.Values{}
	for key, values := range params {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		for _, v := range values {
			signed.Add(key, v)
		}
	}

	expected := g.sign(signed.Encode())
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedHash))) {
		return nil, models.ErrInvalidSignature
	}

	orderID := params.Get("vnp_TxnRef")
	if orderID == "" {
		return nil, fmt.Errorf("vnp_TxnRef is missing")
	}

	responseCode := params.Get("vnp_ResponseCode")
	status := StatusFailed
	if responseCode == "00" {
		status = StatusSuccess
	}

	var amount int64
	if raw := params.Get("vnp_Amount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vnp_Amount %q: %w", raw, err)
		}
		amount = parsed / 100
	}

	return &ReturnData{
		OrderID:               orderID,
		Status:                status,
		ResponseCode:          responseCode,
		ProviderTransactionID: params.Get("vnp_TransactionNo"),
		Amount:                amount,
	}, nil
}

// DescribeResponseCode returns VNPay's documented message for a response
// code. The text is the provider's own wording, never invented.
func (g *VNPayGateway) DescribeResponseCode(code string) string {
	switch code {
	case "00":
		return "Giao dịch thành công"
	case "07":
		return "Trừ tiền thành công. Giao dịch bị nghi ngờ (liên quan tới lừa đảo, giao dịch bất thường)."
	case "09":
		return "Giao dịch không thành công do: Thẻ/Tài khoản của khách hàng chưa đăng ký dịch vụ InternetBanking tại ngân hàng."
	case "10":
		return "Giao dịch không thành công do: Khách hàng xác thực thông tin thẻ/tài khoản không đúng quá 3 lần"
	case "11":
		return "Giao dịch không thành công do: Đã hết hạn chờ thanh toán. Xin quý khách vui lòng thực hiện lại giao dịch."
	case "12":
		return "Giao dịch không thành công do: Thẻ/Tài khoản của khách hàng bị khóa."
	case "13":
		return "Giao dịch không thành công do Quý khách nhập sai mật khẩu xác thực giao dịch (OTP)."
	case "24":
		return "Giao dịch không thành công do: Khách hàng hủy giao dịch"
	case "51":
		return "Giao dịch không thành công do: Tài khoản của quý khách không đủ số dư để thực hiện giao dịch."
	case "65":
		return "Giao dịch không thành công do: Tài khoản của Quý khách đã vượt quá hạn mức giao dịch trong ngày."
	case "75":
		return "Ngân hàng thanh toán đang bảo trì."
	case "79":
		return "Giao dịch không thành công do: KH nhập sai mật khẩu thanh toán quá số lần quy định."
	default:
		return "Giao dịch thất bại"
	}
}

// sign computes the HMAC-SHA512 of the sorted, URL-encoded parameter string
func (g *VNPayGateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
