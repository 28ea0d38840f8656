package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ticket-service/internal/util"

	"go.uber.org/zap"
)

// Wire modes
const (
	modeApproval = "approval"
	modeCancel   = "cancel"
)

// ResultCodeSuccess is the PG's designated success code.
const ResultCodeSuccess = "0000"

// Exchanger is the transport seam. *Transport satisfies it; tests plug
// in fakes.
type Exchanger interface {
	Exchange(ctx context.Context, payload []byte) ([]byte, error)
}

// Client drives the Approve and Cancel workflows against the PG:
// build -> serialize -> encrypt -> exchange -> decrypt -> interpret.
// It holds no persistence; callers own order state.
type Client struct {
	serviceID string
	transport Exchanger
	cipher    *BlockCipherCodec
	checksum  *ChecksumCodec
	logger    *zap.Logger
}

// NewClient composes the codecs and transport into a PG client.
func NewClient(serviceID string, transport Exchanger, cipher *BlockCipherCodec, checksum *ChecksumCodec) *Client {
	return &Client{
		serviceID: serviceID,
		transport: transport,
		cipher:    cipher,
		checksum:  checksum,
		logger:    util.GetLogger(),
	}
}

// Checksum returns the tamper token binding (serviceId, orderId, amount)
// for the payment popup. Computed at preparation time so the amount the
// customer saw is the amount the PG settles.
func (c *Client) Checksum(orderID string, amount int64) (string, error) {
	return c.checksum.Generate(SignedFields(c.serviceID, orderID, amount))
}

// VerifyChecksum re-checks a token against the same signed fields.
func (c *Client) VerifyChecksum(token, orderID string, amount int64) bool {
	return c.checksum.Verify(token, SignedFields(c.serviceID, orderID, amount))
}

// ApproveRequest carries the fields the PG popup returned plus our own
// order identity.
type ApproveRequest struct {
	PayMethod     string
	OrderID       string
	Amount        int64
	Key           string
	PlainMsgOK    bool
	TransactionNo string
	AuthType      string
	Iden          string
	IPAddr        string
}

// ApproveResult is a successful approval. Fields holds the full decoded
// reply for audit.
type ApproveResult struct {
	ApprovalNo    string
	TransactionNo string
	PayMethod     string
	Fields        map[string]string
}

// Approve runs the approval exchange. Not safe to retry blindly: a lost
// response does not mean the PG did not charge. Errors are typed -
// *TransportError, *ProtocolError, or ErrCipherDecode.
func (c *Client) Approve(ctx context.Context, req ApproveRequest) (*ApproveResult, error) {
	msg := NewMessage().
		Set("Mode", modeApproval).
		Set("ServiceId", c.serviceID).
		Set("PayMethod", req.PayMethod).
		Set("OrderNo", req.OrderID).
		Set("Amount", strconv.FormatInt(req.Amount, 10)).
		Set("Key", req.Key).
		Set("TransactionNo", req.TransactionNo).
		Set("AuthType", req.AuthType).
		Set("Iden", req.Iden).
		Set("IpAddr", req.IPAddr)
	if req.PlainMsgOK {
		msg.Set("PlainMsgOk", "Y")
	}

	reply, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}

	approvalNo, _ := reply.Get("ApprovalNo")
	transactionNo, _ := reply.Get("TransactionNo")
	payMethod, _ := reply.Get("PayMethod")
	if payMethod == "" {
		payMethod = req.PayMethod
	}

	c.logger.Info("Gateway approval succeeded",
		zap.String("order_id", req.OrderID),
		zap.String("approval_no", approvalNo))

	return &ApproveResult{
		ApprovalNo:    approvalNo,
		TransactionNo: transactionNo,
		PayMethod:     payMethod,
		Fields:        reply.Map(),
	}, nil
}

// CancelRequest cancels a settled payment, fully or partially.
type CancelRequest struct {
	OrderID       string
	TransactionNo string
	CancelAmount  int64
	Partial       bool
	Reason        string
	IPAddr        string
}

// CancelResult is a successful cancellation. RemainingAmount is only
// meaningful for partial cancels.
type CancelResult struct {
	CancelNo        string
	RemainingAmount int64
	Fields          map[string]string
}

// Cancel runs the cancel exchange. Preconditions (order completed,
// transaction reference present, amount within total) belong to the
// caller and are checked before any bytes hit the wire.
func (c *Client) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	partial := "N"
	if req.Partial {
		partial = "Y"
	}
	msg := NewMessage().
		Set("Mode", modeCancel).
		Set("ServiceId", c.serviceID).
		Set("OrderNo", req.OrderID).
		Set("TransactionNo", req.TransactionNo).
		Set("CancelAmount", strconv.FormatInt(req.CancelAmount, 10)).
		Set("PartialFlag", partial).
		Set("CancelReason", req.Reason).
		Set("IpAddr", req.IPAddr)

	reply, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}

	cancelNo, _ := reply.Get("CancelNo")
	var remaining int64
	if raw, ok := reply.Get("RemainAmount"); ok {
		remaining, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: RemainAmount %q", ErrCipherDecode, raw)
		}
	}

	c.logger.Info("Gateway cancel succeeded",
		zap.String("order_id", req.OrderID),
		zap.String("cancel_no", cancelNo),
		zap.Bool("partial", req.Partial))

	return &CancelResult{
		CancelNo:        cancelNo,
		RemainingAmount: remaining,
		Fields:          reply.Map(),
	}, nil
}

// roundTrip is the shared encrypt/exchange/decrypt/interpret path.
func (c *Client) roundTrip(ctx context.Context, msg *Message) (*Message, error) {
	ctx, span := util.StartSpan(ctx, "gateway.roundTrip")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayExchangeLatency.Observe(time.Since(start).Seconds())
	}()

	payload := c.cipher.Encrypt(msg.Serialize())

	raw, err := c.transport.Exchange(ctx, []byte(payload))
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("transport").Inc()
		c.logger.Error("Gateway exchange failed", zap.Error(err))
		return nil, err
	}

	plain, err := c.cipher.Decrypt(string(raw))
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("integrity").Inc()
		c.logger.Error("Gateway reply failed to decode", zap.Error(err))
		return nil, err
	}

	reply, err := ParseMessage(plain)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("integrity").Inc()
		c.logger.Error("Gateway reply failed to parse", zap.Error(err))
		return nil, err
	}

	code, ok := reply.Get("ResultCode")
	if !ok {
		util.GatewayErrorsTotal.WithLabelValues("protocol").Inc()
		return nil, &ProtocolError{Message: "reply missing ResultCode"}
	}
	if code != ResultCodeSuccess {
		reason, _ := reply.Get("ResultMsg")
		util.GatewayErrorsTotal.WithLabelValues("protocol").Inc()
		c.logger.Warn("Gateway declined request",
			zap.String("result_code", code),
			zap.String("result_msg", reason))
		return nil, &ProtocolError{Code: code, Message: reason}
	}
	return reply, nil
}
