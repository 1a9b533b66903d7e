package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/internal/services"
	"github.com/charlesng35/larkrelay/pkg/crypto"
	apperrors "github.com/charlesng35/larkrelay/pkg/errors"
	"github.com/charlesng35/larkrelay/pkg/logger"
	"github.com/charlesng35/larkrelay/pkg/response"
)

const maxCallbackBytes = 1 << 20

// MessageHandler consumes received chat messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *lark.Message) (services.Outcome, error)
}

// LarkCallbackConfig holds the app's event subscription secrets.
type LarkCallbackConfig struct {
	VerificationToken string
	EncryptKey        string
}

// LarkCallbackHandler serves the event subscription endpoint.
type LarkCallbackHandler struct {
	messages MessageHandler
	cfg      LarkCallbackConfig
	log      *zap.Logger
}

// NewLarkCallbackHandler constructs the callback handler.
func NewLarkCallbackHandler(messages MessageHandler, cfg LarkCallbackConfig) *LarkCallbackHandler {
	return &LarkCallbackHandler{
		messages: messages,
		cfg:      cfg,
		log:      logger.WithModule("lark_callback"),
	}
}

// Handle POST /lark_callback
func (h *LarkCallbackHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("unable to read request body"))
		return
	}

	if !h.signatureValid(c, body) {
		response.Error(c, apperrors.ErrInvalidSignature)
		return
	}

	envelope, err := h.decode(body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !h.tokenValid(envelope.VerificationToken()) {
		response.Error(c, apperrors.ErrInvalidToken)
		return
	}

	if envelope.IsVerification() {
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})
		return
	}

	if envelope.EventType() == lark.EventTypeMessageReceive {
		outcome, err := h.messages.HandleMessage(c.Request.Context(), envelope.ReceivedMessage())
		if err != nil {
			h.log.Error("failed to handle message event", zap.Error(err))
			response.Error(c, err)
			return
		}
		h.log.Debug("message event handled", zap.String("outcome", string(outcome)))
	}

	response.Ack(c)
}

// signatureValid checks X-Lark-Signature when an encrypt key is configured and
// the request is signed. Unsigned requests pass and rely on the token check.
func (h *LarkCallbackHandler) signatureValid(c *gin.Context, body []byte) bool {
	if h.cfg.EncryptKey == "" {
		return true
	}
	signature := c.GetHeader(lark.HeaderSignature)
	timestamp := c.GetHeader(lark.HeaderRequestTimestamp)
	nonce := c.GetHeader(lark.HeaderRequestNonce)
	if signature == "" || timestamp == "" || nonce == "" {
		return true
	}
	return lark.VerifySignature(signature, timestamp, nonce, h.cfg.EncryptKey, string(body))
}

func (h *LarkCallbackHandler) decode(body []byte) (lark.EventEnvelope, error) {
	var envelope lark.EventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return lark.EventEnvelope{}, apperrors.NewBadRequest("invalid JSON payload")
	}
	if envelope.Encrypt == "" {
		return envelope, nil
	}

	if h.cfg.EncryptKey == "" {
		return lark.EventEnvelope{}, apperrors.NewBadRequest("encrypted events require an encrypt key")
	}
	plain, err := crypto.DecryptCBC(envelope.Encrypt, h.cfg.EncryptKey)
	if err != nil {
		return lark.EventEnvelope{}, apperrors.NewBadRequest("unable to decrypt event").WithInternal(err)
	}

	var decrypted lark.EventEnvelope
	if err := json.Unmarshal(plain, &decrypted); err != nil {
		return lark.EventEnvelope{}, apperrors.NewBadRequest("invalid decrypted payload")
	}
	return decrypted, nil
}

func (h *LarkCallbackHandler) tokenValid(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.VerificationToken)) == 1
}
