package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lapply/lapply/internal/entity"
	"github.com/lapply/lapply/internal/service"
	"github.com/lapply/lapply/pkg/line"
)

const cancelCommandPrefix = "cancel="

// LineWebhookHandler serves the Messaging API webhook for the cancel
// conversation: the user sends "キャンセル", the bot lists their upcoming
// applications, and picking one runs the shared cancellation sequence.
type LineWebhookHandler struct {
	channelSecret  string
	channelToken   string
	organizationID string
	queries        service.ApplicationQueryService
	cancellations  service.CancellationService
	client         *line.Client
}

func NewLineWebhookHandler(
	channelSecret, channelToken, organizationID string,
	queries service.ApplicationQueryService,
	cancellations service.CancellationService,
	client *line.Client,
) *LineWebhookHandler {
	return &LineWebhookHandler{
		channelSecret:  channelSecret,
		channelToken:   channelToken,
		organizationID: organizationID,
		queries:        queries,
		cancellations:  cancellations,
		client:         client,
	}
}

func (h *LineWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if !line.ValidateSignature(h.channelSecret, body, c.GetHeader("X-Line-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	for _, event := range req.Events {
		switch {
		case event.Type == "message" && event.Message != nil:
			h.handleMessage(ctx, event)
		case event.Type == "postback" && event.Postback != nil:
			h.handleCancelCommand(ctx, event.ReplyToken, event.Postback.Data)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LineWebhookHandler) handleMessage(ctx context.Context, event line.WebhookEvent) {
	text := strings.TrimSpace(event.Message.Text)

	if strings.HasPrefix(text, cancelCommandPrefix) {
		h.handleCancelCommand(ctx, event.ReplyToken, text)
		return
	}

	if text != "キャンセル" && !strings.EqualFold(text, "cancel") {
		return
	}

	applications, err := h.queries.FindCancelable(ctx, event.Source.UserID, h.organizationID, time.Now())
	if err != nil {
		logrus.WithError(err).Error("failed to list cancelable applications")
		h.reply(ctx, event.ReplyToken, "予約の取得に失敗しました。時間をおいて再度お試しください。")
		return
	}

	if len(applications) == 0 {
		h.reply(ctx, event.ReplyToken, "キャンセルできる予約はありません。")
		return
	}

	var sb strings.Builder
	sb.WriteString("キャンセルする予約を選んでください:\n")
	for i, app := range applications {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, app.SlotAt.Format("2006/01/02 15:04")))
		if app.Plan != "" {
			sb.WriteString(" " + app.Plan)
		}
		sb.WriteString("\n" + cancelCommandPrefix + app.ID + "\n")
	}
	h.reply(ctx, event.ReplyToken, sb.String())
}

func (h *LineWebhookHandler) handleCancelCommand(ctx context.Context, replyToken, data string) {
	if !strings.HasPrefix(data, cancelCommandPrefix) {
		return
	}
	applicationID := strings.TrimPrefix(data, cancelCommandPrefix)

	result, err := h.cancellations.Cancel(ctx, applicationID)
	if err != nil {
		if errors.Is(err, entity.ErrApplicationNotFound) {
			h.reply(ctx, replyToken, "対象の予約が見つかりませんでした。")
			return
		}
		logrus.WithError(err).WithField("application_id", applicationID).Error("cancel via LINE failed")
		h.reply(ctx, replyToken, "キャンセル処理に失敗しました。時間をおいて再度お試しください。")
		return
	}

	if result.Outcome == service.OutcomeNotCancelable {
		h.reply(ctx, replyToken, "この予約はこちらからはキャンセルできません。")
		return
	}

	h.reply(ctx, replyToken, "ご予約のキャンセルを受け付けました。")
}

func (h *LineWebhookHandler) reply(ctx context.Context, replyToken, text string) {
	if err := h.client.Reply(ctx, h.channelToken, replyToken, line.NewTextMessage(text)); err != nil {
		logrus.WithError(err).Error("failed to reply to LINE webhook event")
	}
}
