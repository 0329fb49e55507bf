package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID    string
	MsgID     string
	MsgType   string   // text, post, image, file
	ChatType  string   // p2p (private), group
	Content   string   // Text content (text and post messages)
	ImageKeys []string // Image keys for downloading
	FileKey   string   // File key (file messages)
	FileName  string   // File name (file messages)
	Sender    *Sender  // Message sender info
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID  string
	Name    string
	OwnerID string // open_id of the owner
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    logger.With("component", "feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and starts listening for messages (blocking)
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers the event
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting websocket connection")
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	msg := ParseEvent(event)
	if msg == nil {
		return
	}
	c.logger.Debug("message received", "type", msg.MsgType, "chat", msg.ChatID, "msg_id", msg.MsgID)
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// ParseEvent converts a receive event into a Message.
// Returns nil for the bot's own messages and unsupported types.
func ParseEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	rawMsg := event.Event.Message

	// Filter out messages sent by apps (including this bot) to prevent loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil && *event.Event.Sender.SenderType == "app" {
		return nil
	}

	msg := &Message{
		ChatID:  deref(rawMsg.ChatId),
		MsgID:   deref(rawMsg.MessageId),
		MsgType: deref(rawMsg.MessageType),
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if event.Event.Sender != nil {
		msg.Sender = &Sender{SenderType: deref(event.Event.Sender.SenderType)}
		if event.Event.Sender.SenderId != nil {
			msg.Sender.SenderID = deref(event.Event.Sender.SenderId.OpenId)
		}
	}

	content := deref(rawMsg.Content)
	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content)
	case "post":
		msg.Content, msg.ImageKeys = parsePostContent(content)
	case "image":
		msg.ImageKeys = parseImageContent(content)
	case "file":
		msg.FileKey, msg.FileName = parseFileContent(content)
	default:
		return nil
	}
	return msg
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseTextContent extracts text from a text message
func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.Text
}

// parseImageContent extracts image key from an image message
func parseImageContent(content string) []string {
	var parsed struct {
		ImageKey string `json:"image_key"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.ImageKey == "" {
		return nil
	}
	return []string{parsed.ImageKey}
}

// parseFileContent extracts file key and name from a file message
func parseFileContent(content string) (string, string) {
	var parsed struct {
		FileKey  string `json:"file_key"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", ""
	}
	return parsed.FileKey, parsed.FileName
}

// parsePostContent extracts text and images from a rich text message
func parsePostContent(content string) (string, []string) {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag      string `json:"tag"`
			Text     string `json:"text,omitempty"`
			ImageKey string `json:"image_key,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", nil
	}

	var textParts []string
	var imageKeys []string
	if parsed.Title != "" {
		textParts = append(textParts, parsed.Title)
	}
	for _, line := range parsed.Content {
		var lineParts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				if elem.Text != "" {
					lineParts = append(lineParts, elem.Text)
				}
			case "img":
				if elem.ImageKey != "" {
					imageKeys = append(imageKeys, elem.ImageKey)
				}
			}
		}
		if len(lineParts) > 0 {
			textParts = append(textParts, strings.Join(lineParts, ""))
		}
	}
	return strings.Join(textParts, "\n"), imageKeys
}

// DownloadResource downloads an image or file attached to a message.
// resourceType is "image" or "file".
func (c *Client) DownloadResource(ctx context.Context, messageID, key, resourceType string) ([]byte, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(key).
		Type(resourceType).
		Build()

	resp, err := c.larkCli.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get resource error: %s", resp.Msg)
	}

	data, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource: %w", err)
	}
	return data, nil
}

// UploadImage uploads an image for sending and returns its image_key
func (c *Client) UploadImage(ctx context.Context, data []byte) (string, error) {
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(larkim.ImageTypeMessage).
			Image(bytes.NewReader(data)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("upload image: no image_key returned")
	}
	return *resp.Data.ImageKey, nil
}

// SendText sends a text message to a chat.
// uuid deduplicates retries of the same message.
func (c *Client) SendText(ctx context.Context, chatID, text, uuid string) error {
	content, _ := json.Marshal(map[string]string{"text": text})
	return c.send(ctx, chatID, larkim.MsgTypeText, string(content), uuid)
}

// SendImage sends an uploaded image to a chat
func (c *Client) SendImage(ctx context.Context, chatID, imageKey, uuid string) error {
	content, _ := json.Marshal(map[string]string{"image_key": imageKey})
	return c.send(ctx, chatID, larkim.MsgTypeImage, string(content), uuid)
}

func (c *Client) send(ctx context.Context, chatID, msgType, content, uuid string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Uuid(uuid).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	info := &ChatInfo{ChatID: chatID}
	if resp.Data != nil {
		info.Name = deref(resp.Data.Name)
		info.OwnerID = deref(resp.Data.OwnerId)
	}
	return info, nil
}

// ListChats returns the IDs of all chats the bot is a member of
func (c *Client) ListChats(ctx context.Context) ([]string, error) {
	var chatIDs []string
	var pageToken string

	for {
		reqBuilder := larkim.NewListChatReqBuilder().PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chats error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			if item.ChatId != nil {
				chatIDs = append(chatIDs, *item.ChatId)
			}
		}

		// Check if there are more pages
		if resp.Data.HasMore == nil || !*resp.Data.HasMore || resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	c.logger.Info("listed chats", "count", len(chatIDs))
	return chatIDs, nil
}
