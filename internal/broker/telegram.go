package broker

import (
	"encoding/json"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"

	"github.com/chatbridge/go-bridge-backend/internal/domain"
)

// normalizeTelegram converts a Bot API update into a canonical message.
//
// The stable conversation id is the sender id for private chats and the chat
// id for groups, so a user's private conversation survives even if their
// client migrates between chat instances. Updates without a text message
// (edits, channel posts, callbacks) are no-ops.
func normalizeTelegram(botID string, payload []byte) (domain.CanonicalMessage, bool, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		return domain.CanonicalMessage{}, false, err
	}
	m := update.Message
	if m == nil || m.Chat == nil || m.From == nil {
		return domain.CanonicalMessage{}, false, nil
	}
	if m.Text == "" {
		return domain.CanonicalMessage{}, false, nil
	}

	chatType := m.Chat.Type
	conversationID := strconv.FormatInt(m.From.ID, 10)
	if chatType == "group" || chatType == "supergroup" {
		conversationID = strconv.FormatInt(m.Chat.ID, 10)
	}

	name := strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)

	msg := domain.CanonicalMessage{
		Platform:       domain.PlatformTelegram,
		InstanceID:     botID,
		ConversationID: conversationID,
		SenderID:       strconv.FormatInt(m.From.ID, 10),
		SenderName:     name,
		Content:        m.Text,
		Metadata: map[string]string{
			domain.MetaChatType: chatType,
			domain.MetaPrivate:  strconv.FormatBool(chatType == "private"),
		},
	}
	if m.From.UserName != "" {
		msg.Metadata[domain.MetaUsername] = m.From.UserName
	}
	if m.From.IsBot {
		msg.Metadata[domain.MetaIsBot] = "true"
	}
	if tag, err := language.Parse(m.From.LanguageCode); err == nil {
		msg.Metadata[domain.MetaLanguage] = tag.String()
	}
	return msg, true, nil
}
