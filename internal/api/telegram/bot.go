package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "vision-cascade/internal/application"
	"vision-cascade/internal/domain/entity"
	"vision-cascade/internal/infrastructure/imageio"
)

const (
	msgStart = `👋 Привет! Я ищу объекты на фотографиях.

📸 Отправьте фото: сначала быстрая модель решит, что на нём может быть, затем запустятся только нужные детекторы.

📋 Команды:
/check — проверить фото
/prompts — задать свои промпты
/clear — вернуться к промптам по умолчанию
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото
2️⃣ Без своих промптов бот прогонит полный каскад и пришлёт найденные объекты
3️⃣ Со своими промптами бот пришлёт только их вероятности

💡 Промпты задаются через точку с запятой:
/prompts a pothole; a stray dog

📋 Команды:
/check — проверить фото
/prompts — задать промпты
/clear — сбросить промпты
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото для проверки."
	msgAwaitingPrompts = "✏️ Отправьте промпты через точку с запятой."
	msgPromptsSaved    = "✅ Промпты сохранены: %s"
	msgPromptsCleared  = "✅ Промпты сброшены, используется полный каскад."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNothingFound    = "✅ Ничего не найдено."
	msgNoPrompts       = "🤷 Ни один промпт не прошёл порог."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."
)

// Bot представляет Telegram-бота
type Bot struct {
	api     *tgbotapi.BotAPI
	users   *app.UserService
	cascade *app.CascadeService
	logger  *zap.SugaredLogger
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, cascade *app.CascadeService, logger *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Infow("authorized on telegram", "account", api.Self.UserName)

	return &Bot{
		api:     api,
		users:   users,
		cascade: cascade,
		logger:  logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Errorw("get user", "user_id", msg.From.ID, "error", err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, user)
		return
	}

	if user.State == entity.StateAwaitingPrompts {
		b.savePrompts(ctx, msg, msg.Text)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.users.Cancel(ctx, user.ID, chatID)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "check":
		b.users.BeginCheck(ctx, user.ID, chatID)
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "prompts":
		if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
			b.savePrompts(ctx, msg, args)
			return
		}
		b.users.AwaitPrompts(ctx, user.ID, chatID)
		b.sendMessage(chatID, msgAwaitingPrompts)

	case "clear":
		b.users.SetPrompts(ctx, user.ID, chatID, nil)
		b.sendMessage(chatID, msgPromptsCleared)

	case "cancel":
		b.users.Cancel(ctx, user.ID, chatID)
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) savePrompts(ctx context.Context, msg *tgbotapi.Message, text string) {
	user, err := b.users.SetPrompts(ctx, msg.From.ID, msg.Chat.ID, SplitPrompts(text))
	if err != nil {
		b.logger.Errorw("save prompts", "user_id", msg.From.ID, "error", err)
		return
	}
	if len(user.Prompts) == 0 {
		b.sendMessage(msg.Chat.ID, msgPromptsCleared)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(msgPromptsSaved, strings.Join(user.Prompts, "; ")))
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	b.users.SetState(ctx, user.ID, msg.Chat.ID, entity.StateProcessing)
	defer b.users.Cancel(ctx, user.ID, msg.Chat.ID)

	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Берём файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(photo.FileID)
	if err != nil {
		b.logger.Warnw("download photo", "file_id", photo.FileID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	img, err := imageio.Decode(bytes.NewReader(imageData))
	if err != nil {
		b.logger.Warnw("decode photo", "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	if len(user.Prompts) > 0 {
		scores, annotated, err := b.cascade.ScoreAndAnnotate(ctx, img, user.Prompts)
		if err != nil {
			b.logger.Errorw("score photo", "user_id", user.ID, "error", err)
			b.sendMessage(msg.Chat.ID, msgProcessingError)
			return
		}
		b.sendResult(msg.Chat.ID, FormatScores(scores), annotated)
		return
	}

	res, annotated, err := b.cascade.DetectAndAnnotate(ctx, img, nil)
	if err != nil {
		b.logger.Errorw("detect photo", "user_id", user.ID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	b.sendResult(msg.Chat.ID, FormatCascade(res), annotated)
}

// sendResult отправляет текст и размеченное фото; без фото уходит только текст.
func (b *Bot) sendResult(chatID int64, text string, annotated image.Image) {
	b.sendMessage(chatID, text)

	data, err := imageio.EncodeJPEG(annotated)
	if err != nil {
		b.logger.Warnw("encode annotated photo", "error", err)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "result.jpg", Bytes: data})
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Warnw("send photo", "chat_id", chatID, "error", err)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warnw("send message", "chat_id", chatID, "error", err)
	}
}
