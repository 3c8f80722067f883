package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/igoryan-dao/renovabot/internal/ai"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/fsm"
)

// handleUpdate is the entry point for every update of this tenant.
func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *models.Message) {
	rc, err := b.resolveContext(ctx, msg.From, msg.Chat)
	if err != nil {
		log.Printf("[tg:%d] resolve context: %v", b.tenant.ID, err)
		return
	}
	if rc.User == nil {
		return
	}

	directed := b.gate.Directed(msg, b.botUsername, b.botID)

	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, rc, msg, directed)
		return
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, rc, msg, directed)
		return
	}

	text := msg.Text
	if text == "" {
		return
	}

	// Every text message is logged and indexed, directed or not. This is
	// how the RAG index captures full group context.
	if !strings.HasPrefix(text, "/") {
		b.storeAndIngest(ctx, rc, msg, "text", text, "")
	}

	if !directed {
		return
	}

	if strings.HasPrefix(text, "/") {
		cmd, args := splitCommand(text, b.botUsername)
		b.dispatchCommand(ctx, rc, cmd, args)
		return
	}

	if state := b.deps.States.State(rc.ChatID, rc.User.ID); state != fsm.None {
		b.handleStateText(ctx, rc, state, text)
		return
	}

	if key := domain.ParseQuickCommand(text); key != "" {
		b.dispatchCommand(ctx, rc, key, "")
		return
	}

	// Directed free text outside any flow is a project question.
	b.commandAsk(ctx, rc, text)
}

// splitCommand strips the leading slash and an optional @botname suffix.
func splitCommand(text, botUsername string) (cmd, args string) {
	fields := strings.SplitN(strings.TrimPrefix(text, "/"), " ", 2)
	cmd = fields[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		if !strings.EqualFold(cmd[i+1:], botUsername) {
			return "", ""
		}
		cmd = cmd[:i]
	}
	cmd = strings.ToLower(cmd)
	if len(fields) > 1 {
		args = strings.TrimSpace(fields[1])
	}
	return cmd, args
}

func (b *Bot) dispatchCommand(ctx context.Context, rc *reqContext, cmd, args string) {
	switch cmd {
	case "":
		// A command addressed to another bot in the chat.
	case "start":
		b.commandStart(ctx, rc)
	case "newproject":
		b.commandNewProject(ctx, rc)
	case "myprojects":
		b.commandMyProjects(ctx, rc)
	case "deleteproject":
		b.commandDeleteProject(ctx, rc)
	case "stages":
		b.commandStages(ctx, rc)
	case "budget":
		b.commandBudget(ctx, rc, args)
	case "expenses":
		b.commandExpenses(ctx, rc)
	case "addexpense":
		b.commandAddExpense(ctx, rc)
	case "report":
		b.commandReport(ctx, rc)
	case "status":
		b.commandStatus(ctx, rc)
	case "nextstage", "next_stage":
		b.commandNextStage(ctx, rc)
	case "deadline":
		b.commandDeadline(ctx, rc)
	case "mystage", "my_stage":
		b.commandMyStage(ctx, rc)
	case "team":
		b.commandTeam(ctx, rc)
	case "invite":
		b.commandInvite(ctx, rc)
	case "myrole":
		b.commandMyRole(ctx, rc)
	case "ask":
		b.commandAsk(ctx, rc, args)
	case "summary":
		b.commandSummary(ctx, rc)
	case "expert":
		b.commandAsk(ctx, rc, "Нужна оценка эксперта по текущему этапу: на что обратить внимание при приёмке работ?")
	case "chat":
		b.commandChat(ctx, rc)
	case "stop", "cancel":
		b.commandStop(ctx, rc)
	case "launch":
		b.commandLaunch(ctx, rc)
	case "link":
		b.commandLink(ctx, rc)
	case "addbot":
		b.commandAddBot(ctx, rc, args)
	case "listbots":
		b.commandListBots(ctx, rc)
	case "removebot":
		b.commandRemoveBot(ctx, rc, args)
	default:
		b.send(ctx, rc.ChatID, "Не узнаю команду. Посмотрите меню команд бота.")
	}
}

// storeAndIngest logs the message and feeds it to the retrieval index.
// Failures are logged, never surfaced to the chat.
func (b *Bot) storeAndIngest(ctx context.Context, rc *reqContext, msg *models.Message,
	msgType, rawText, transcribed string) *db.Message {

	row := &db.Message{
		UserID:         &rc.User.ID,
		Platform:       "telegram",
		PlatformChatID: fmt.Sprintf("%d", rc.ChatID),
		MessageType:    msgType,
	}
	if rc.Project != nil {
		row.ProjectID = &rc.Project.ID
	}
	id := fmt.Sprintf("%d", msg.ID)
	row.PlatformMessageID = &id
	if rawText != "" {
		row.RawText = &rawText
	}
	if transcribed != "" {
		row.TranscribedText = &transcribed
	}

	stored, err := b.deps.Repo.StoreMessage(ctx, row)
	if err != nil {
		log.Printf("[tg:%d] store message: %v", b.tenant.ID, err)
		return nil
	}
	if b.deps.RAG != nil {
		if err := b.deps.RAG.Ingest(ctx, stored); err != nil {
			log.Printf("[tg:%d] ingest message %d: %v", b.tenant.ID, stored.ID, err)
		}
	}
	return stored
}

// handleVoice downloads, transcribes and then treats the text like a
// typed message.
func (b *Bot) handleVoice(ctx context.Context, rc *reqContext, msg *models.Message, directed bool) {
	if b.deps.AI == nil {
		if directed {
			b.send(ctx, rc.ChatID, "Распознавание голоса не настроено.")
		}
		return
	}
	file, err := b.bot.GetFile(ctx, &bot.GetFileParams{FileID: msg.Voice.FileID})
	if err != nil {
		log.Printf("[tg:%d] get voice file: %v", b.tenant.ID, err)
		return
	}
	data, err := b.downloadFile(ctx, file.FilePath)
	if err != nil {
		log.Printf("[tg:%d] download voice: %v", b.tenant.ID, err)
		return
	}
	text, err := b.deps.AI.Transcribe(ctx, bytes.NewReader(data), "voice.ogg")
	if err != nil {
		log.Printf("[tg:%d] transcribe: %v", b.tenant.ID, err)
		if directed {
			b.send(ctx, rc.ChatID, "Не удалось распознать голосовое сообщение.")
		}
		return
	}

	b.storeAndIngest(ctx, rc, msg, "voice", "", text)
	if !directed {
		return
	}
	b.send(ctx, rc.ChatID, "🎙 Распознано: "+text)

	if key := domain.ParseQuickCommand(text); key != "" {
		b.dispatchCommand(ctx, rc, key, "")
		return
	}
	b.commandAsk(ctx, rc, text)
}

// handlePhoto describes the image with the vision model and indexes the
// description alongside the caption.
func (b *Bot) handlePhoto(ctx context.Context, rc *reqContext, msg *models.Message, directed bool) {
	if b.deps.AI == nil {
		return
	}
	// The last size is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	file, err := b.bot.GetFile(ctx, &bot.GetFileParams{FileID: photo.FileID})
	if err != nil {
		log.Printf("[tg:%d] get photo file: %v", b.tenant.ID, err)
		return
	}
	// The Telegram file URL embeds the bot token, so the photo goes to
	// the provider inline instead.
	data, err := b.downloadFile(ctx, file.FilePath)
	if err != nil {
		log.Printf("[tg:%d] download photo: %v", b.tenant.ID, err)
		return
	}

	desc, err := b.deps.AI.DescribeImage(ctx, ai.ImageDataURL(data), "")
	if err != nil {
		log.Printf("[tg:%d] describe image: %v", b.tenant.ID, err)
		return
	}
	text := desc
	if msg.Caption != "" {
		text = msg.Caption + "\n" + desc
	}
	b.storeAndIngest(ctx, rc, msg, "image", msg.Caption, text)

	if directed {
		b.send(ctx, rc.ChatID, "📷 "+desc)
	}
}
