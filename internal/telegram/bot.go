// Package telegram is a chat front end over the planning pipeline: free text
// plans a day of meals, URLs import recipes, and short commands manage the
// saved list.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/karanpatel1993/meal-planner-buddy/internal/importer"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/metrics"
	"github.com/karanpatel1993/meal-planner-buddy/internal/planner"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

// Bot wraps the Telegram API and the planning pipeline.
type Bot struct {
	api          *tgbotapi.BotAPI
	planner      *planner.Planner
	recipes      *store.Store
	importer     *importer.Importer
	metricsStore *metrics.Store
	allowUserID  int64
}

// NewBot initializes the Telegram bot in long-polling mode. allowUserID
// restricts the bot to a single user; zero allows everyone.
func NewBot(token string, allowUserID int64, p *planner.Planner, recipes *store.Store, imp *importer.Importer, metricsStore *metrics.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:          api,
		planner:      p,
		recipes:      recipes,
		importer:     imp,
		metricsStore: metricsStore,
		allowUserID:  allowUserID,
	}, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			if b.allowUserID != 0 && update.Message.From.ID != b.allowUserID {
				log.Printf("Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
				continue
			}
			go b.processMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/help":
		b.reply(msg.Chat.ID, helpText)
	case text == "/list":
		b.handleList(msg.Chat.ID)
	case strings.HasPrefix(text, "/save"):
		b.handleSave(ctx, msg.Chat.ID, strings.TrimSpace(strings.TrimPrefix(text, "/save")))
	case strings.HasPrefix(text, "/delete"):
		b.handleDelete(ctx, msg.Chat.ID, strings.TrimSpace(strings.TrimPrefix(text, "/delete")))
	case text == "/metrics":
		b.handleMetrics(ctx, msg.Chat.ID)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleImport(ctx, msg.Chat.ID, text)
	default:
		b.handlePlan(ctx, msg.Chat.ID, text)
	}
}

const helpText = `Send me the ingredients you have, one per line, e.g.

500 grams rice
2 pieces chicken breast

and I will plan your day's meals. Send a recipe URL to import it.

/save N - save recipe N from the last plan
/list - show saved recipes
/delete N - delete saved recipe N
/metrics - recent generation stats`

func (b *Bot) handlePlan(ctx context.Context, chatID int64, text string) {
	if text == "" {
		b.reply(chatID, helpText)
		return
	}
	b.reply(chatID, "🍳 Planning your meals, one moment...")

	plan, err := b.planner.Plan(ctx, planner.Input{Ingredients: strings.Split(text, "\n")})
	if errors.Is(err, planner.ErrInvalidInput) {
		b.reply(chatID, "I need at least one ingredient to plan with.")
		return
	}
	if err != nil {
		log.Printf("Error generating plan: %v", err)
		b.reply(chatID, "⚠️ Could not generate a plan: "+err.Error())
		return
	}

	b.reply(chatID, mealplan.FormatPlan(plan))
	b.reply(chatID, "Reply /save N to keep one of these recipes.")
}

func (b *Bot) handleSave(ctx context.Context, chatID int64, arg string) {
	index, ok := parseIndex(arg)
	if !ok {
		b.reply(chatID, "Usage: /save N, where N is the recipe number from the last plan.")
		return
	}

	outcome, err := b.recipes.Save(ctx, index)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("There is no recipe %d in the last plan.", index+1))
		return
	}
	if err != nil {
		log.Printf("Error saving recipe: %v", err)
		b.reply(chatID, "⚠️ Could not save the recipe.")
		return
	}
	if outcome == store.OutcomeAlreadySaved {
		b.reply(chatID, "That recipe is already saved.")
		return
	}
	b.reply(chatID, "✅ Recipe saved.")
}

func (b *Bot) handleList(chatID int64) {
	saved := b.recipes.List()
	if len(saved) == 0 {
		b.reply(chatID, "No saved recipes yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Saved recipes:\n")
	for i, s := range saved {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Recipe.Name)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, arg string) {
	index, ok := parseIndex(arg)
	if !ok {
		b.reply(chatID, "Usage: /delete N, where N is the number from /list.")
		return
	}

	err := b.recipes.Delete(ctx, index)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(chatID, fmt.Sprintf("There is no saved recipe %d.", index+1))
		return
	}
	if err != nil {
		log.Printf("Error deleting recipe: %v", err)
		b.reply(chatID, "⚠️ Could not delete the recipe.")
		return
	}
	b.reply(chatID, "🗑 Recipe deleted.")
}

func (b *Bot) handleImport(ctx context.Context, chatID int64, url string) {
	if b.importer == nil {
		b.reply(chatID, "Recipe import is not available.")
		return
	}
	b.reply(chatID, "📋 Importing recipe...")

	recipe, outcome, err := b.importer.ImportURL(ctx, url)
	if err != nil {
		log.Printf("Error importing recipe: %v", err)
		b.reply(chatID, "⚠️ Could not import a recipe from that page.")
		return
	}
	if outcome == store.OutcomeAlreadySaved {
		b.reply(chatID, fmt.Sprintf("%q is already in your saved recipes.", recipe.Name))
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Imported and saved %q.", recipe.Name))
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64) {
	if b.metricsStore == nil {
		b.reply(chatID, "Metrics are not enabled.")
		return
	}
	recent, err := b.metricsStore.Recent(ctx, 10)
	if err != nil {
		log.Printf("Error loading metrics: %v", err)
		b.reply(chatID, "⚠️ Could not load metrics.")
		return
	}
	if len(recent) == 0 {
		b.reply(chatID, "No generations recorded yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Recent generations:\n")
	for _, e := range recent {
		fmt.Fprintf(&sb, "%s %s %s %dms\n", e.Timestamp.Format("01-02 15:04"), e.Mode, e.Outcome, e.LatencyMS)
	}
	b.reply(chatID, sb.String())
}

// parseIndex converts the user-facing 1-based number to a 0-based index.
func parseIndex(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
