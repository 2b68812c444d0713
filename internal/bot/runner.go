package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultWorkers is the number of updates handled at once in polling mode.
const DefaultWorkers = 4

// Run handles updates with a fixed set of workers until ctx is done or
// updates is closed.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update, workers int) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case u, ok := <-updates:
					if !ok {
						return
					}
					h.HandleUpdate(ctx, u)
				}
			}
		}()
	}
	wg.Wait()
}

// Poll long-polls the Bot API and handles updates until ctx is done.
func Poll(ctx context.Context, api *tgbotapi.BotAPI, h *Handler, workers int) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := api.GetUpdatesChan(cfg)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	h.logger.Info("polling for updates", "bot", api.Self.UserName, "workers", workers)
	h.Run(ctx, updates, workers)
}
