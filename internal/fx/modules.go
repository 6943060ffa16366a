package fx

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/config"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/cron"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/database"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/events"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/game"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/logger"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/moderation"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/platform"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/rank"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/rating"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/repository"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/server"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/service"
)

func provideRatingEngine(players *repository.PlayerRepository, log zerolog.Logger) *rating.Engine {
	return rating.NewEngine(players, log)
}

func provideNotifier(n *platform.WebhookNotifier) platform.Notifier {
	return n
}

func provideProvisioner(p *platform.DiscordProvisioner) platform.ChannelProvisioner {
	return p
}

func provideRoleSync(session *discordgo.Session, log zerolog.Logger) platform.RoleSync {
	return platform.NewDiscordRoleSync(session, log, rank.Valid)
}

func provideLifecycle(
	games *repository.GameRepository,
	players *repository.PlayerRepository,
	rater *rating.Engine,
	provisioner platform.ChannelProvisioner,
	notifier platform.Notifier,
	rolesync platform.RoleSync,
	publisher events.Publisher,
	log zerolog.Logger,
) *game.Service {
	return game.NewService(game.ServiceParams{
		Games:       games,
		Rater:       rater,
		Players:     players,
		Provisioner: provisioner,
		Notifier:    notifier,
		RoleSync:    rolesync,
		Publisher:   publisher,
		Logger:      log,
	})
}

func provideLedger(store *repository.PunishmentRepository, notifier platform.Notifier, log zerolog.Logger) *moderation.Ledger {
	return moderation.NewLedger(store, notifier, log)
}

func providePlayerService(store *repository.PlayerRepository, log zerolog.Logger) *service.PlayerService {
	return service.NewPlayerService(store, log)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewGameRepository),
	fx.Provide(repository.NewPunishmentRepository),
	// platform adapters
	fx.Provide(platform.NewSession),
	fx.Provide(platform.NewDiscordProvisioner),
	fx.Provide(platform.NewWebhookNotifier),
	fx.Provide(provideNotifier),
	fx.Provide(provideProvisioner),
	fx.Provide(provideRoleSync),
	fx.Provide(events.New),
	// core
	fx.Provide(provideRatingEngine),
	fx.Provide(provideLifecycle),
	fx.Provide(provideLedger),
	fx.Provide(providePlayerService),
	fx.Provide(cron.NewScheduler),
	// http
	fx.Provide(server.New),
)
