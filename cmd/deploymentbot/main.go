package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/deployment"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
	"github.com/DeploymentBot3000/DeploymentBot/internal/queue"
	"github.com/DeploymentBot3000/DeploymentBot/internal/repository"
)

var (
	gitRevision = "unknown"
	gitBranch   = "unknown"
)

type App struct {
	logger *slog.Logger

	dbm     *database.DatabaseManager
	acl     *repository.ACLFileRepository
	manager *deployment.Manager
	queue   *queue.HotDropQueue

	adminAddr string
}

func NewApp() (*App, error) {
	app := &App{
		logger:    slog.Default(),
		adminAddr: viper.GetString("admin_addr"),
	}

	db, err := gorm.Open(sqlite.Open(viper.GetString("db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	app.dbm = database.New(db)

	if err := app.dbm.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	app.acl = repository.NewACLFileRepo(viper.GetString("acl_file"))

	gw := platform.NewConsole()
	dir := platform.NewCachedDirectory(gw, time.Hour)

	app.manager, err = deployment.New(db, deploymentConfig(), gw, dir, app.acl)
	if err != nil {
		return nil, err
	}

	app.queue, err = queue.New(app.dbm, queueConfig(), gw, dir, gw)
	if err != nil {
		return nil, err
	}

	return app, nil
}

func minutes(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Minute
}

func seconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

func deploymentConfig() *deployment.Config {
	return &deployment.Config{
		MaxRosterSize:    viper.GetInt("max_roster_size"),
		MinLeadTime:      minutes("min_deployment_lead_time_minutes"),
		EditGraceWindow:  minutes("edit_lead_time_minutes"),
		Duration:         minutes("deployment_duration_minutes"),
		NoticeLeadTime:   minutes("departure_notice_lead_time_minutes"),
		DeleteLeadTime:   minutes("deployment_delete_lead_time_minutes"),
		SignupChannel:    viper.GetString("signup_channel"),
		DepartureChannel: viper.GetString("departure_channel"),
		SweepInterval:    seconds("sweep_interval_seconds"),
		PurgeInterval:    minutes("purge_interval_minutes"),
		OrphanInterval:   minutes("orphan_interval_minutes"),
	}
}

func queueConfig() *queue.Config {
	return &queue.Config{
		GuildID:           viper.GetString("guild_id"),
		MinPlayers:        viper.GetInt("min_players_per_round"),
		MaxGroupSize:      viper.GetInt("max_roster_size"),
		MaxHosts:          viper.GetInt("queue_max_hosts"),
		MaxPlayers:        viper.GetInt("queue_max_players"),
		DefaultInterval:   minutes("deployment_interval_minutes"),
		RefreshCooldown:   seconds("panel_refresh_debounce_seconds"),
		VoiceRoomTTL:      minutes("voice_room_ttl_minutes"),
		RoomSweepInterval: seconds("room_sweep_interval_seconds"),
		DepartureChannel:  viper.GetString("departure_channel"),
		VoiceCategories:   viper.GetStringSlice("voice_categories"),
	}
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())

	if err := app.acl.Start(); err != nil {
		app.logger.Error("acl watcher failed", slog.Any("error", err))
	}

	app.manager.Start(ctx)
	app.queue.Start(ctx)

	if app.adminAddr != "" {
		go func() {
			if err := NewAdminAPI(app, app.adminAddr).Listen(); err != nil {
				app.logger.Error("admin api error", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	app.logger.Info("exiting...")
	cancel()

	app.acl.Stop()
}

func main() {
	conf := flag.String("config", "deploymentbot.yml", "name of config file")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	viper.SetConfigFile(*conf)

	viper.SetDefault("db", "deploymentbot.db")
	viper.SetDefault("admin_addr", ":8090")
	viper.SetDefault("acl_file", "acl.yml")
	viper.SetDefault("guild_id", "default")

	viper.SetDefault("max_roster_size", 4)
	viper.SetDefault("min_players_per_round", 3)
	viper.SetDefault("queue_max_hosts", 5)
	viper.SetDefault("queue_max_players", 50)

	viper.SetDefault("min_deployment_lead_time_minutes", 15)
	viper.SetDefault("edit_lead_time_minutes", 10)
	viper.SetDefault("deployment_duration_minutes", 120)
	viper.SetDefault("departure_notice_lead_time_minutes", 15)
	viper.SetDefault("deployment_delete_lead_time_minutes", 60)
	viper.SetDefault("deployment_interval_minutes", 60)
	viper.SetDefault("panel_refresh_debounce_seconds", 5)
	viper.SetDefault("voice_room_ttl_minutes", 180)
	viper.SetDefault("room_sweep_interval_seconds", 60)

	viper.SetDefault("sweep_interval_seconds", 60)
	viper.SetDefault("purge_interval_minutes", 60)
	viper.SetDefault("orphan_interval_minutes", 1440)

	viper.SetDefault("signup_channel", "signups")
	viper.SetDefault("departure_channel", "departures")
	viper.SetDefault("voice_categories", []string{"hot-drops"})

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("no config file: %v\n", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: false})
	slog.SetDefault(slog.New(h))

	slog.Info(fmt.Sprintf("version %s:%s", gitBranch, gitRevision))

	app, err := NewApp()
	if err != nil {
		slog.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}

	app.Run()
}
