package main

import (
	"net/http"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/cli/alerts"
	"github.com/julianstephens/fleetboard/internal/cli/assignments"
	"github.com/julianstephens/fleetboard/internal/cli/fleet"
	"github.com/julianstephens/fleetboard/internal/cli/schedule"
	"github.com/julianstephens/fleetboard/internal/cli/system"
	"github.com/julianstephens/fleetboard/internal/config"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/notifier"
	"github.com/julianstephens/fleetboard/internal/service/httpapi"
)

var CLI struct {
	Version  kong.VersionFlag
	APIURL   string `name:"api-url" help:"Schedule Service base URL (overrides FLEETBOARD_API_URL)."`
	Token    string `help:"Access token (overrides the keyring entry)." env:"FLEETBOARD_TOKEN"`
	Timezone string `help:"Dispatch office timezone (overrides FLEETBOARD_TIMEZONE)."`
	EnvFile  string `name:"env-file" help:"Dotenv file to read before the environment." default:".env"`
	DebugLog bool   `name:"debug" help:"Log debug output to stderr."`

	Tui      system.TuiCmd       `cmd:"" help:"Launch the interactive dispatch board." default:"withargs"`
	Schedule schedule.ScheduleCmd `cmd:"" help:"Show, generate and lock daily schedules."`
	Trip     schedule.TripCmd     `cmd:"" help:"Edit, assign and delete trips."`
	Delivery schedule.DeliveryCmd `cmd:"" help:"Add on-demand deliveries."`
	Driver   fleet.DriverCmd      `cmd:"" help:"Driver list and day statuses."`
	Tankers  fleet.TankersCmd     `cmd:"" help:"Tanker lookups."`
	Assign   assignments.AssignCmd `cmd:"" help:"Weekly driver assignments."`
	Alerts   alerts.AlertsCmd     `cmd:"" help:"Show operational alerts for a day."`

	Login     system.LoginCmd     `cmd:"" help:"Sign in and store the access token."`
	Logout    system.LogoutCmd    `cmd:"" help:"Forget the stored access token."`
	Whoami    system.WhoamiCmd    `cmd:"" help:"Show the signed-in user."`
	Doctor    system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Devserver system.DevserverCmd `cmd:"" help:"Serve an in-memory Schedule Service for development."`
	Debug     system.DebugCmd     `cmd:"" help:"Dump raw service payloads as JSON."`
	Notify    system.NotifyCmd    `cmd:"" hidden:"" help:"Send a test notification."`
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		return nil, err
	}
	if CLI.APIURL != "" {
		cfg.APIURL = CLI.APIURL
	}
	if CLI.Timezone != "" {
		cfg.Timezone = CLI.Timezone
	}
	if CLI.Token != "" {
		cfg.Token = CLI.Token
	}
	cfg.Debug = cfg.Debug || CLI.DebugLog
	return cfg, cfg.Validate()
}

// notifiers builds the outcome sinks the config asks for. A broker that
// cannot be reached is logged and skipped.
func notifiers(cfg *config.Config, user string) (notifier.Multi, func()) {
	sinks := notifier.Multi{notifier.Log{}}
	closeFn := func() {}
	if cfg.Notify.Tray {
		sinks = append(sinks, notifier.NewTray())
	}
	if cfg.Notify.AMQPURL != "" {
		pub, err := notifier.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.AMQPExchange, user)
		if err != nil {
			logger.Warn("amqp notifications disabled", "error", err)
		} else {
			sinks = append(sinks, pub)
			closeFn = func() { _ = pub.Close() }
		}
	}
	return sinks, closeFn
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Fuel delivery dispatch board for the Schedule Service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := loadConfig()
	if err != nil {
		errors.Fatal(err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		LogDir:    cfg.LogDir,
		ConfigDir: configDir,
		Level:     cfg.LogLevel,
	}); err != nil {
		os.Stderr.WriteString("⚠ logging disabled: " + err.Error() + "\n")
	}

	window, err := cfg.Window()
	if err != nil {
		errors.Fatal(err)
	}

	token := system.ResolveToken(cfg.Token, cfg.APIURL)
	var user string
	if s, err := auth.FromToken(token); err == nil {
		user = s.Username
	}

	client := httpapi.New(cfg.APIURL,
		httpapi.WithToken(token),
		httpapi.WithRetries(cfg.ReadRetries, constants.RetryBaseDelay),
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)

	sinks, closeSinks := notifiers(cfg, user)
	defer closeSinks()

	coord := cache.New(cache.WithPolicies(cfg.Policies()), cache.WithNotifier(sinks))
	engine := dispatch.New(client,
		dispatch.WithCoordinator(coord),
		dispatch.WithWindow(window),
		dispatch.WithToken(token),
	)

	logger.Debug("starting", "command", ctx.Command(), "api", cfg.APIURL, "user", user)

	err = ctx.Run(&cli.Context{
		Config:   cfg,
		Service:  client,
		Engine:   engine,
		Notifier: sinks,
		Out:      os.Stdout,
	})
	if err != nil {
		closeSinks()
		errors.Fatal(err)
	}
}
