package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/fleetboard/internal/auth"
	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/keyring"
	"github.com/julianstephens/fleetboard/internal/notifier"
	"github.com/julianstephens/fleetboard/internal/service/httpapi"
	"github.com/julianstephens/fleetboard/internal/utils"
)

type healthChecker interface {
	Health(ctx context.Context) (httpapi.HealthStatus, error)
}

type DoctorCmd struct {
	Timeout time.Duration `help:"Timeout for the remote checks." default:"5s"`
}

type checkResult int

const (
	checkOK checkResult = iota
	checkWarn
	checkFail
	checkSkip
)

func (cmd *DoctorCmd) report(ctx *cli.Context, name string, res checkResult, detail string) {
	switch res {
	case checkOK:
		ctx.Printf("✓ %s: OK\n", name)
	case checkWarn:
		ctx.Printf("⚠ %s: WARNING\n", name)
	case checkFail:
		ctx.Printf("❌ %s: FAIL\n", name)
	case checkSkip:
		ctx.Printf("⊘ %s: SKIPPED\n", name)
	}
	if detail != "" {
		ctx.Printf("   %s\n", detail)
	}
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	failed := 0
	report := func(name string, res checkResult, detail string) {
		if res == checkFail {
			failed++
		}
		cmd.report(ctx, name, res, detail)
	}
	bg, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	// Check 1: service reachable
	reachable := true
	if hc, ok := ctx.Service.(healthChecker); ok {
		h, err := hc.Health(bg)
		if err != nil {
			reachable = false
			report("Schedule Service reachable", checkFail, err.Error())
		} else {
			report("Schedule Service reachable", checkOK, fmt.Sprintf("%s, version %s", h.Status, h.Version))
		}
	} else {
		report("Schedule Service reachable", checkSkip, "in-process service")
	}

	// Check 2: token present and not expired
	session, err := auth.FromToken(ctx.Config.Token)
	switch {
	case err != nil:
		report("Access token", checkFail, "not logged in; run 'fleetboard login <username>'")
	case session.Expired(time.Now()):
		report("Access token", checkFail, "token expired at "+session.ExpiresAt.Format(time.RFC3339))
	default:
		report("Access token", checkOK, "")
	}

	// Check 3: token accepted by the service
	if err == nil && reachable {
		if s, err := ctx.Engine.Whoami(bg); err != nil {
			report("Token accepted", checkFail, err.Error())
		} else {
			report("Token accepted", checkOK, fmt.Sprintf("%s (%s)", s.Username, s.Role))
		}
	} else {
		report("Token accepted", checkSkip, "")
	}

	// Check 4: keyring
	if keyring.IsAvailable() {
		report("OS keyring", checkOK, "")
	} else {
		report("OS keyring", checkWarn, "tokens must be passed with FLEETBOARD_TOKEN")
	}

	// Check 5: clock and timezone
	res, detail := checkClockTimezone(ctx.Config.Timezone)
	report("Clock/timezone", res, detail)

	// Check 6: timeline window
	if _, err := ctx.Config.Window(); err != nil {
		report("Timeline window", checkFail, err.Error())
	} else {
		report("Timeline window", checkOK, fmt.Sprintf("%02d:00-%02d:00", ctx.Config.Timeline.StartHour, ctx.Config.Timeline.EndHour))
	}

	// Check 7: notification sinks (warning only)
	if ctx.Config.Notify.Tray {
		if notifier.NewTray().Available() {
			report("Tray notifications", checkOK, "")
		} else {
			report("Tray notifications", checkWarn, notifier.ErrTrayNotRunning.Error())
		}
	} else {
		report("Tray notifications", checkSkip, "disabled")
	}

	ctx.Println()
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	ctx.Println("All checks passed")
	return nil
}

func checkClockTimezone(tz string) (checkResult, string) {
	now, err := utils.NowInTimezone(tz)
	if err != nil {
		return checkFail, err.Error()
	}
	// Check if time is in a reasonable range (after 2020 and before 2100)
	if now.Year() < 2020 || now.Year() > 2100 {
		return checkFail, "system time appears incorrect: " + now.Format(time.RFC3339)
	}
	return checkOK, fmt.Sprintf("%s %s", tz, now.Format("2006-01-02 15:04"))
}
