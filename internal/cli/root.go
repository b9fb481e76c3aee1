package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/config"
	"github.com/julianstephens/fleetboard/internal/dispatch"
	"github.com/julianstephens/fleetboard/internal/errors"
	"github.com/julianstephens/fleetboard/internal/service"
	"github.com/julianstephens/fleetboard/internal/utils"
)

type Context struct {
	Config   *config.Config
	Service  service.ScheduleService
	Engine   *dispatch.Engine
	Notifier cache.Notifier
	Out      io.Writer
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// Writer returns where command output goes
func (c *Context) Writer() io.Writer { return c.out() }

// Today returns the current date in the dispatch timezone
func (c *Context) Today() string {
	if c.Config == nil {
		tz, _ := utils.TodayInTimezone("")
		return tz
	}
	return c.Config.Today()
}

// ResolveDate turns a date argument into YYYY-MM-DD. It accepts an empty
// string or "today", "tomorrow", "yesterday", signed day offsets like "+2"
// and plain dates.
func (c *Context) ResolveDate(arg string) (string, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	today := c.Today()
	switch arg {
	case "", "today":
		return today, nil
	case "tomorrow":
		return utils.AddDays(today, 1)
	case "yesterday":
		return utils.AddDays(today, -1)
	}
	if arg[0] == '+' || arg[0] == '-' {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return "", errors.Invalid("date", "invalid offset %q", arg)
		}
		return utils.AddDays(today, n)
	}
	t, err := utils.ParseDate(arg)
	if err != nil {
		return "", errors.Invalid("date", "%s", err.Error())
	}
	return utils.FormatDate(t), nil
}

// ResolveDates resolves a comma separated date list. Ranges are written
// from..to and expand to every day in between.
func (c *Context) ResolveDates(list []string) ([]string, error) {
	var out []string
	for _, item := range list {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			from, to, isRange := strings.Cut(part, "..")
			if !isRange {
				d, err := c.ResolveDate(part)
				if err != nil {
					return nil, err
				}
				out = append(out, d)
				continue
			}
			start, err := c.ResolveDate(from)
			if err != nil {
				return nil, err
			}
			end, err := c.ResolveDate(to)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, errors.Invalid("dates", "range %s is reversed", part)
			}
			for d := start; d <= end; d, _ = utils.AddDays(d, 1) {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// OptionalID returns nil for 0 so flags can leave an id unset
func OptionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// OptionalString returns nil for ""
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
