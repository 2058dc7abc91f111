package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"fieldtech/internal/auth"
	"fieldtech/internal/config"
	"fieldtech/internal/device"
	"fieldtech/internal/lifecycle"
)

// API is the technician backend used by the CLI: the ticket transitions
// plus the home listing.
type API interface {
	lifecycle.Backend
	Home(ctx context.Context) ([]lifecycle.RemoteTicket, error)
}

type Options struct {
	API        API
	Session    *auth.Session
	StorageURL string
	Device     config.DeviceConfig
	Recent     *RecentStore
	Out        io.Writer
	Log        zerolog.Logger
	Now        func() time.Time
}

type App struct {
	api        API
	session    *auth.Session
	storageURL string
	device     config.DeviceConfig
	recent     *RecentStore
	out        io.Writer
	log        zerolog.Logger
	now        func() time.Time
}

func New(opts Options) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recent == nil {
		opts.Recent, _ = OpenRecentStore("")
	}
	return &App{
		api:        opts.API,
		session:    opts.Session,
		storageURL: opts.StorageURL,
		device:     opts.Device,
		recent:     opts.Recent,
		out:        opts.Out,
		log:        opts.Log,
		now:        opts.Now,
	}
}

func (a *App) Run(ctx context.Context, args []string) error {
	return a.root().Execute(ctx, a.out, args)
}

func (a *App) root() *Command {
	return &Command{
		Name:    "tech-cli",
		Summary: "Work technician tickets from the terminal.",
		Subcommands: []*Command{
			a.homeCommand(),
			a.viewCommand(),
			a.acceptCommand(),
			a.startCommand(),
			a.rejectCommand(),
			a.rescheduleCommand(),
			a.completeCommand(),
			a.recentCommand(),
		},
	}
}

func (a *App) homeCommand() *Command {
	return &Command{
		Name:    "home",
		Summary: "List assigned tickets with a status summary",
		Run: func(ctx context.Context, args []string) error {
			return a.printHome(ctx)
		},
	}
}

func (a *App) viewCommand() *Command {
	return &Command{
		Name:    "view",
		Summary: "Show a ticket and the actions it offers",
		Usage:   "tech-cli view <ticket-id>",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli view <ticket-id>"); err != nil {
				return err
			}
			ctrl, err := a.open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			a.printTicket(ctrl)
			return nil
		},
	}
}

func (a *App) acceptCommand() *Command {
	return &Command{
		Name:    "accept",
		Summary: "Accept a pending ticket",
		Usage:   "tech-cli accept <ticket-id>",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli accept <ticket-id>"); err != nil {
				return err
			}
			ctrl, err := a.open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if err := ctrl.Accept(ctx); err != nil {
				return err
			}
			a.printTicket(ctrl)
			return nil
		},
	}
}

func (a *App) startCommand() *Command {
	return &Command{
		Name:    "start",
		Summary: "Start work on an accepted ticket",
		Usage:   "tech-cli start <ticket-id>",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli start <ticket-id>"); err != nil {
				return err
			}
			ctrl, err := a.open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if err := ctrl.StartWork(ctx); err != nil {
				return err
			}
			a.printTicket(ctrl)
			return nil
		},
	}
}

func (a *App) rejectCommand() *Command {
	var reason string
	return &Command{
		Name:    "reject",
		Summary: "Reject a pending ticket",
		Usage:   "tech-cli reject <ticket-id> --reason <text>",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("reject", pflag.ContinueOnError)
			fs.StringVarP(&reason, "reason", "r", "", "reason for rejecting the ticket")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli reject <ticket-id> --reason <text>"); err != nil {
				return err
			}
			ctrl, err := a.open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			flow, err := ctrl.RejectFlow()
			if err != nil {
				return err
			}
			flow.SetReason(reason)
			return flow.Submit(ctx)
		},
	}
}

func (a *App) rescheduleCommand() *Command {
	var date, reason string
	return &Command{
		Name:    "reschedule",
		Summary: "Reschedule an accepted ticket",
		Usage:   "tech-cli reschedule <ticket-id> --reason <text> [--date YYYY-MM-DD]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("reschedule", pflag.ContinueOnError)
			fs.StringVarP(&date, "date", "d", "", "new visit date (YYYY-MM-DD, default today)")
			fs.StringVarP(&reason, "reason", "r", "", "reason for rescheduling")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli reschedule <ticket-id> --reason <text> [--date YYYY-MM-DD]"); err != nil {
				return err
			}
			ctrl, err := a.open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			flow, err := ctrl.RescheduleFlow()
			if err != nil {
				return err
			}
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, a.now().Location())
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				flow.SetDate(parsed)
			}
			flow.SetReason(reason)
			return flow.Submit(ctx)
		},
	}
}

func (a *App) completeCommand() *Command {
	var (
		remarks, location, cause, reading string
		useLocation                       bool
	)
	return &Command{
		Name:    "complete",
		Summary: "Complete an in-progress ticket",
		Usage:   "tech-cli complete <ticket-id> --remarks <text> [--location <text> | --use-location] [--cause <file>] [--reading <file>]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("complete", pflag.ContinueOnError)
			fs.StringVarP(&remarks, "remarks", "m", "", "work done on site (required)")
			fs.StringVarP(&location, "location", "l", "", "location text")
			fs.BoolVar(&useLocation, "use-location", false, "fill the location from the device position")
			fs.StringVar(&cause, "cause", "", "picture of the cause")
			fs.StringVar(&reading, "reading", "", "picture of the meter reading")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, 1, "tech-cli complete <ticket-id> --remarks <text>"); err != nil {
				return err
			}
			picker := device.NewFilePicker(a.device.PicturesDir, map[string]string{
				"Cause":   cause,
				"Reading": reading,
			})
			ctrl, err := a.open(ctx, args[0], picker)
			if err != nil {
				return err
			}
			composer, err := ctrl.Composer()
			if err != nil {
				return err
			}

			composer.SetRemarks(remarks)
			composer.SetLocation(location)
			if useLocation {
				// A denied permission leaves the typed location in place.
				if err := composer.UseCurrentLocation(ctx); err != nil && !errors.Is(err, lifecycle.ErrPermissionDenied) {
					return err
				}
			}
			if cause != "" {
				if err := composer.AttachCause(ctx); err != nil {
					return err
				}
			}
			if reading != "" {
				if err := composer.AttachReading(ctx); err != nil {
					return err
				}
			}
			return composer.Submit(ctx)
		},
	}
}

func (a *App) recentCommand() *Command {
	return &Command{
		Name:    "recent",
		Summary: "List recently opened tickets",
		Run: func(ctx context.Context, args []string) error {
			ids := a.recent.List()
			if len(ids) == 0 {
				fmt.Fprintln(a.out, "No recent tickets")
				return nil
			}
			for i := len(ids) - 1; i >= 0; i-- {
				fmt.Fprintln(a.out, ids[i])
			}
			return nil
		},
	}
}

func (a *App) open(ctx context.Context, id string, picker lifecycle.ImagePicker) (*lifecycle.Controller, error) {
	deps := lifecycle.Deps{
		Auth:       a.session,
		Backend:    a.api,
		Loader:     lifecycle.NewLoader(a.api, a.storageURL, a.log),
		Navigator:  terminalNavigator{ctx: ctx, app: a},
		Notifier:   terminalNotifier{out: a.out},
		Geolocator: device.NewLocator(a.device),
		Picker:     picker,
		Log:        a.log,
		Now:        a.now,
	}

	ctrl, err := lifecycle.NewController(id, deps)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	if err := a.recent.Add(id); err != nil {
		a.log.Warn().Err(err).Msg("failed to record recent ticket")
	}
	return ctrl, nil
}

func (a *App) printTicket(ctrl *lifecycle.Controller) {
	snapshot, ok := ctrl.Snapshot()
	if !ok {
		return
	}
	t := snapshot.Ticket

	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticket\t%s (id %s)\n", t.TicketNumber, t.ID)
	fmt.Fprintf(tw, "Status\t%s\n", ctrl.Status())
	fmt.Fprintf(tw, "Type\t%s\n", t.Type)
	fmt.Fprintf(tw, "Account\t%s (%s)\n", t.AccountName, t.AccountNumber)
	fmt.Fprintf(tw, "Address\t%s\n", t.InstallationAddress)
	fmt.Fprintf(tw, "Mobile\t%s\n", t.MobileNumber)
	fmt.Fprintf(tw, "Date\t%s\n", t.Date)
	fmt.Fprintf(tw, "Subject\t%s\n", t.Subject)

	if record, ok := ctrl.Completion(); ok {
		fmt.Fprintf(tw, "Remarks\t%s\n", record.Remarks)
		fmt.Fprintf(tw, "Location\t%s\n", record.Location)
		fmt.Fprintf(tw, "Cause picture\t%s\n", record.PictureCause)
		fmt.Fprintf(tw, "Reading picture\t%s\n", record.PictureReading)
	}

	actions := ctrl.Actions()
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, string(action))
	}
	if len(names) == 0 {
		names = append(names, "none")
	}
	fmt.Fprintf(tw, "Actions\t%s\n", strings.Join(names, ", "))
	tw.Flush()
}

func (a *App) printHome(ctx context.Context) error {
	tickets, err := a.api.Home(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tickets: %w", err)
	}

	summary := lifecycle.Summarize(tickets)
	fmt.Fprintf(a.out, "%d tickets: %d pending, %d accepted, %d in progress\n",
		summary.Total,
		summary.Count(string(lifecycle.StatusPending)),
		summary.Count(string(lifecycle.StatusAccepted)),
		summary.Count(string(lifecycle.StatusInProgress)),
	)

	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tSTATUS\tTYPE\tSUBJECT")
	for _, remote := range tickets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			remote.ID.Or("N/A"),
			remote.TicketNumber.Or("N/A"),
			strings.ToLower(remote.Status),
			lifecycle.NormalizeType(remote.Type),
			remote.Subject,
		)
	}
	return tw.Flush()
}
