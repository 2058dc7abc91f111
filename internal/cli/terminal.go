package cli

import (
	"context"
	"fmt"
	"io"
)

type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) Notify(title, message string) {
	fmt.Fprintf(n.out, "[%s] %s\n", title, message)
}

// terminalNavigator renders the ticket list when a ticket screen exits.
type terminalNavigator struct {
	ctx context.Context
	app *App
}

func (n terminalNavigator) Back() {
	fmt.Fprintln(n.app.out)
}

func (n terminalNavigator) ReplaceWithTicketList() {
	fmt.Fprintln(n.app.out)
	if err := n.app.printHome(n.ctx); err != nil {
		n.app.log.Warn().Err(err).Msg("failed to render ticket list")
	}
}
