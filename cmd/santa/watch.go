package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"secretsanta/internal/live"
	"secretsanta/internal/services"
	"secretsanta/internal/session"
	"secretsanta/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C0392B"))
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#27AE60"))
	selfStyle  = nameStyle.Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#505050")).
			Padding(0, 1)
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow the event of a running server from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Value: "localhost:8080", Usage: "server `address`"},
			&cli.StringFlag{Name: "as", Usage: "follow the event as participant `name`"},
			&cli.DurationFlag{Name: "retry", Value: 3 * time.Second, Usage: "wait this long before reconnecting"},
		},
		Action: watch,
	}
}

func watch(c *cli.Context) error {
	wsURL, err := live.WatchURL(c.String("server"))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var slot session.MemorySlot
	slot.Save(services.NormalizeName(c.String("as")))
	m := session.NewMachine(slot.Load())
	fmt.Println(mutedStyle.Render("Connecting to " + wsURL))

	for {
		err := live.Watch(ctx, wsURL, func(msg live.Message) {
			var t session.Transition
			switch msg.Type {
			case live.MessageEvent:
				if msg.Event == nil {
					return
				}
				t = m.ApplyEvent(msg.Event.Event())
			case live.MessageError:
				m.ApplyError(feedError(msg))
			default:
				return
			}
			fmt.Println(renderState(m.State(), t))
		})
		if ctx.Err() != nil {
			return nil
		}
		m.ApplyError(err)
		fmt.Println(renderState(m.State(), session.Transition{}))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.Duration("retry")):
		}
	}
}

// feedError turns an error frame back into an error the Machine classifies.
func feedError(msg live.Message) error {
	if msg.SetupNeeded {
		return fmt.Errorf("%w: %s", store.ErrNotProvisioned, msg.Error)
	}
	return errors.New(msg.Error)
}

// renderState draws one frame of the watcher.
func renderState(st session.State, t session.Transition) string {
	switch st.Condition {
	case session.ConditionLoading:
		return mutedStyle.Render("Loading...")
	case session.ConditionSetupNeeded:
		return errorStyle.Render("The event store is not set up. Run `santa migrate` on the server.")
	case session.ConditionError:
		return errorStyle.Render("Connection error: " + st.ErrorMessage)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Secret Santa"))
	b.WriteString("\n")
	if st.Event.IsDrawComplete {
		b.WriteString("Draw complete\n")
	} else {
		b.WriteString("Registration open\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d participants", len(st.Event.Users))))
	b.WriteString("\n")

	registered := false
	for _, u := range st.Event.Users {
		if u.Name == st.Identity {
			registered = true
			b.WriteString("  " + selfStyle.Render(u.Name+" (you)") + "\n")
			continue
		}
		b.WriteString("  " + nameStyle.Render(u.Name) + "\n")
	}

	if t.Reopened {
		b.WriteString(errorStyle.Render("The event was reset."))
		b.WriteString("\n")
	}
	if st.Identity != "" && !registered {
		b.WriteString(mutedStyle.Render(st.Identity + " is not registered"))
		b.WriteString("\n")
	}
	if st.Screen == session.ScreenResult {
		b.WriteString("Open the web page to see who you give a gift to.")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
