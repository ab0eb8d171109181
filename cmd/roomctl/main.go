// Command roomctl inspects and talks to a running roomchat server.
//
//	roomctl [-server URL] <command> [flags]
//
// Commands: health, rooms, users, messages, post, chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

const defaultServerURL = "http://localhost:8080"

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, color.Red.Sprintf("Error: %v", err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("roomctl", flag.ContinueOnError)
	serverURL := fs.String("server", envOr("ROOMCHAT_URL", defaultServerURL), "roomchat server base URL")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	api := newAPIClient(*serverURL)
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "health":
		return cmdHealth(ctx, api, stdout)
	case "rooms":
		return cmdRooms(ctx, api, stdout)
	case "users":
		return cmdUsers(ctx, api, stdout)
	case "messages":
		return cmdMessages(ctx, api, rest, stdout)
	case "post":
		return cmdPost(ctx, api, rest, stdout)
	case "chat":
		return cmdChat(ctx, *serverURL, rest, stdin, stdout)
	default:
		fmt.Fprintf(fs.Output(), "unknown command %q\n", cmd)
		fs.Usage()
		return errUsage
	}
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "Usage: roomctl [-server URL] <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  health                          server status and counts")
	fmt.Fprintln(out, "  rooms                           list active rooms")
	fmt.Fprintln(out, "  users                           list connected sessions")
	fmt.Fprintln(out, "  messages [-room R] [-limit N]   list recent messages")
	fmt.Fprintln(out, "  post -m TEXT [-u NAME] [-room R]  post a message")
	fmt.Fprintln(out, "  chat [-room R] [-name NAME]     join a room and chat from stdin")
	fmt.Fprintln(out)
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
