// Package main provides the kiosk client entry point.
// A display running the site reports visitor interactions with it.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/campusbgm/internal/api/connect"
)

var (
	app    = kingpin.New("campusbgm-kiosk", "School website background music kiosk client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	source = app.Flag("source", "Name of this kiosk").Default("kiosk").String()

	// interact command
	interactCmd  = app.Command("interact", "Report a visitor interaction")
	interactKind = interactCmd.Arg("kind", "Interaction kind (click, touchstart, keydown, scroll)").Default("click").String()

	// listen command
	listenCmd = app.Command("listen", "Report an interaction for every line typed on stdin")

	// status command
	statusCmd = app.Command("status", "Get playback status")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewKioskServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	// Execute command
	switch command {
	case interactCmd.FullCommand():
		interact(ctx, client, *interactKind)
	case listenCmd.FullCommand():
		listen(ctx, client)
	case statusCmd.FullCommand():
		status(ctx, client)
	}
}

func interact(ctx context.Context, client *apiconnect.KioskServiceClient, kind string) {
	resp, err := client.ReportInteraction(ctx, connect.NewRequest(&apiconnect.ReportInteractionRequest{
		Kind:   kind,
		Source: *source,
	}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Msg.Consumed {
		fmt.Printf("%s accepted, playback unlocked: %v\n", kind, resp.Msg.Unlocked)
	} else {
		fmt.Printf("%s already counted, playback unlocked: %v\n", kind, resp.Msg.Unlocked)
	}
}

// listen treats every stdin line as a key press; an empty line is a click.
func listen(ctx context.Context, client *apiconnect.KioskServiceClient) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Press Enter to click, type anything for a key press (Ctrl+C to exit)")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			kind := "keydown"
			if strings.TrimSpace(line) == "" {
				kind = "click"
			}
			interact(ctx, client, kind)
		}
	}
}

func status(ctx context.Context, client *apiconnect.KioskServiceClient) {
	resp, err := client.GetPlaybackStatus(ctx, connect.NewRequest(&apiconnect.GetPlaybackStatusRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	s := resp.Msg.Status
	fmt.Printf("State: %s\n", s.State)
	fmt.Printf("Unlocked: %v\n", s.Unlocked)
	if s.URL != "" {
		fmt.Printf("Source: %s\n", s.URL)
	}
}
