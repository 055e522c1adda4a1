// Command oauthdance authorizes this machine against BlueVia from a terminal and prints the
// resulting access token.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"golang.org/x/term"

	"github.com/getlantern/oauthdance"
	"github.com/getlantern/oauthdance/common"
)

type args struct {
	DataPath       string        `arg:"--data-path,env:OAUTHDANCE_DATA_PATH" help:"path to store settings"`
	LogPath        string        `arg:"--log-path,env:OAUTHDANCE_LOG_PATH" help:"path to store logs"`
	LogLevel       string        `arg:"--log-level" default:"warn" help:"logging level (trace, debug, info, warn, error)"`
	ConsumerKey    string        `arg:"--consumer-key" help:"BlueVia consumer key"`
	ConsumerSecret string        `arg:"--consumer-secret" help:"BlueVia consumer secret, prompted for when a key is given without one"`
	Format         string        `arg:"--format" default:"yaml" help:"output format (yaml, json)"`
	Timeout        time.Duration `arg:"--timeout" help:"abort if the authorization takes longer than this"`
	Verbose        bool          `arg:"-v,--verbose" help:"print every state change"`
}

func (args) Version() string {
	return common.Name + " " + common.Version
}

func (args) Description() string {
	return "Runs the BlueVia OAuth authorization and prints the access token."
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if a.Format != "yaml" && a.Format != "json" {
		p.Fail("--format must be yaml or json")
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if a.ConsumerKey != "" && a.ConsumerSecret == "" && interactive {
		secret, err := readSecret(os.Stderr)
		if err != nil {
			log.Fatalf("Failed to read consumer secret: %v", err)
		}
		a.ConsumerSecret = secret
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, a, os.Stdin, os.Stdout, os.Stderr))
}

func readSecret(w io.Writer) (string, error) {
	fmt.Fprint(w, "Consumer secret: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return string(secret), err
}

func run(ctx context.Context, a args, stdin io.Reader, stdout, stderr io.Writer) int {
	client, err := oauthdance.New(oauthdance.Options{
		DataDir:        a.DataPath,
		LogDir:         a.LogPath,
		LogLevel:       a.LogLevel,
		ConsumerKey:    a.ConsumerKey,
		ConsumerSecret: a.ConsumerSecret,
		DanceTimeout:   a.Timeout,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			slog.Error("Failed to close", "error", err)
		}
	}()

	var printer *statePrinter
	if a.Verbose {
		// subscribed before the dance starts so the first transitions are not missed
		printer = newStatePrinter(stderr)
		defer printer.stop()
	}
	surface := newTerminalSurface(stderr)
	session, err := client.Authorize(ctx, surface)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start authorization: %v\n", err)
		return 1
	}
	if printer != nil {
		printer.follow(session.ID())
	}
	go surface.readNavigations(stdin, session)

	token, err := session.Wait(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Authorization failed: %v\n", err)
		return 1
	}
	if err := writeToken(stdout, a.Format, token); err != nil {
		fmt.Fprintf(stderr, "Failed to write token: %v\n", err)
		return 1
	}
	return 0
}
