// Command watch opens a broker event stream and prints every event.
//
// It is a manual testing tool: run two instances to play a game from two
// terminals, submitting moves with curl against /api/board/play_move.
//
//	watch random
//	watch custom
//	watch join <game-id>
//	watch spectate <game-id>
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/chessbroker/game/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type watcher struct {
	server string
	token  string
	out    io.Writer
	client *http.Client
}

func newApp(out io.Writer) *cli.Command {
	w := &watcher{out: out, client: &http.Client{}}

	before := func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		w.server = strings.TrimRight(cmd.String("server"), "/")
		w.token = cmd.String("token")
		return ctx, nil
	}
	stream := func(path string, anonymous bool) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			target := path
			if strings.Contains(path, "%s") {
				id := cmd.Args().First()
				if id == "" {
					return fmt.Errorf("%s needs a game id", cmd.Name)
				}
				target = fmt.Sprintf(path, id)
			}
			if !anonymous && w.token == "" {
				if err := w.login(ctx); err != nil {
					return err
				}
			}
			return w.watch(ctx, target)
		}
	}

	return &cli.Command{
		Name:  "watch",
		Usage: "Print events from a chess broker stream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "broker base URL", Sources: cli.EnvVars("BROKER_API_URL")},
			&cli.StringFlag{Name: "token", Usage: "player token (a guest identity is created when empty)", Sources: cli.EnvVars("BROKER_TOKEN")},
		},
		Before: before,
		Commands: []*cli.Command{
			{Name: "random", Usage: "join the random-match queue", Action: stream("/api/board/new_random_game", false)},
			{Name: "custom", Usage: "create an invite", Action: stream("/api/board/new_custom_game", false)},
			{Name: "join", Usage: "join an invite or reconnect to a game", ArgsUsage: "<game-id>", Action: stream("/api/board/join_game/%s", false)},
			{Name: "spectate", Usage: "watch a game", ArgsUsage: "<game-id>", Action: stream("/api/board/spectate/%s", true)},
		},
	}
}

// login obtains a guest identity and prints it so moves can be submitted
func (w *watcher) login(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.server+"/api/auth/guest", nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("guest login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("guest login: %s", resp.Status)
	}

	var body struct {
		PlayerID string `json:"player_id"`
		Token    string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("guest login: %w", err)
	}
	w.token = body.Token
	fmt.Fprintf(w.out, "player %s\ntoken  %s\n\n", body.PlayerID, body.Token)
	return nil
}

func (w *watcher) watch(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.server+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s: %s %s", resp.Status, apiErr.Code, apiErr.Error)
	}

	return printEvents(resp.Body, w.out)
}

// printEvents decodes SSE data lines until the stream ends
func printEvents(r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		ev, err := session.UnmarshalEvent([]byte(data))
		if err != nil {
			fmt.Fprintf(out, "? %s\n", data)
			continue
		}
		fmt.Fprintln(out, describe(ev))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out, "stream closed")
	return nil
}

func describe(ev session.Event) string {
	switch e := ev.(type) {
	case session.WaitingForOpponent:
		return "waiting for an opponent..."
	case session.CustomCreated:
		return fmt.Sprintf("invite created: %s", e.GameID)
	case session.GameStart:
		return fmt.Sprintf("game %s started, you play %s", e.GameID, e.PlayerColor)
	case session.OpponentPlayedMove:
		move := e.From + e.To
		if e.PromoteTo != nil {
			move += *e.PromoteTo
		}
		return "opponent played " + move
	case session.RejoinedGame:
		return fmt.Sprintf("rejoined %s as %s after %d moves\n  %s", e.GameID, e.PlayerColor, len(e.Board.Moves), e.Board.FEN)
	case session.SpectatorJoined:
		return fmt.Sprintf("watching %s after %d moves\n  %s", e.GameID, len(e.Board.Moves), e.Board.FEN)
	case session.OpponentDisconnected:
		return "opponent disconnected"
	}
	return ev.Kind()
}
