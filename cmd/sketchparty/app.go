package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/canvas"
	"sketchparty/internal/chat"
	"sketchparty/internal/protocol"
	"sketchparty/internal/session"
	"sketchparty/internal/transport"
)

func run(ctx context.Context, cfg *Config) error {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.dialWait)
	conn, err := transport.Dial(dialCtx, transport.DefaultConfig(cfg.serverURL), logger)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.serverURL, err)
	}

	notify := broadcast.NewBroadcaster()
	sess := session.New(conn, notify, session.DefaultConfig(), logger)

	a := &app{
		cfg:       cfg,
		sess:      sess,
		log:       logger,
		out:       os.Stdout,
		lastState: protocol.GameWaiting,
		connected: true,
	}
	return a.run(ctx, notify)
}

// app renders session state to a line-based terminal. The change loop
// prints deltas against these cursors rather than redrawing snapshots.
type app struct {
	cfg  *Config
	sess *session.Session
	log  zerolog.Logger
	out  io.Writer

	chatSeen    int
	strokesSeen int
	lastState   protocol.GameState
	lastRound   int
	lastDrawer  string
	lastTimer   int
	lastCount   int
	lastError   string
	invitedFor  string
	connected   bool
}

func (a *app) run(ctx context.Context, notify *broadcast.Broadcaster) error {
	changes := notify.Subscribe()
	defer notify.Unsubscribe(changes)

	runErr := make(chan error, 1)
	go func() { runErr <- a.sess.Run(ctx) }()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	a.applyBrushFlags()

	var err error
	if a.cfg.roomCode != "" {
		err = a.sess.JoinRoom(a.cfg.roomCode, a.cfg.playerName)
	} else {
		err = a.sess.CreateRoom(a.cfg.playerName)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "type /help for commands; anything else you type is a guess")

	for {
		select {
		case <-ctx.Done():
			_ = a.sess.Disconnect()
			return nil
		case err := <-runErr:
			return err
		case change := <-changes:
			a.render(change.Scope)
		case line, ok := <-lines:
			if !ok {
				_ = a.sess.Disconnect()
				return <-runErr
			}
			if a.handleLine(line) {
				_ = a.sess.Disconnect()
				return <-runErr
			}
		}
	}
}

func (a *app) applyBrushFlags() {
	switch {
	case a.cfg.brushColor == "random":
		a.sess.Canvas.SetBrushColor(canvas.RandomColorHex())
	case a.cfg.brushColor != "":
		a.sess.Canvas.SetBrushColor(a.cfg.brushColor)
	}
	if a.cfg.brushSize > 0 {
		a.sess.Canvas.SetBrushSize(a.cfg.brushSize)
	}
}

func readLines(r io.Reader, lines chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

// handleLine reacts to one line of user input and reports whether the
// app should exit.
func (a *app) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		a.guess(line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return true
	case "/help":
		a.printHelp()
	case "/start":
		rounds := a.cfg.rounds
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				rounds = n
			}
		}
		if err := a.sess.StartGame(rounds); err != nil {
			a.printErr(err)
		}
	case "/ready":
		if err := a.sess.Ready(); err != nil {
			a.printErr(err)
		}
	case "/draw":
		a.draw(fields[1:])
	case "/clear":
		if err := a.sess.ClearCanvas(); err != nil {
			a.printErr(err)
		}
	case "/color":
		if len(fields) < 2 {
			fmt.Fprintf(a.out, "current color: %s\n", a.sess.Canvas.BrushColor())
			return false
		}
		if fields[1] == "random" {
			a.sess.Canvas.SetBrushColor(canvas.RandomColorHex())
		} else {
			a.sess.Canvas.SetBrushColor(fields[1])
		}
		fmt.Fprintf(a.out, "brush color: %s\n", a.sess.Canvas.BrushColor())
	case "/brush":
		if len(fields) < 2 {
			fmt.Fprintf(a.out, "current brush size: %d\n", a.sess.Canvas.BrushSize())
			return false
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			a.sess.Canvas.SetBrushSize(n)
		}
		fmt.Fprintf(a.out, "brush size: %d\n", a.sess.Canvas.BrushSize())
	case "/players":
		a.printScoreboard()
	case "/leave":
		if err := a.sess.LeaveRoom(); err != nil {
			a.printErr(err)
		}
	default:
		fmt.Fprintf(a.out, "unknown command %s; try /help\n", fields[0])
	}
	return false
}

func (a *app) guess(text string) {
	a.sess.Chat.SetInput(text)
	switch err := a.sess.SendChat(); {
	case err == nil:
	case errors.Is(err, chat.ErrDrawerMayNotChat):
		fmt.Fprintln(a.out, "you're drawing; no guessing your own word")
	case errors.Is(err, chat.ErrMessageTooLong):
		fmt.Fprintf(a.out, "message too long (%d characters max)\n", chat.MaxMessageLength)
	case errors.Is(err, chat.ErrMessageEmpty):
	default:
		a.printErr(err)
	}
}

// draw sends a stroke described as x,y pairs: the first point starts the
// stroke, the rest extend it, and the final point lifts the pen.
func (a *app) draw(args []string) {
	points, err := parsePoints(args)
	if err != nil {
		fmt.Fprintf(a.out, "%v (usage: /draw x,y x,y ...)\n", err)
		return
	}

	for i, pt := range points {
		var stroke protocol.DrawingData
		switch {
		case i == 0:
			stroke = a.sess.Canvas.StartPoint(pt[0], pt[1])
		case i == len(points)-1:
			stroke = a.sess.Canvas.EndPoint(pt[0], pt[1], points[i-1][0], points[i-1][1])
		default:
			stroke = a.sess.Canvas.ContinuePoint(pt[0], pt[1], points[i-1][0], points[i-1][1])
		}
		if err := a.sess.SendStroke(stroke); err != nil {
			a.printErr(err)
			return
		}
	}
}

func parsePoints(args []string) ([][2]float64, error) {
	if len(args) == 0 {
		return nil, errors.New("no points given")
	}
	points := make([][2]float64, 0, len(args))
	for _, arg := range args {
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("bad point %q", arg)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("bad point %q", arg)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("bad point %q", arg)
		}
		points = append(points, [2]float64{x, y})
	}
	return points, nil
}

func (a *app) printErr(err error) {
	switch {
	case errors.Is(err, session.ErrNotDrawer):
		fmt.Fprintln(a.out, "only the drawer can do that")
	case errors.Is(err, transport.ErrClosed):
		fmt.Fprintln(a.out, "not connected")
	default:
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
}

func (a *app) printHelp() {
	fmt.Fprint(a.out, `commands:
  /start [rounds]   start the game (2+ players required)
  /ready            tell the server you're set for the next round
  /draw x,y x,y ... draw a stroke through the given points
  /color <#hex>     set brush color (or "random")
  /brush <1-20>     set brush size
  /clear            wipe the canvas
  /players          show the scoreboard
  /leave            leave the room
  /quit             disconnect and exit
anything without a leading / is sent as a chat guess
`)
}

func (a *app) render(scope broadcast.Scope) {
	switch scope {
	case broadcast.ScopeSession:
		a.renderSession()
	case broadcast.ScopeRoster:
		a.renderRoster()
	case broadcast.ScopeGame:
		a.renderGame()
	case broadcast.ScopeChat:
		a.renderChat()
	case broadcast.ScopeCanvas:
		a.renderCanvas()
	}
}

func (a *app) renderSession() {
	if msg := a.sess.LastError(); msg != "" && msg != a.lastError {
		a.lastError = msg
		fmt.Fprintf(a.out, "!! %s\n", msg)
	}

	if connected := a.sess.Connected(); connected != a.connected {
		a.connected = connected
		if connected {
			fmt.Fprintln(a.out, "-- reconnected")
		} else {
			fmt.Fprintln(a.out, "-- connection lost, retrying...")
		}
	}

	code := a.sess.Roster.RoomCode()
	if code == "" {
		a.invitedFor = ""
		return
	}
	if code != a.invitedFor {
		a.invitedFor = code
		a.printInvite(code)
	}
}

func (a *app) printInvite(code string) {
	link, err := inviteLink(a.cfg.serverURL, code)
	if err != nil {
		a.log.Debug().Err(err).Msg("building invite link")
		link = ""
	}
	fmt.Fprintf(a.out, "room code: %s\n", code)
	if link == "" {
		return
	}
	if !a.cfg.noQR {
		if q, err := qrcode.New(link, qrcode.Medium); err == nil {
			fmt.Fprint(a.out, q.ToSmallString(false))
		}
	}
	fmt.Fprintf(a.out, "invite: %s\n", link)
}

// inviteLink turns the websocket endpoint into the matching browser URL
// with the room code attached.
func inviteLink(serverURL, code string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/"
	u.RawQuery = url.Values{"room": {code}}.Encode()
	return u.String(), nil
}

func (a *app) renderRoster() {
	count := a.sess.Roster.PlayerCount()
	if count != a.lastCount {
		a.lastCount = count
		names := make([]string, 0, count)
		for _, p := range a.sess.Roster.Players() {
			names = append(names, p.Name)
		}
		fmt.Fprintf(a.out, "players (%d/%d): %s\n", count, a.sess.Roster.MaxPlayers(), strings.Join(names, ", "))
	}
}

func (a *app) renderGame() {
	state := a.sess.Game.State()
	round := a.sess.Game.CurrentRound()
	drawer := a.sess.Game.CurrentDrawerID()

	if state != a.lastState || round != a.lastRound {
		a.announceState(state, round)
		a.lastState = state
		a.lastRound = round
	}

	if drawer != a.lastDrawer && drawer != "" && state == protocol.GamePlaying {
		a.lastDrawer = drawer
		a.announceDrawer(drawer)
	}

	if state == protocol.GamePlaying {
		a.renderTimer()
	}
}

func (a *app) announceState(state protocol.GameState, round int) {
	switch state {
	case protocol.GamePlaying:
		fmt.Fprintf(a.out, "== round %d of %d\n", round, a.sess.Game.MaxRounds())
	case protocol.GameRoundEnd:
		if results, ok := a.sess.Game.LastResults(); ok {
			fmt.Fprintf(a.out, "== round over! the word was %q\n", results.Word)
			if len(results.CorrectGuessers) == 0 {
				fmt.Fprintln(a.out, "   nobody guessed it")
			}
		} else {
			fmt.Fprintln(a.out, "== round over!")
		}
		a.printScoreboard()
	case protocol.GameEnded:
		fmt.Fprintln(a.out, "== game over!")
		a.printFinalScores()
	case protocol.GameWaiting:
		fmt.Fprintln(a.out, "== waiting for players; /start when ready")
	}
}

func (a *app) announceDrawer(drawerID string) {
	if a.sess.Game.IsLocalDrawing() {
		fmt.Fprintf(a.out, ">> you're drawing! the word is %q\n", a.sess.Game.Word())
		return
	}
	name := drawerID
	if p, ok := a.sess.Roster.Get(drawerID); ok {
		name = p.Name
	}
	fmt.Fprintf(a.out, ">> %s is drawing; start guessing\n", name)
}

func (a *app) renderTimer() {
	remaining := a.sess.Game.TimeRemaining()
	if remaining == a.lastTimer {
		return
	}
	a.lastTimer = remaining
	// One line per tick would drown the chat; only milestones print.
	if remaining > 0 && (remaining%10 == 0 || remaining <= 5) {
		fmt.Fprintf(a.out, "   %ds left\n", remaining)
	}
}

// renderChat cursors on the gate's append counter: once the log is at its
// retention cap its length stops moving, so slice positions go stale.
func (a *app) renderChat() {
	msgs, total := a.sess.Chat.Snapshot()
	fresh := total - a.chatSeen
	if fresh > len(msgs) {
		fresh = len(msgs)
	}
	for _, msg := range msgs[len(msgs)-fresh:] {
		if msg.IsCorrectGuess {
			fmt.Fprintf(a.out, "** %s\n", msg.Message)
		} else {
			fmt.Fprintf(a.out, "<%s> %s\n", msg.PlayerName, msg.Message)
		}
	}
	a.chatSeen = total
}

func (a *app) renderCanvas() {
	count := a.sess.Canvas.StrokeCount()
	switch {
	case count == 0 && a.strokesSeen > 0:
		fmt.Fprintln(a.out, "-- canvas cleared")
	case count > a.strokesSeen && !a.sess.Game.IsLocalDrawing() && count%25 == 0:
		fmt.Fprintf(a.out, "-- the drawer is sketching (%d strokes)\n", count)
	}
	a.strokesSeen = count
}

func (a *app) printScoreboard() {
	players := a.sess.Roster.PlayersByScore()
	if len(players) == 0 {
		fmt.Fprintln(a.out, "no players yet")
		return
	}
	fmt.Fprintln(a.out, "scoreboard:")
	for i, p := range players {
		marker := " "
		if p.ID == a.sess.PlayerID() {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %d. %-16s %d\n", marker, i+1, p.Name, p.Score)
	}
}

func (a *app) printFinalScores() {
	scores := a.sess.Game.FinalScores()
	if len(scores) == 0 {
		a.printScoreboard()
		return
	}
	for _, entry := range scores {
		marker := " "
		if entry.PlayerID == a.sess.PlayerID() {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %d. %-16s %d\n", marker, entry.Rank, entry.PlayerName, entry.Score)
	}
	if scores[0].Rank == 1 {
		fmt.Fprintf(a.out, "   %s wins!\n", scores[0].PlayerName)
	}
}
