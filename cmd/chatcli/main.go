package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/config"
	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/pkg/chatclient"
)

const usage = `usage: chatcli <command> [flags] [args]

commands:
  register -name NAME -user USERNAME -phone PHONE -password PASSWORD
  login -user USERNAME -password PASSWORD
  logout
  whoami
  conversations
  history USER_ID
  send USER_ID TEXT...
  read USER_ID
  unread
  listen [-with USER_ID] [-no-reconnect]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadClient()
	store := chatclient.NewFileSessionStore(sessionPath())
	client := chatclient.NewClient(cfg.APIURL,
		chatclient.WithSession(store),
		chatclient.OnUnauthorized(func() {
			if err := store.Clear(); err == nil {
				log.Println("Session expired, please log in again")
			}
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli{cfg: cfg, store: store, client: client, out: os.Stdout}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "register":
		err = app.register(ctx, args)
	case "login":
		err = app.login(ctx, args)
	case "logout":
		err = store.Clear()
	case "whoami":
		err = app.whoami(ctx)
	case "conversations":
		err = app.conversations(ctx)
	case "history":
		err = app.history(ctx, args)
	case "send":
		err = app.send(ctx, args)
	case "read":
		err = app.read(ctx, args)
	case "unread":
		err = app.unread(ctx)
	case "listen":
		err = app.listen(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		var verr *chatclient.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
		log.Fatalf("chatcli %s: %v", cmd, err)
	}
}

func sessionPath() string {
	if p := os.Getenv("DEALERCHAT_SESSION"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "dealerchat", "session.json")
}

type cli struct {
	cfg    *config.ClientConfig
	store  *chatclient.FileSessionStore
	client *chatclient.Client
	out    *os.File
}

func (c *cli) me() (domain.Profile, error) {
	sess, err := c.store.Current()
	if err != nil {
		if errors.Is(err, chatclient.ErrNoSession) {
			return domain.Profile{}, errors.New("not logged in, run: chatcli login")
		}
		return domain.Profile{}, err
	}
	return sess.Profile, nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	user := fs.String("user", "", "username")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", os.Getenv("DEALERCHAT_PASSWORD"), "password")
	fs.Parse(args)

	u, err := c.client.Register(ctx, chatclient.RegisterRequest{
		FullName: *name,
		UserName: *user,
		Password: *password,
		Phone:    *phone,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered %s (%s)\n", u.Username, u.ID)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "username")
	password := fs.String("password", os.Getenv("DEALERCHAT_PASSWORD"), "password")
	fs.Parse(args)

	res, err := c.client.Login(ctx, *user, *password)
	if err != nil {
		return err
	}
	if err := c.store.Save(res); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", res.UserProfile.Data.DisplayName())
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	if _, err := c.me(); err != nil {
		return err
	}
	p, err := c.client.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (@%s)\nid:   %s\nrole: %s\n", p.DisplayName(), p.Username, p.UserID, p.Role)
	return nil
}

func (c *cli) conversations(ctx context.Context) error {
	me, err := c.me()
	if err != nil {
		return err
	}
	convs, err := c.client.Conversations(ctx, me.UserID)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(c.out, "No conversations yet")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tNAME\tUNREAD\tLAST\tWHEN")
	for _, conv := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			conv.UserID, conv.UserName, conv.UnreadCount,
			preview(conv.LastMessage, 40), conv.LastMessageTime.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (c *cli) history(ctx context.Context, args []string) error {
	me, err := c.me()
	if err != nil {
		return err
	}
	other, err := userArg(args)
	if err != nil {
		return err
	}
	msgs, err := c.client.History(ctx, me.UserID, other)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		printMessage(c.out, m, me.UserID)
	}
	return nil
}

func (c *cli) send(ctx context.Context, args []string) error {
	me, err := c.me()
	if err != nil {
		return err
	}
	other, err := userArg(args)
	if err != nil {
		return err
	}

	msg, err := c.client.SendMessage(ctx, domain.ChatMessage{
		SenderID:    me.UserID,
		ReceiverID:  other,
		Content:     strings.Join(args[1:], " "),
		MessageType: domain.MessageTypeText,
	})
	if err != nil {
		return err
	}
	printMessage(c.out, *msg, me.UserID)
	return nil
}

func (c *cli) read(ctx context.Context, args []string) error {
	me, err := c.me()
	if err != nil {
		return err
	}
	other, err := userArg(args)
	if err != nil {
		return err
	}
	return c.client.MarkRead(ctx, me.UserID, other)
}

func (c *cli) unread(ctx context.Context) error {
	me, err := c.me()
	if err != nil {
		return err
	}
	n, err := c.client.UnreadCount(ctx, me.UserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, n)
	return nil
}

// listen keeps a push connection open and prints what arrives. With -with,
// that conversation is opened and each stdin line is sent to it.
func (c *cli) listen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	with := fs.String("with", "", "open the conversation with this user id and send stdin lines to it")
	noReconnect := fs.Bool("no-reconnect", false, "do not redial after the connection drops")
	fs.Parse(args)

	me, err := c.me()
	if err != nil {
		return err
	}

	policy := chatclient.DefaultReconnectPolicy()
	policy.Enabled = !*noReconnect
	conn := chatclient.NewConn(c.cfg.WSURL,
		chatclient.WithConnSession(c.store),
		chatclient.WithReconnect(policy),
	)
	defer conn.Close()

	inbound, cancelInbound := conn.Messages()
	defer cancelInbound()
	status, cancelStatus := conn.Status()
	defer cancelStatus()

	chat := chatclient.NewChat(c.client, conn, c.store)
	if err := chat.Start(ctx); err != nil {
		return err
	}
	defer chat.Stop()

	var lines chan string
	if *with != "" {
		other, err := uuid.Parse(*with)
		if err != nil {
			return fmt.Errorf("invalid user id %q", *with)
		}
		if err := chat.SelectUser(ctx, other, ""); err != nil {
			return err
		}
		for _, m := range chat.Messages() {
			printMessage(c.out, m, me.UserID)
		}

		lines = make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-status:
			if !ok {
				return nil
			}
			if up {
				fmt.Fprintln(c.out, "* connected")
			} else {
				fmt.Fprintln(c.out, "* disconnected")
			}
		case m, ok := <-inbound:
			if !ok {
				return nil
			}
			printMessage(c.out, m, me.UserID)
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			msg, err := chat.Send(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out, "! not sent: %v\n", err)
				continue
			}
			printMessage(c.out, *msg, me.UserID)
		}
	}
}

func userArg(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, errors.New("user id argument is required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}

func printMessage(out *os.File, m domain.ChatMessage, me uuid.UUID) {
	when := "--:--"
	if m.CreatedDate != nil {
		when = m.CreatedDate.Local().Format("15:04")
	}
	who := m.SenderName
	switch {
	case m.SenderID == me:
		who = "you"
	case who == "":
		who = m.SenderID.String()
	}
	line := m.Content
	if m.FileURL != nil && *m.FileURL != "" {
		line += " [" + *m.FileURL + "]"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", when, who, line)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
