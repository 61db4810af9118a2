package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/SgtClickClack/snipshift-sub007/internal/client"
	"github.com/SgtClickClack/snipshift-sub007/internal/config"
	"github.com/SgtClickClack/snipshift-sub007/internal/model"
)

func main() {
	configFlag := flag.String("config", config.Path(), "config file path")
	userFlag := flag.String("user", "", "current user ID (overrides config)")
	tokenFlag := flag.String("token", "", "auth token (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var messenger *client.Messenger
	app := fx.New(
		fx.NopLogger,
		client.Module(client.Params{ConfigPath: *configFlag, AuthToken: *tokenFlag}),
		fx.Populate(&messenger),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	ctx, ctxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer ctxCancel()

	switch args[0] {
	case "chats":
		cmdChats(ctx, messenger, *userFlag, *jsonFlag)
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snipchat messages <conversation-id>")
			os.Exit(1)
		}
		cmdMessages(ctx, messenger, args[1], *jsonFlag)
	case "send":
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: snipchat --user <id> send <conversation-id> <receiver-id> <text...>")
			os.Exit(1)
		}
		cmdSend(ctx, messenger, args[1], *userFlag, args[2], strings.Join(args[3:], " "), *jsonFlag)
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snipchat open <other-user-id> [job-id]")
			os.Exit(1)
		}
		jobID := ""
		if len(args) >= 3 {
			jobID = args[2]
		}
		cmdOpen(ctx, messenger, args[1], jobID)
	case "read":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snipchat read <conversation-id>")
			os.Exit(1)
		}
		_ = messenger.MarkMessagesAsRead(ctx, args[1])
	case "flush":
		messenger.FlushOfflineQueue(ctx)
		fmt.Printf("Queued: %d\n", messenger.QueueLength())
	case "tail":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snipchat tail <conversation-id>")
			os.Exit(1)
		}
		cmdTail(messenger, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: snipchat [--config <path>] [--user <id>] [--token <token>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  chats                                List conversations")
	fmt.Fprintln(os.Stderr, "  messages <conversation-id>           List messages in a conversation")
	fmt.Fprintln(os.Stderr, "  send <conv-id> <receiver-id> <text>  Send a message (queued when offline)")
	fmt.Fprintln(os.Stderr, "  open <other-user-id> [job-id]        Create or fetch a conversation")
	fmt.Fprintln(os.Stderr, "  read <conversation-id>               Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  flush                                Retry queued offline messages")
	fmt.Fprintln(os.Stderr, "  tail <conversation-id>               Follow a conversation until interrupted")
}

func requireUser(userID string) string {
	if userID == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required for this command")
		os.Exit(1)
	}
	return userID
}

func cmdChats(ctx context.Context, m *client.Messenger, userID string, jsonOut bool) {
	convos, err := m.Conversations(ctx, requireUser(userID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(convos)
		return
	}
	if len(convos) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, c := range convos {
		other := c.Participants[0]
		if other == userID {
			other = c.Participants[1]
		}
		preview := ""
		if c.LastMessage != nil {
			preview = c.LastMessage.Content
		}
		fmt.Printf("%-36s %-20s %s\n", c.ID, other, preview)
	}
}

func cmdMessages(ctx context.Context, m *client.Messenger, conversationID string, jsonOut bool) {
	msgs, err := m.Messages(ctx, conversationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	printMessages(msgs)
}

func cmdSend(ctx context.Context, m *client.Messenger, conversationID, senderID, receiverID, content string, jsonOut bool) {
	msg, err := m.SendMessage(ctx, conversationID, requireUser(senderID), receiverID, content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	if msg.IsPending() {
		fmt.Printf("Queued for delivery (%d waiting): %s\n", m.QueueLength(), msg.ID)
	} else {
		fmt.Printf("Sent: %s\n", msg.ID)
	}
}

func cmdOpen(ctx context.Context, m *client.Messenger, otherUserID, jobID string) {
	id, err := m.CreateOrGetConversation(ctx, otherUserID, jobID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(id)
}

func cmdTail(m *client.Messenger, conversationID string, jsonOut bool) {
	cancel := m.SubscribeToMessages(conversationID, func(msgs []model.Message) {
		if jsonOut {
			outputJSON(msgs)
			return
		}
		printMessages(msgs)
	})
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func printMessages(msgs []model.Message) {
	for _, msg := range msgs {
		marker := ""
		if msg.IsPending() {
			marker = " (pending)"
		}
		fmt.Printf("[%s] %s: %s%s\n", msg.Timestamp.Format("15:04"), msg.SenderID, msg.Content, marker)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
