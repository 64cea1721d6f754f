package notify

import (
	"context"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/config"
)

func TestToLineMessage(t *testing.T) {
	msg, err := testRenderer().Render(NewTicketPayload{Code: "REP-1", ReporterName: "Somchai", Title: "Printer jam", Location: "Room 201"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	converted, err := toLineMessage(msg)
	if err != nil {
		t.Fatalf("convert flex: %v", err)
	}
	flex, ok := converted.(*messaging_api.FlexMessage)
	if !ok || flex.AltText != msg.AltText || flex.Contents == nil {
		t.Fatalf("unexpected flex message %#v", converted)
	}

	converted, err = toLineMessage(RenderText("hello", "", ""))
	if err != nil {
		t.Fatalf("convert text: %v", err)
	}
	if textMsg, ok := converted.(*messaging_api.TextMessage); !ok || textMsg.Text != "hello" {
		t.Fatalf("unexpected text message %#v", converted)
	}

	if _, err := toLineMessage(Message{Kind: MessageFlex}); err == nil {
		t.Fatal("flex without contents should fail")
	}
	if _, err := toLineMessage(Message{Kind: "sticker"}); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

func TestNewClientWithoutTokenLogsOnly(t *testing.T) {
	client, err := NewClient(config.LineConfig{}, config.NotificationConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, ok := client.(*LogClient); !ok {
		t.Fatalf("expected log client, got %T", client)
	}
	if err := client.Push(context.Background(), "U1", RenderText("hi", "", "")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := client.Multicast(context.Background(), []string{"U1", "U2"}, RenderText("hi", "", "")); err != nil {
		t.Fatalf("multicast: %v", err)
	}
}

func TestLineClientRejectsOversizedMulticast(t *testing.T) {
	client, err := NewClient(config.LineConfig{ChannelAccessToken: "token"}, config.NotificationConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Multicast(context.Background(), nil, RenderText("hi", "", "")); err == nil {
		t.Fatal("empty recipient list should fail")
	}
	if err := client.Multicast(context.Background(), make([]string, MaxMulticastRecipients+1), RenderText("hi", "", "")); err == nil {
		t.Fatal("oversized recipient list should fail")
	}
}
