package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/helpdesk-line/repair-service/internal/config"
	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/notify"
	"github.com/helpdesk-line/repair-service/internal/observability"
	"github.com/helpdesk-line/repair-service/pkg/util/errorutil"
)

func newNotificationFixture() (*memStore, *fakeClient, *NotificationService, *observability.Metrics) {
	store := newMemStore()
	client := &fakeClient{}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(NotificationDependencies{
		UserRepo: fakeUserRepo{store},
		LinkRepo: fakeLinkRepo{store},
		LogRepo:  fakeNotificationLogRepo{store},
		Client:   client,
		Metrics:  metrics,
		Notification: config.NotificationConfig{
			AdminBaseURL:   "https://admin.example.com/repairs",
			StaffTicketURL: "https://it.example.com/repairs",
		},
	})
	return store, client, svc, metrics
}

func statusPayload() notify.StatusUpdatePayload {
	return notify.StatusUpdatePayload{Code: "REP-20240305-0001", Title: "Printer jam", Status: domain.TicketStatusInProgress}
}

func TestSendToUserRequiresVerifiedLink(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	ctx := context.Background()
	nobody := store.addUser("Nobody", domain.UserRoleUser)
	pending := store.addUser("Pending", domain.UserRoleUser)
	store.link(pending.ID, "U-pending", domain.LinkStatusUnverified)

	for _, user := range []*domain.User{nobody, pending} {
		result := svc.SendToUser(ctx, user.ID, statusPayload())
		if result.Success || result.Reason != ReasonNotLinked {
			t.Fatalf("user %s: expected not linked, got %+v", user.Name, result)
		}
	}
	if client.calls() != 0 {
		t.Fatalf("expected no channel calls, got %d", client.calls())
	}
	if len(store.notifs) != 0 {
		t.Fatalf("skipped sends must not be logged, got %d rows", len(store.notifs))
	}
}

func TestSendToUserLogsOutcome(t *testing.T) {
	store, client, svc, metrics := newNotificationFixture()
	ctx := context.Background()
	owner := store.addUser("Owner", domain.UserRoleUser)
	store.link(owner.ID, "U-owner", domain.LinkStatusVerified)

	result := svc.SendToUser(ctx, owner.ID, statusPayload())
	if !result.Success || result.Count != 1 {
		t.Fatalf("expected success, got %+v", result)
	}
	sent := store.notificationsWith(domain.DeliverySent)
	if len(sent) != 1 || sent[0].RecipientID != "U-owner" || *sent[0].UserID != owner.ID {
		t.Fatalf("unexpected SENT rows %+v", sent)
	}
	if sent[0].Category != string(notify.CategoryStatusUpdate) || sent[0].Title != "อัปเดตสถานะ REP-20240305-0001" {
		t.Fatalf("unexpected log content %+v", sent[0])
	}

	client.err = errChannelDown
	result = svc.SendToUser(ctx, owner.ID, statusPayload())
	if result.Success || result.Reason != errChannelDown.Error() {
		t.Fatalf("expected failure outcome, got %+v", result)
	}
	failed := store.notificationsWith(domain.DeliveryFailed)
	if len(failed) != 1 || failed[0].Error != errChannelDown.Error() || failed[0].RetryCount != 0 {
		t.Fatalf("unexpected FAILED rows %+v", failed)
	}

	snap := metrics.Snapshot()
	if snap.Notifications["STATUS_UPDATE|SENT"] != 1 || snap.Notifications["STATUS_UPDATE|FAILED"] != 1 {
		t.Fatalf("unexpected notification metrics %v", snap.Notifications)
	}
}

func TestSendToUserRenderFailureIsLogged(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	tech := store.addUser("Tech", domain.UserRoleIT)
	store.link(tech.ID, "U-tech", domain.LinkStatusVerified)

	result := svc.SendToUser(context.Background(), tech.ID, notify.AssignmentPayload{Code: "REP-1", Action: notify.ActionAssigned})
	if result.Success {
		t.Fatal("payload without title should not be delivered")
	}
	if client.calls() != 0 {
		t.Fatal("render failure must not reach the channel")
	}
	if len(store.notificationsWith(domain.DeliveryFailed)) != 1 {
		t.Fatal("render failure should be logged as FAILED")
	}
}

func TestBroadcastToRoleWithoutRecipients(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	store.addUser("Tech", domain.UserRoleIT)

	result := svc.BroadcastToRole(context.Background(), domain.UserRoleIT, notify.NewTicketPayload{
		Code: "REP-1", ReporterName: "Somchai", Title: "Printer jam", Location: "Room 201",
	})
	if result.Success || result.Reason != ReasonNoRecipients {
		t.Fatalf("expected no recipients, got %+v", result)
	}
	if client.calls() != 0 || len(store.notifs) != 0 {
		t.Fatal("nothing should be sent or logged")
	}
}

func TestBroadcastToRoleChunksRecipients(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	total := notify.MaxMulticastRecipients + 1
	for i := 0; i < total; i++ {
		user := store.addUser(fmt.Sprintf("Tech%03d", i), domain.UserRoleIT)
		store.link(user.ID, fmt.Sprintf("U-%03d", i), domain.LinkStatusVerified)
	}

	result := svc.BroadcastToRole(context.Background(), domain.UserRoleIT, notify.NewTicketPayload{
		Code: "REP-1", ReporterName: "Somchai", Title: "Printer jam", Location: "Room 201",
	})
	if !result.Success || result.Count != total {
		t.Fatalf("expected %d deliveries, got %+v", total, result)
	}
	if len(client.multicasts) != 2 {
		t.Fatalf("expected 2 multicast calls, got %d", len(client.multicasts))
	}
	if len(client.multicasts[0].to) != notify.MaxMulticastRecipients || len(client.multicasts[1].to) != 1 {
		t.Fatalf("unexpected chunk sizes %d/%d", len(client.multicasts[0].to), len(client.multicasts[1].to))
	}
	if got := len(store.notificationsWith(domain.DeliverySent)); got != total {
		t.Fatalf("expected one SENT row per recipient, got %d", got)
	}
}

func TestBroadcastToRoleFailureLogsEveryRecipient(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	for _, name := range []string{"Tech A", "Tech B"} {
		user := store.addUser(name, domain.UserRoleIT)
		store.link(user.ID, "U-"+name, domain.LinkStatusVerified)
	}
	client.err = errChannelDown

	result := svc.BroadcastToRole(context.Background(), domain.UserRoleIT, notify.NewTicketPayload{
		Code: "REP-1", ReporterName: "Somchai", Title: "Printer jam", Location: "Room 201",
	})
	if result.Success || result.Count != 0 {
		t.Fatalf("expected failed broadcast, got %+v", result)
	}
	if got := len(store.notificationsWith(domain.DeliveryFailed)); got != 2 {
		t.Fatalf("expected 2 FAILED rows, got %d", got)
	}
}

func seedFailed(t *testing.T, store *memStore, retryCounts ...int) []int64 {
	t.Helper()
	repo := fakeNotificationLogRepo{store}
	ids := make([]int64, 0, len(retryCounts))
	for i, count := range retryCounts {
		user := store.addUser(fmt.Sprintf("Requester %d", i), domain.UserRoleUser)
		store.link(user.ID, fmt.Sprintf("U-%d", i), domain.LinkStatusVerified)
		uid := user.ID
		entry := &domain.NotificationLog{
			UserID:      &uid,
			RecipientID: fmt.Sprintf("U-%d", i),
			Category:    string(notify.CategoryStatusUpdate),
			Title:       "อัปเดตสถานะ REP-1",
			Body:        "กำลังดำเนินการ",
			Status:      domain.DeliveryFailed,
			Error:       "timeout",
		}
		if err := repo.Create(context.Background(), entry); err != nil {
			t.Fatalf("seed: %v", err)
		}
		store.notifs[len(store.notifs)-1].RetryCount = count
		ids = append(ids, entry.ID)
	}
	return ids
}

func retryCountOf(store *memStore, id int64) (int, domain.DeliveryStatus) {
	for _, n := range store.notifs {
		if n.ID == id {
			return n.RetryCount, n.Status
		}
	}
	return -1, ""
}

func TestRetryFailedNotifications(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	ids := seedFailed(t, store, 0, 1, 2, 3)

	summary, err := svc.RetryFailedNotifications(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if summary.Attempted != 3 || summary.Succeeded != 3 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for i, want := range []int{1, 2, 3} {
		count, status := retryCountOf(store, ids[i])
		if count != want || status != domain.DeliverySent {
			t.Fatalf("row %d: want retry %d SENT, got %d %s", i, want, count, status)
		}
	}
	if count, status := retryCountOf(store, ids[3]); count != 3 || status != domain.DeliveryFailed {
		t.Fatalf("exhausted row must be untouched, got %d %s", count, status)
	}
	for _, push := range client.pushes {
		if push.msg.Kind != notify.MessageText {
			t.Fatalf("retries are sent as text, got %s", push.msg.Kind)
		}
	}
}

func TestRetryFailedNotificationsStopsAtLimit(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	ids := seedFailed(t, store, 0)
	client.err = errChannelDown

	for pass := 0; pass < 5; pass++ {
		if _, err := svc.RetryFailedNotifications(context.Background()); err != nil {
			t.Fatalf("retry pass %d: %v", pass, err)
		}
	}
	count, status := retryCountOf(store, ids[0])
	if count != 3 || status != domain.DeliveryFailed {
		t.Fatalf("expected 3 failed retries, got %d %s", count, status)
	}
	if len(client.pushes) != 3 {
		t.Fatalf("expected 3 send attempts, got %d", len(client.pushes))
	}
}

func TestRetryFailedNotificationsBatchSize(t *testing.T) {
	store, _, svc, _ := newNotificationFixture()
	seedFailed(t, store, make([]int, 12)...)

	summary, err := svc.RetryFailedNotifications(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if summary.Attempted != 10 {
		t.Fatalf("expected one batch of 10, got %d", summary.Attempted)
	}
}

func TestRetryFailedNotificationsFollowsCurrentLink(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	ctx := context.Background()
	ids := seedFailed(t, store, 0, 0, 0)

	// Row 0 was re-pointed to a new LINE account, row 1 lost verification
	// and row 2 was unlinked.
	store.links[*store.notifs[0].UserID].LineUserID = "U-new"
	store.links[*store.notifs[1].UserID].Status = domain.LinkStatusUnverified
	delete(store.links, *store.notifs[2].UserID)

	summary, err := svc.RetryFailedNotifications(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if summary.Attempted != 3 || summary.Succeeded != 1 || summary.Failed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(client.pushes) != 1 || client.pushes[0].to[0] != "U-new" {
		t.Fatalf("only the current verified binding may be contacted, got %+v", client.pushes)
	}
	for _, id := range ids[1:] {
		if count, status := retryCountOf(store, id); count != 1 || status != domain.DeliveryFailed {
			t.Fatalf("row %d: want one failed attempt, got %d %s", id, count, status)
		}
	}
}

func TestSendAnnouncement(t *testing.T) {
	store, client, svc, _ := newNotificationFixture()
	ctx := context.Background()

	if _, err := svc.SendAnnouncement(ctx, 42, "Maintenance", "Network down at 18:00", ""); !errorutil.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	user := store.addUser("Owner", domain.UserRoleUser)
	store.link(user.ID, "U-owner", domain.LinkStatusVerified)
	result, err := svc.SendAnnouncement(ctx, user.ID, "Maintenance", "Network down at 18:00", "https://status.example.com")
	if err != nil || !result.Success {
		t.Fatalf("announcement: %+v %v", result, err)
	}
	msg := client.pushes[0].msg
	if msg.Kind != notify.MessageText || msg.Text != "Maintenance\n\nNetwork down at 18:00\n\nhttps://status.example.com" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestListAndClearLogs(t *testing.T) {
	store, _, svc, _ := newNotificationFixture()
	ctx := context.Background()
	seedFailed(t, store, 0, 0, 0)

	logs, err := svc.ListLogs(ctx, 2, 0)
	if err != nil || len(logs) != 2 {
		t.Fatalf("list: %d %v", len(logs), err)
	}
	if logs[0].CreatedAt.Before(logs[1].CreatedAt) {
		t.Fatal("logs should be newest first")
	}

	deleted, err := svc.ClearLogs(ctx)
	if err != nil || deleted != 3 {
		t.Fatalf("clear: %d %v", deleted, err)
	}
}

func TestNextStepFor(t *testing.T) {
	if nextStepFor(domain.TicketStatusPending) != "" {
		t.Fatal("pending has no next step")
	}
	for _, status := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusWaitingParts, domain.TicketStatusCompleted} {
		if nextStepFor(status) == "" {
			t.Fatalf("missing next step for %s", status)
		}
	}
}
