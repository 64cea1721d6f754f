package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-line/repair-service/internal/domain"
	"github.com/helpdesk-line/repair-service/internal/service"
	"github.com/helpdesk-line/repair-service/internal/storage"
)

func TestParseTicketQuery(t *testing.T) {
	var got service.TicketListFilter
	app := fiber.New()
	app.Get("/tickets", func(c *fiber.Ctx) error {
		got = parseTicketQuery(c)
		return c.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/tickets?status=pending,%20in_progress&urgency=critical&q=printer&assignee_id=4&page=3&page_size=500", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request: %v", err)
	}

	if len(got.Statuses) != 2 || got.Statuses[0] != domain.TicketStatusPending || got.Statuses[1] != domain.TicketStatusInProgress {
		t.Fatalf("unexpected statuses %v", got.Statuses)
	}
	if len(got.Urgencies) != 1 || got.Urgencies[0] != domain.TicketUrgencyCritical {
		t.Fatalf("unexpected urgencies %v", got.Urgencies)
	}
	if got.SearchTerm == nil || *got.SearchTerm != "printer" {
		t.Fatalf("unexpected search term %v", got.SearchTerm)
	}
	if got.AssigneeID == nil || *got.AssigneeID != 4 {
		t.Fatalf("unexpected assignee %v", got.AssigneeID)
	}
	if got.Limit != 200 || got.Offset != 400 {
		t.Fatalf("page size should cap at 200, got limit %d offset %d", got.Limit, got.Offset)
	}
}

func TestReadFiles(t *testing.T) {
	var files []storage.File
	app := fiber.New()
	app.Post("/upload", func(c *fiber.Ctx) error {
		var err error
		files, err = readFiles(c)
		if err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("title", "Printer jam")
	part, _ := writer.CreateFormFile(filesField, "jam.jpg")
	_, _ = part.Write([]byte("jpeg"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("upload: %v", err)
	}
	if len(files) != 1 || files[0].Name != "jam.jpg" || string(files[0].Data) != "jpeg" {
		t.Fatalf("unexpected files %+v", files)
	}

	jsonReq := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(`{"title":"x"}`))
	jsonReq.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	if _, err := app.Test(jsonReq); err != nil {
		t.Fatalf("json request: %v", err)
	}
	if len(files) != 0 {
		t.Fatal("json requests carry no files")
	}
}

func TestTicketResponseUsesEmptyCollections(t *testing.T) {
	resp := ticketResponse(&domain.Ticket{ID: 1, Code: "REP-1", Status: domain.TicketStatusPending})
	if resp.Attachments == nil || resp.Logs == nil {
		t.Fatal("collections must serialize as empty arrays")
	}
	if resp.Status != "PENDING" {
		t.Fatalf("unexpected status %s", resp.Status)
	}
}
