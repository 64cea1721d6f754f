package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helpdesk-line/repair-service/internal/config"
	"github.com/helpdesk-line/repair-service/internal/domain"
)

// MessageKind selects how a rendered message is sent.
type MessageKind string

const (
	MessageText MessageKind = "text"
	MessageFlex MessageKind = "flex"
)

// Message is a channel-ready document.
type Message struct {
	Kind    MessageKind
	Text    string
	AltText string
	Flex    *FlexBubble
}

const (
	mutedColor = "#8C8C8C"
	bodyColor  = "#333333"
	brandColor = "#06C755"
)

// urgencyPalette is the three-level color scale for ticket cards.
var urgencyPalette = map[domain.TicketUrgency]string{
	domain.TicketUrgencyNormal:   "#2E7D32",
	domain.TicketUrgencyUrgent:   "#F57C00",
	domain.TicketUrgencyCritical: "#C62828",
}

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusPending:      "รอดำเนินการ",
	domain.TicketStatusInProgress:   "กำลังดำเนินการ",
	domain.TicketStatusWaitingParts: "รออะไหล่",
	domain.TicketStatusCompleted:    "ซ่อมเสร็จแล้ว",
	domain.TicketStatusCancelled:    "ยกเลิกแล้ว",
}

var statusColors = map[domain.TicketStatus]string{
	domain.TicketStatusPending:      "#757575",
	domain.TicketStatusInProgress:   "#1565C0",
	domain.TicketStatusWaitingParts: "#F57C00",
	domain.TicketStatusCompleted:    "#2E7D32",
	domain.TicketStatusCancelled:    "#C62828",
}

var displayZone = time.FixedZone("ICT", 7*60*60)

// StatusLabel returns the localized label for a status.
func StatusLabel(status domain.TicketStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// UrgencyColor returns the card color for an urgency level.
func UrgencyColor(urgency domain.TicketUrgency) string {
	if color, ok := urgencyPalette[urgency]; ok {
		return color
	}
	return urgencyPalette[domain.TicketUrgencyNormal]
}

func urgencyLabel(urgency domain.TicketUrgency) string {
	switch urgency {
	case domain.TicketUrgencyCritical:
		return "วิกฤต"
	case domain.TicketUrgencyUrgent:
		return "ด่วน"
	default:
		return "ปกติ"
	}
}

func assignmentHeadline(action AssignmentAction) string {
	switch action {
	case ActionTransferred:
		return "มีการโอนงานซ่อมให้คุณ"
	case ActionClaimed:
		return "คุณรับงานซ่อมแล้ว"
	default:
		return "คุณได้รับมอบหมายงานซ่อม"
	}
}

// Renderer turns payloads into channel messages. It holds only link bases
// and has no side effects.
type Renderer struct {
	adminBaseURL   string
	staffTicketURL string
}

// NewRenderer builds a renderer from notification settings.
func NewRenderer(cfg config.NotificationConfig) *Renderer {
	return &Renderer{
		adminBaseURL:   strings.TrimRight(cfg.AdminBaseURL, "/"),
		staffTicketURL: strings.TrimRight(cfg.StaffTicketURL, "/"),
	}
}

// Render produces the message for p.
func (r *Renderer) Render(p Payload) (Message, error) {
	if p == nil {
		return Message{}, fmt.Errorf("nil payload")
	}
	if err := p.validate(); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", p.Category(), err)
	}
	switch v := p.(type) {
	case NewTicketPayload:
		return r.renderNewTicket(v), nil
	case AssignmentPayload:
		return r.renderAssignment(v), nil
	case StatusUpdatePayload:
		return r.renderStatusUpdate(v), nil
	case GenericPayload:
		return RenderText(v.Title, v.Body, v.ActionURL), nil
	default:
		return Message{}, fmt.Errorf("no template for category %s", p.Category())
	}
}

// ClaimURL is the admin link used to claim a ticket.
func (r *Renderer) ClaimURL(code string) string {
	return r.adminBaseURL + "/" + url.PathEscape(code) + "?action=claim"
}

// DetailURL is the staff detail view of a ticket.
func (r *Renderer) DetailURL(code string) string {
	return r.staffTicketURL + "/" + url.PathEscape(code)
}

func (r *Renderer) renderNewTicket(p NewTicketPayload) Message {
	color := UrgencyColor(p.Urgency)
	title, _ := p.Summary()
	bubble := &FlexBubble{
		Type: "bubble",
		Header: &FlexBox{
			Type: "box", Layout: "vertical", BackgroundColor: color, PaddingAll: "16px",
			Contents: []FlexComponent{
				text("🔧 แจ้งซ่อมใหม่", "lg", "bold", "#FFFFFF"),
				text(p.Code, "sm", "", "#FFFFFF"),
			},
		},
		Body: vbox("sm",
			text(p.Title, "md", "bold", bodyColor),
			separator(),
			row("ผู้แจ้ง", p.ReporterName),
			row("แผนก", orDash(p.Department)),
			row("สถานที่", p.Location),
			row("ความเร่งด่วน", urgencyLabel(p.Urgency)),
		),
		Footer: vbox("sm", button("รับงาน", r.ClaimURL(p.Code), color)),
	}
	return Message{Kind: MessageFlex, AltText: title, Flex: bubble}
}

func (r *Renderer) renderAssignment(p AssignmentPayload) Message {
	headline := assignmentHeadline(p.Action)
	color := UrgencyColor(p.Urgency)
	bubble := &FlexBubble{
		Type: "bubble",
		Header: &FlexBox{
			Type: "box", Layout: "vertical", BackgroundColor: color, PaddingAll: "16px",
			Contents: []FlexComponent{
				text(headline, "md", "bold", "#FFFFFF"),
				text(p.Code, "sm", "", "#FFFFFF"),
			},
		},
		Body: vbox("sm",
			text(p.Title, "md", "bold", bodyColor),
			separator(),
			row("ผู้แจ้ง", orDash(p.ReporterName)),
			row("ความเร่งด่วน", urgencyLabel(p.Urgency)),
		),
		Footer: vbox("sm", button("ดูรายละเอียด", r.DetailURL(p.Code), brandColor)),
	}
	return Message{Kind: MessageFlex, AltText: headline + " " + p.Code, Flex: bubble}
}

func (r *Renderer) renderStatusUpdate(p StatusUpdatePayload) Message {
	label := StatusLabel(p.Status)
	color, ok := statusColors[p.Status]
	if !ok {
		color = brandColor
	}

	body := []FlexComponent{}
	if p.Title != "" {
		body = append(body, text(p.Title, "md", "bold", bodyColor), separator())
	}
	body = append(body, row("สถานะ", label))
	if p.TechnicianName != "" {
		body = append(body, row("ช่างผู้รับผิดชอบ", p.TechnicianName))
	}
	if p.Remark != "" {
		body = append(body, row("หมายเหตุ", p.Remark))
	}
	if p.NextStep != "" {
		body = append(body, row("ขั้นตอนถัดไป", p.NextStep))
	}
	if p.UpdatedAt != nil {
		body = append(body, row("อัปเดตเมื่อ", p.UpdatedAt.In(displayZone).Format("02/01/2006 15:04")))
	}

	bubble := &FlexBubble{
		Type: "bubble",
		Header: &FlexBox{
			Type: "box", Layout: "vertical", BackgroundColor: color, PaddingAll: "16px",
			Contents: []FlexComponent{
				text(label, "lg", "bold", "#FFFFFF"),
				text(p.Code, "sm", "", "#FFFFFF"),
			},
		},
		Body: vbox("sm", body...),
	}
	return Message{Kind: MessageFlex, AltText: "งานซ่อม " + p.Code + ": " + label, Flex: bubble}
}

// RenderText is the generic template: title, body and an optional link.
func RenderText(title, body, link string) Message {
	parts := make([]string, 0, 3)
	if title = strings.TrimSpace(title); title != "" {
		parts = append(parts, title)
	}
	if body = strings.TrimSpace(body); body != "" {
		parts = append(parts, body)
	}
	if link = strings.TrimSpace(link); link != "" {
		parts = append(parts, link)
	}
	return Message{Kind: MessageText, Text: strings.Join(parts, "\n\n")}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
