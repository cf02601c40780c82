// Package models defines the entities of the queueing domain: offices,
// services, windows, tickets, customer forms, and document requests.
package models

import "time"

// Office identifies one of the two service-owning units.
type Office string

const (
	OfficeRegistrar  Office = "registrar"
	OfficeAdmissions Office = "admissions"
)

func (o Office) Valid() bool {
	return o == OfficeRegistrar || o == OfficeAdmissions
}

// PriorityWindowName is reserved: a window with this name accepts only
// priority tickets, and no other window may.
const PriorityWindowName = "Priority"

// Role is the customer's declared role at admit time.
type Role string

const (
	RoleVisitor Role = "Visitor"
	RoleStudent Role = "Student"
	RoleTeacher Role = "Teacher"
	RoleAlumni  Role = "Alumni"
)

func (r Role) Valid() bool {
	switch r {
	case RoleVisitor, RoleStudent, RoleTeacher, RoleAlumni:
		return true
	}
	return false
}

// StudentStatus qualifies an Enroll admission.
type StudentStatus string

const (
	StudentIncomingNew  StudentStatus = "incoming_new"
	StudentContinuing   StudentStatus = "continuing"
)

func (s StudentStatus) Valid() bool {
	return s == StudentIncomingNew || s == StudentContinuing
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusWaiting   TicketStatus = "waiting"
	StatusServing   TicketStatus = "serving"
	StatusCompleted TicketStatus = "completed"
	StatusSkipped   TicketStatus = "skipped"
	StatusCancelled TicketStatus = "cancelled"
	StatusNoShow    TicketStatus = "no-show"
)

// Well-known service names that drive admit-path branching (§4.6.1).
const (
	ServiceEnroll          = "Enroll"
	ServiceDocumentClaim   = "Document Claim"
	ServiceDocumentRequest = "Document Request"
)

// Service belongs to exactly one office.
type Service struct {
	ID             string `json:"id"`
	Office         Office `json:"office"`
	Name           string `json:"name"`
	Active         bool   `json:"active"`
	SpecialRequest bool   `json:"specialRequest"`
}

// Window is a staffed service point within an office.
type Window struct {
	ID         string          `json:"id"`
	Office     Office          `json:"office"`
	Name       string          `json:"name"`
	ServiceIDs map[string]bool `json:"-"`
	IsOpen     bool            `json:"isOpen"`
	IsServing  bool            `json:"isServing"`
	Version    int             `json:"-"`
}

// IsPriority reports whether this window is the reserved Priority window.
func (w *Window) IsPriority() bool { return w.Name == PriorityWindowName }

// AcceptsService reports whether this window's service set includes id.
func (w *Window) AcceptsService(id string) bool {
	return w.ServiceIDs != nil && w.ServiceIDs[id]
}

// CustomerForm is collected on admit paths that need contact info.
type CustomerForm struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
	Address  string `json:"address,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
}

// DocumentRequestStatus is the approval state of an external Document
// Request record.
type DocumentRequestStatus string

const (
	DocRequestPending  DocumentRequestStatus = "pending"
	DocRequestApproved DocumentRequestStatus = "approved"
	DocRequestRejected DocumentRequestStatus = "rejected"
)

// DocumentRequest is an externally managed record; the dispatcher only
// reads it (it is created by the Document Request admit path).
type DocumentRequest struct {
	TransactionNo string                `json:"transactionNo"`
	Name          string                `json:"name"`
	Contact       string                `json:"contact"`
	Email         string                `json:"email"`
	RequestItems  []string              `json:"requestItems"`
	Status        DocumentRequestStatus `json:"status"`
}

// Ticket is the central entity of the queueing domain.
type Ticket struct {
	ID            string `json:"id"`
	Office        Office `json:"office"`
	Number        int    `json:"number"`
	TransactionNo string `json:"transactionNo,omitempty"`

	ServiceID string `json:"serviceId"`
	WindowID  string `json:"windowId"`

	Role          Role          `json:"role"`
	StudentStatus StudentStatus `json:"studentStatus,omitempty"`
	Priority      bool          `json:"priority"`

	CustomerFormID string `json:"customerFormId,omitempty"`

	Status           TicketStatus `json:"status"`
	CurrentlyServing bool         `json:"currentlyServing"`

	QueuedAt    time.Time  `json:"queuedAt"`
	CalledAt    *time.Time `json:"calledAt,omitempty"`
	ServedAt    *time.Time `json:"servedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	SkippedAt   *time.Time `json:"skippedAt,omitempty"`

	Rating      *int   `json:"rating,omitempty"`
	Remarks     string `json:"remarks,omitempty"`
	ProcessedBy string `json:"processedBy,omitempty"`

	Version int `json:"-"`
}

// Clone returns a deep-enough copy safe to hand to a caller without
// aliasing mutable pointer fields.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.CalledAt != nil {
		v := *t.CalledAt
		c.CalledAt = &v
	}
	if t.ServedAt != nil {
		v := *t.ServedAt
		c.ServedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.SkippedAt != nil {
		v := *t.SkippedAt
		c.SkippedAt = &v
	}
	if t.Rating != nil {
		v := *t.Rating
		c.Rating = &v
	}
	return &c
}

// Principal is the authenticated caller the dispatcher receives;
// verification of the token that produced it is out of scope.
type Principal struct {
	ID     string `json:"id"`
	Office Office `json:"office"`
	Role   string `json:"role"`
}

// DisplayName implements the display-name rule from §9: a ticket without
// a resolved form name falls back to a role/office-specific label.
// serviceName is the name of t's resolved Service (may be empty if
// unresolved, in which case StudentStatus alone signals an Enroll path).
func DisplayName(t *Ticket, serviceName, formName string) string {
	if formName != "" {
		return formName
	}
	if serviceName == ServiceEnroll || t.StudentStatus != "" {
		switch t.Office {
		case OfficeAdmissions:
			return "New Student"
		default:
			return "Enrollee"
		}
	}
	return "Anonymous Customer"
}
