// ABOUTME: Data models for CRM admin entities
// ABOUTME: Defines Contact, Company, Deal, Quote, Transaction, and Activity structs
package models

import (
	"slices"
	"time"
)

// DateLayout is the storage format for calendar-date attributes.
const DateLayout = "2006-01-02"

type Contact struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Company         string    `json:"company,omitempty"`
	CompanyID       *int64    `json:"companyId,omitempty"`
	LastContactDate string    `json:"lastContactDate,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Company struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Industry         string    `json:"industry,omitempty"`
	Address          string    `json:"address,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	ContactCount     int       `json:"contactCount"`
	TotalDealValue   float64   `json:"totalDealValue"`
	LastActivityDate string    `json:"lastActivityDate,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Deal struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	ContactID         *int64         `json:"contactId,omitempty"`
	ContactName       string         `json:"contactName,omitempty"`
	Company           string         `json:"company,omitempty"`
	Value             float64        `json:"value"`
	ExpectedCloseDate string         `json:"expectedCloseDate,omitempty"`
	Status            string         `json:"status,omitempty"`
	Stage             string         `json:"stage"`
	Probability       int            `json:"probability"`
	Description       string         `json:"description,omitempty"`
	Source            string         `json:"source,omitempty"`
	AssignedTo        string         `json:"assignedTo,omitempty"`
	StageChangedAt    *time.Time     `json:"stageChangedAt,omitempty"`
	Activities        []DealActivity `json:"activities,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// DealActivity is one entry of a deal's embedded activity log.
type DealActivity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      int64     `json:"userId"`
	UserName    string    `json:"userName"`
}

type Quote struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	QuoteNumber        string    `json:"quoteNumber,omitempty"`
	CustomerID         *int64    `json:"customerId,omitempty"`
	CustomerName       string    `json:"customerName,omitempty"`
	ContactID          *int64    `json:"contactId,omitempty"`
	ContactName        string    `json:"contactName,omitempty"`
	Status             string    `json:"status"`
	TotalAmount        float64   `json:"totalAmount"`
	Currency           string    `json:"currency,omitempty"`
	ExpirationDate     string    `json:"expirationDate,omitempty"`
	ValidUntil         string    `json:"validUntil,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	TermsAndConditions string    `json:"termsAndConditions,omitempty"`
	Discount           float64   `json:"discount"`
	TaxAmount          float64   `json:"taxAmount"`
	IsApproved         bool      `json:"isApproved"`
	ApprovalDate       string    `json:"approvalDate,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Transaction struct {
	ID              int64     `json:"id"`
	TransactionID   string    `json:"transactionId"`
	Type            string    `json:"type"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency,omitempty"`
	Status          string    `json:"status"`
	ClientName      string    `json:"clientName"`
	Description     string    `json:"description,omitempty"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	Date            string    `json:"date"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Activity struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     string     `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ContactID   *int64     `json:"contactId,omitempty"`
	ContactName string     `json:"contactName,omitempty"`
	DealID      *int64     `json:"dealId,omitempty"`
	DealTitle   string     `json:"dealTitle,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (c Contact) Identity() int64     { return c.ID }
func (c Company) Identity() int64     { return c.ID }
func (d Deal) Identity() int64        { return d.ID }
func (q Quote) Identity() int64       { return q.ID }
func (t Transaction) Identity() int64 { return t.ID }
func (a Activity) Identity() int64    { return a.ID }

// Deal stage constants.
const (
	StageLead        = "Lead"
	StageQualified   = "Qualified"
	StageProposal    = "Proposal"
	StageNegotiation = "Negotiation"
	StageClosed      = "Closed"
	StageClosedWon   = "Closed Won"
	StageClosedLost  = "Closed Lost"
)

// Deal status constants.
const (
	DealStatusActive = "active"
	DealStatusWon    = "won"
	DealStatusLost   = "lost"
)

// Quote status constants.
const (
	QuoteDraft    = "Draft"
	QuoteSent     = "Sent"
	QuoteAccepted = "Accepted"
	QuoteDeclined = "Declined"
	QuoteExpired  = "Expired"
)

// Transaction type constants.
const (
	TransactionInvoice = "invoice"
	TransactionPayment = "payment"
	TransactionRefund  = "refund"
	TransactionExpense = "expense"
)

// Transaction status constants.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
	TransactionCancelled = "cancelled"
)

// Activity type constants.
const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityTask    = "task"
	ActivityNote    = "note"
)

// Activity status and priority constants.
const (
	ActivityPending   = "pending"
	ActivityCompleted = "completed"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// DealActivity type and actor constants.
const (
	DealActivityStatusChange = "status_change"
	SystemUserID             = 1
	SystemUserName           = "System"
)

var (
	DealStages          = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosed, StageClosedWon, StageClosedLost}
	KanbanStages        = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosed}
	DealStatuses        = []string{DealStatusActive, DealStatusWon, DealStatusLost}
	QuoteStatuses       = []string{QuoteDraft, QuoteSent, QuoteAccepted, QuoteDeclined, QuoteExpired}
	TransactionTypes    = []string{TransactionInvoice, TransactionPayment, TransactionRefund, TransactionExpense}
	TransactionStatuses = []string{TransactionPending, TransactionCompleted, TransactionFailed, TransactionCancelled}
	ActivityTypes       = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask, ActivityNote}
	ActivityStatuses    = []string{ActivityPending, ActivityCompleted}
	ActivityPriorities  = []string{PriorityLow, PriorityNormal, PriorityHigh}
)

// IsValidStage reports whether stage is a known deal stage.
func IsValidStage(stage string) bool {
	return slices.Contains(DealStages, stage)
}

// IsOpen reports whether the activity still needs doing.
func (a Activity) IsOpen() bool {
	return a.Status != ActivityCompleted
}

// IsOverdue reports whether an open activity's due date is before now.
// Activities without a parseable due date are never overdue.
func (a Activity) IsOverdue(now time.Time) bool {
	if !a.IsOpen() || a.DueDate == "" {
		return false
	}
	due, err := time.Parse(DateLayout, a.DueDate)
	if err != nil {
		due, err = time.Parse(time.RFC3339, a.DueDate)
		if err != nil {
			return false
		}
	}
	return due.Before(now)
}

// IsClosed reports whether the deal has left the active pipeline.
func (d Deal) IsClosed() bool {
	return d.Stage == StageClosed || d.Stage == StageClosedWon || d.Stage == StageClosedLost
}
