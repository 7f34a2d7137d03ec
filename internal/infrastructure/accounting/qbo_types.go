package accounting

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const qboDateLayout = "2006-01-02"

// qboRef is a reference to another QuickBooks entity
type qboRef struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type qboEmail struct {
	Address string `json:"Address"`
}

type qboPhone struct {
	FreeFormNumber string `json:"FreeFormNumber"`
}

type qboCustomer struct {
	ID               string    `json:"Id,omitempty"`
	SyncToken        string    `json:"SyncToken,omitempty"`
	DisplayName      string    `json:"DisplayName"`
	CompanyName      string    `json:"CompanyName,omitempty"`
	GivenName        string    `json:"GivenName,omitempty"`
	FamilyName       string    `json:"FamilyName,omitempty"`
	PrimaryEmailAddr *qboEmail `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *qboPhone `json:"PrimaryPhone,omitempty"`
}

type qboSalesItemLineDetail struct {
	ItemRef   qboRef      `json:"ItemRef"`
	Qty       json.Number `json:"Qty"`
	UnitPrice json.Number `json:"UnitPrice"`
}

type qboInvoiceLine struct {
	DetailType          string                  `json:"DetailType"`
	Amount              json.Number             `json:"Amount"`
	Description         string                  `json:"Description,omitempty"`
	SalesItemLineDetail *qboSalesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
}

type qboInvoice struct {
	ID          string           `json:"Id,omitempty"`
	SyncToken   string           `json:"SyncToken,omitempty"`
	Sparse      bool             `json:"sparse,omitempty"`
	DocNumber   string           `json:"DocNumber,omitempty"`
	TxnDate     string           `json:"TxnDate,omitempty"`
	DueDate     string           `json:"DueDate,omitempty"`
	CustomerRef qboRef           `json:"CustomerRef"`
	Line        []qboInvoiceLine `json:"Line"`
	PrivateNote string           `json:"PrivateNote,omitempty"`
}

type qboLinkedTxn struct {
	TxnID   string `json:"TxnId"`
	TxnType string `json:"TxnType"`
}

type qboPaymentLine struct {
	Amount    json.Number    `json:"Amount"`
	LinkedTxn []qboLinkedTxn `json:"LinkedTxn"`
}

type qboPayment struct {
	ID            string           `json:"Id,omitempty"`
	SyncToken     string           `json:"SyncToken,omitempty"`
	TotalAmt      json.Number      `json:"TotalAmt"`
	CustomerRef   qboRef           `json:"CustomerRef"`
	TxnDate       string           `json:"TxnDate,omitempty"`
	PaymentRefNum string           `json:"PaymentRefNum,omitempty"`
	PrivateNote   string           `json:"PrivateNote,omitempty"`
	Line          []qboPaymentLine `json:"Line"`
}

// qboEntity is the part of any entity response this adapter reads
type qboEntity struct {
	ID        string `json:"Id"`
	SyncToken string `json:"SyncToken"`
}

// qboResponse wraps a single-entity response. Only one field is set.
type qboResponse struct {
	Customer *qboEntity `json:"Customer,omitempty"`
	Invoice  *qboEntity `json:"Invoice,omitempty"`
	Payment  *qboEntity `json:"Payment,omitempty"`
	Fault    *qboFault  `json:"Fault,omitempty"`
}

type qboFaultError struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
	Code    string `json:"code"`
}

type qboFault struct {
	Type  string          `json:"type"`
	Error []qboFaultError `json:"Error"`
}

// errorResponse wraps the Fault returned with a 4xx status
type errorResponse struct {
	Fault *qboFault `json:"Fault"`
}

// String joins the fault errors into one message
func (f *qboFault) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, len(f.Error))
	for _, e := range f.Error {
		msg := e.Message
		if e.Detail != "" && e.Detail != e.Message {
			msg += " (" + e.Detail + ")"
		}
		if e.Code != "" {
			msg = e.Code + " " + msg
		}
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return f.Type
	}
	return strings.Join(parts, "; ")
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func quantity(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func qboDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(qboDateLayout)
}
