package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Apartment PropertyType = "apartment"
	House     PropertyType = "house"
	Other     PropertyType = "other"

	Rented      PropertyStatus = "rented"
	Vacant      PropertyStatus = "vacant"
	Maintenance PropertyStatus = "maintenance"

	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"

	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertInfo    AlertType = "info"

	CategoryPayment     AlertCategory = "payment"
	CategoryMaintenance AlertCategory = "maintenance"
	CategoryContract    AlertCategory = "contract"
	CategoryEnergy      AlertCategory = "energy"
	CategoryWater       AlertCategory = "water"
	CategorySystem      AlertCategory = "system"

	EnergyBillKind BillKind = "energy"
	WaterBillKind  BillKind = "water"

	Contract DocumentType = "contract"
	Invoice  DocumentType = "invoice"
	Receipt  DocumentType = "receipt"
	Report   DocumentType = "report"
	OtherDoc DocumentType = "other"
)

type (
	PropertyType    string
	PropertyStatus  string
	TenantStatus    string
	TransactionType string
	RepetitionTypes string
	AlertType       string
	AlertCategory   string
	BillKind        string
	DocumentType    string

	Property struct {
		ID            string         `json:"id"`
		Name          string         `json:"name"`
		Address       string         `json:"address"`
		Type          PropertyType   `json:"type"`
		PurchasePrice Amount         `json:"purchasePrice"`
		RentValue     Amount         `json:"rentValue"`
		Status        PropertyStatus `json:"status"`
		TenantID      string         `json:"tenant,omitempty"`
		CreatedAt     Date           `json:"createdAt"`
	}

	Tenant struct {
		ID          string       `json:"id"`
		PropertyID  string       `json:"propertyId,omitempty"`
		Name        string       `json:"name"`
		Email       string       `json:"email,omitempty"`
		Phone       string       `json:"phone,omitempty"`
		TaxID       string       `json:"cpf,omitempty"` // free text, never validated here
		MonthlyRent Amount       `json:"monthlyRent"`
		Deposit     Amount       `json:"deposit"`
		Status      TenantStatus `json:"status"`
		StartDate   Date         `json:"startDate"`
		PaymentDay  int          `json:"paymentDate,omitempty"` // agreed day of month, 0 when not agreed

		DepositPaid         bool `json:"depositPaid,omitempty"`
		DepositInstallments bool `json:"depositInstallments,omitempty"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		PropertyID  string          `json:"propertyId"`
		Type        TransactionType `json:"type"`
		Amount      Amount          `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description,omitempty"`
		Category    string          `json:"category,omitempty"`
		Recurring   bool            `json:"recurring,omitempty"`
		Recurrence  RepetitionTypes `json:"recurrence,omitempty"` // empty means monthly
		TemplateID  string          `json:"templateId,omitempty"`
	}

	Alert struct {
		ID         string        `json:"id"`
		Type       AlertType     `json:"type"`
		Title      string        `json:"title"`
		Message    string        `json:"message"`
		CreatedAt  Date          `json:"date"`
		Resolved   bool          `json:"resolved"`
		PropertyID string        `json:"propertyId,omitempty"`
		Category   AlertCategory `json:"category"`
	}

	// UtilityBill covers both energy and water bills; they share the same shape.
	UtilityBill struct {
		ID          string            `json:"id"`
		Kind        BillKind          `json:"kind,omitempty"`
		PropertyID  string            `json:"propertyId,omitempty"`
		GroupID     string            `json:"groupId"`
		Period      string            `json:"period"` // YYYY-MM
		DueDate     Date              `json:"dueDate"`
		TotalAmount Amount            `json:"totalAmount"`
		Shares      map[string]Amount `json:"shares,omitempty"` // proportional amount per tenant id
		Paid        bool              `json:"isPaid"`
		Consumption Amount            `json:"consumption"` // kWh or m³
		CreatedAt   Date              `json:"createdAt"`
		UpdatedAt   Date              `json:"lastUpdated"`
	}

	EnergyBill = UtilityBill
	WaterBill  = UtilityBill

	// Document is the metadata of a file attached to a property or tenant.
	// The file itself lives outside the store.
	Document struct {
		ID          string       `json:"id"`
		PropertyID  string       `json:"propertyId,omitempty"`
		TenantID    string       `json:"tenantId,omitempty"`
		Name        string       `json:"name"`
		Type        DocumentType `json:"type"`
		FilePath    string       `json:"filePath"`
		FileSize    int64        `json:"fileSize"`
		MimeType    string       `json:"mimeType,omitempty"`
		Description string       `json:"description,omitempty"`
		CreatedAt   Date         `json:"createdAt"`
		UpdatedAt   Date         `json:"updatedAt"`
	}
)

var (
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidType       = errors.New("invalid type")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPaymentDay = errors.New("invalid payment day")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidPeriod     = errors.New("invalid billing period")
)

// Frequency returns the recurrence period, defaulting to monthly.
func (t Transaction) Frequency() RepetitionTypes {
	if t.Recurrence == "" {
		return Monthly
	}
	return t.Recurrence
}

// Root returns the id of the recurrence chain the transaction belongs to.
func (t Transaction) Root() string {
	if t.TemplateID != "" {
		return t.TemplateID
	}
	return t.ID
}

// IsActive reports whether the tenant currently holds a lease.
func (t Tenant) IsActive() bool {
	return t.Status == TenantActive
}

// Unpaid reports whether the bill is still open.
func (b UtilityBill) Unpaid() bool {
	return !b.Paid
}

func (p Property) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	switch p.Type {
	case Apartment, House, Other:
	default:
		return ErrInvalidType
	}
	switch p.Status {
	case Rented, Vacant, Maintenance:
	default:
		return ErrInvalidStatus
	}
	if !p.PurchasePrice.Numeric() || p.PurchasePrice < 0 {
		return fmt.Errorf("invalid purchase price: %w", ErrInvalidAmount)
	}
	if !p.RentValue.Numeric() || p.RentValue < 0 {
		return fmt.Errorf("invalid rent value: %w", ErrInvalidAmount)
	}
	return nil
}

func (t Tenant) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	switch t.Status {
	case TenantActive, TenantInactive:
	default:
		return ErrInvalidStatus
	}
	if !t.MonthlyRent.Numeric() || t.MonthlyRent < 0 {
		return fmt.Errorf("invalid monthly rent: %w", ErrInvalidAmount)
	}
	if t.PaymentDay < 0 || t.PaymentDay > 31 {
		return ErrInvalidPaymentDay
	}
	if !t.StartDate.Valid() {
		return fmt.Errorf("invalid start date: %w", ErrInvalidDate)
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrInvalidType
	}
	if !t.Amount.Numeric() || t.Amount < 0 {
		return ErrInvalidAmount
	}
	if !t.Date.Valid() {
		return ErrInvalidDate
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	switch t.Recurrence {
	case "", Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidRecurrence
	}
	return nil
}

func (a Alert) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("empty title")
	}
	switch a.Type {
	case AlertWarning, AlertError, AlertInfo:
	default:
		return ErrInvalidType
	}
	switch a.Category {
	case CategoryPayment, CategoryMaintenance, CategoryContract, CategoryEnergy, CategoryWater, CategorySystem:
	default:
		return errors.New("invalid category")
	}
	return nil
}

func (b UtilityBill) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrEmptyID
	}
	if _, err := time.Parse("2006-01", b.Period); err != nil {
		return ErrInvalidPeriod
	}
	if !b.DueDate.Valid() {
		return fmt.Errorf("invalid due date: %w", ErrInvalidDate)
	}
	if !b.TotalAmount.Numeric() || b.TotalAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if len(d.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	switch d.Type {
	case Contract, Invoice, Receipt, Report, OtherDoc:
	default:
		return ErrInvalidType
	}
	if strings.TrimSpace(d.FilePath) == "" {
		return errors.New("empty file path")
	}
	if d.FileSize < 0 {
		return errors.New("negative file size")
	}
	if len(d.Description) > 1000 {
		return errors.New("description too long (max 1000 characters)")
	}
	return nil
}
